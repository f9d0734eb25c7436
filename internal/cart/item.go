package cart

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shoppingcart/pkg/money"
)

var hundred = decimal.NewFromInt(100)

// LineItem is one cart entry: a quantity of a priced product plus its chosen options.
// Tax, subtotal and totals are derived on every read from the current price, quantity
// and tax rate.
//
// A LineItem is owned by a single cart; callers sharing one across goroutines must
// serialize access themselves.
type LineItem struct {
	rowID          string
	id             any
	name           string
	qty            decimal.NullDecimal
	price          money.Money
	options        Options
	taxRate        decimal.Decimal
	saved          bool
	associatedType string
}

// New builds a line item from raw attributes. id must be a non-empty string or a
// non-zero integer, name must be non-empty and price must carry a valid currency.
func New(id any, name string, price money.Money, options Options) (*LineItem, error) {
	normalized, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, ErrInvalidName
	}
	if !price.IsValid() {
		return nil, ErrInvalidPrice
	}
	return &LineItem{
		rowID:   GenerateRowID(normalized, options),
		id:      normalized,
		name:    name,
		price:   price,
		options: options,
	}, nil
}

// FromBuyable builds a line item from a Buyable, handing it the chosen options.
func FromBuyable(item Buyable, options Options) (*LineItem, error) {
	return New(item.BuyableIdentifier(options), item.BuyableDescription(options), item.BuyablePrice(options), options)
}

// FromAttributes builds a line item from an attribute mapping. id, name and price are
// required; options and qty are optional.
func FromAttributes(attrs Attributes) (*LineItem, error) {
	id, _ := attrs.lookup(AttrID)
	if _, err := normalizeID(id); err != nil {
		return nil, err
	}
	name, err := attrs.name("")
	if err != nil {
		return nil, err
	}
	price, err := attrs.price(money.Money{})
	if err != nil {
		return nil, err
	}
	options, err := attrs.options(Options{})
	if err != nil {
		return nil, err
	}

	item, err := New(id, name, price, options)
	if err != nil {
		return nil, err
	}
	if qty, ok := attrs.lookup(AttrQty); ok {
		if err := item.SetQuantity(qty); err != nil {
			return nil, err
		}
	}
	return item, nil
}

func (i *LineItem) RowID() string { return i.rowID }

// ID returns the product identifier, either an int64 or a string.
func (i *LineItem) ID() any { return i.id }

func (i *LineItem) Name() string { return i.name }

// Quantity returns the quantity and whether it has been assigned.
func (i *LineItem) Quantity() (decimal.Decimal, bool) {
	return i.qty.Decimal, i.qty.Valid
}

// Price returns the unit price without tax.
func (i *LineItem) Price() money.Money { return i.price }

func (i *LineItem) Options() Options { return i.options }

// TaxRate returns the tax rate in percent.
func (i *LineItem) TaxRate() decimal.Decimal { return i.taxRate }

func (i *LineItem) IsSaved() bool { return i.saved }

// AssociatedType returns the product type tag set by Associate, or "".
func (i *LineItem) AssociatedType() string { return i.associatedType }

// Tax is the tax on a single unit.
func (i *LineItem) Tax() money.Money {
	return i.price.Multiply(i.taxRate.Div(hundred))
}

// PriceWithTax is the unit price including tax.
func (i *LineItem) PriceWithTax() money.Money {
	return plus(i.price, i.Tax())
}

// Subtotal is the price of the whole line without tax.
func (i *LineItem) Subtotal() money.Money {
	return i.price.Multiply(i.quantity())
}

// Total is the price of the whole line including tax.
func (i *LineItem) Total() money.Money {
	return i.PriceWithTax().Multiply(i.quantity())
}

// TaxTotal is the tax of the whole line.
func (i *LineItem) TaxTotal() money.Money {
	return i.Tax().Multiply(i.quantity())
}

func (i *LineItem) quantity() decimal.Decimal {
	if !i.qty.Valid {
		return decimal.Zero
	}
	return i.qty.Decimal
}

// SetQuantity replaces the quantity. qty may be any Go number, a decimal or a numeric
// string; empty, zero, negative and non-numeric values are rejected and leave the
// current quantity untouched, as are quantities whose line total would not fit in
// int64 minor units.
func (i *LineItem) SetQuantity(qty any) error {
	parsed, err := parseQuantity(qty)
	if err != nil {
		return err
	}
	if err := lineTotalFits(i.price, i.taxRate, parsed); err != nil {
		return err
	}
	i.qty = decimal.NullDecimal{Decimal: parsed, Valid: true}
	return nil
}

// SetTaxRate sets the tax rate in percent.
func (i *LineItem) SetTaxRate(rate decimal.Decimal) *LineItem {
	i.taxRate = rate
	return i
}

// SetSaved marks the item as moved to (or back from) the saved-for-later area.
func (i *LineItem) SetSaved(saved bool) *LineItem {
	i.saved = saved
	return i
}

// Associate records the product type used by Model to look the product up again.
func (i *LineItem) Associate(productType string) *LineItem {
	i.associatedType = productType
	return i
}

// AssociateProduct associates the item with the type of the given product.
func (i *LineItem) AssociateProduct(product Typed) *LineItem {
	return i.Associate(product.ProductType())
}

// UpdateFromBuyable refreshes id, name and price from item, passing the current options.
// The row id is recomputed so a changed identifier never leaves a stale key behind.
func (i *LineItem) UpdateFromBuyable(item Buyable) error {
	id, err := normalizeID(item.BuyableIdentifier(i.options))
	if err != nil {
		return err
	}
	name := item.BuyableDescription(i.options)
	if name == "" {
		return ErrInvalidName
	}
	price := item.BuyablePrice(i.options)
	if !price.IsValid() {
		return ErrInvalidPrice
	}

	i.id = id
	i.name = name
	i.price = price
	i.rowID = GenerateRowID(i.id, i.options)
	return nil
}

// UpdateFromAttributes applies a partial update. Every supplied attribute is validated
// before anything changes; the row id is recomputed from the resulting id and options.
func (i *LineItem) UpdateFromAttributes(attrs Attributes) error {
	id := i.id
	if raw, ok := attrs.lookup(AttrID); ok {
		normalized, err := normalizeID(raw)
		if err != nil {
			return err
		}
		id = normalized
	}
	qty := i.qty
	if raw, ok := attrs.lookup(AttrQty); ok {
		parsed, err := parseQuantity(raw)
		if err != nil {
			return err
		}
		qty = decimal.NullDecimal{Decimal: parsed, Valid: true}
	}
	name, err := attrs.name(i.name)
	if err != nil {
		return err
	}
	price, err := attrs.price(i.price)
	if err != nil {
		return err
	}
	options, err := attrs.options(i.options)
	if err != nil {
		return err
	}
	if qty.Valid {
		if err := lineTotalFits(price, i.taxRate, qty.Decimal); err != nil {
			return err
		}
	}

	i.id = id
	i.qty = qty
	i.name = name
	i.price = price
	i.options = options
	i.rowID = GenerateRowID(i.id, i.options)
	return nil
}

// Model resolves the live product through lookup. It returns (nil, nil) when no product
// type has been associated.
func (i *LineItem) Model(ctx context.Context, lookup ProductLookup) (Buyable, error) {
	if i.associatedType == "" || lookup == nil {
		return nil, nil
	}
	return lookup.FindByID(ctx, i.associatedType, i.id)
}

// Clone returns an independent copy.
func (i *LineItem) Clone() *LineItem {
	clone := *i
	return &clone
}

// ToMap exports the item using the wire field names.
func (i *LineItem) ToMap() map[string]any {
	var qty any
	if i.qty.Valid {
		qty = i.qty.Decimal
	}
	return map[string]any{
		"rowId":    i.rowID,
		"id":       i.id,
		"name":     i.name,
		"qty":      qty,
		"price":    i.price,
		"options":  i.options.ToMap(),
		"tax":      i.Tax(),
		"isSaved":  i.saved,
		"subtotal": i.Subtotal(),
	}
}

// wireItem fixes the field order of the serialized representation.
type wireItem struct {
	RowID    string      `json:"rowId"`
	ID       any         `json:"id"`
	Name     string      `json:"name"`
	Qty      any         `json:"qty"`
	Price    money.Money `json:"price"`
	Options  Options     `json:"options"`
	Tax      money.Money `json:"tax"`
	IsSaved  bool        `json:"isSaved"`
	Subtotal money.Money `json:"subtotal"`
}

// MarshalJSON renders the wire representation consumed by session stores and API clients.
func (i *LineItem) MarshalJSON() ([]byte, error) {
	var qty any
	if i.qty.Valid {
		qty = json.Number(i.qty.Decimal.String())
	}
	return marshalNoEscape(wireItem{
		RowID:    i.rowID,
		ID:       i.id,
		Name:     i.name,
		Qty:      qty,
		Price:    i.price,
		Options:  i.options,
		Tax:      i.Tax(),
		IsSaved:  i.saved,
		Subtotal: i.Subtotal(),
	})
}

// ToJSON returns the wire representation as text.
func (i *LineItem) ToJSON() (string, error) {
	raw, err := i.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// lineTotalFits reports money.ErrAmountOverflow when the taxed line total of qty units
// at price would leave the int64 range.
func lineTotalFits(price money.Money, taxRate, qty decimal.Decimal) error {
	tax, err := price.MultiplyChecked(taxRate.Div(hundred))
	if err != nil {
		return err
	}
	withTax, err := price.Add(tax)
	if err != nil {
		return err
	}
	_, err = withTax.MultiplyChecked(qty)
	return err
}

// plus adds two amounts known to share a currency.
func plus(a, b money.Money) money.Money {
	return money.MustNew(a.Amount()+b.Amount(), a.Currency())
}
