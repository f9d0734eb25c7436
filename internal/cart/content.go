package cart

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shoppingcart/pkg/enums"
	pkgerrors "github.com/angelmondragon/shoppingcart/pkg/errors"
	"github.com/angelmondragon/shoppingcart/pkg/money"
)

// Content is the set of line items of one cart instance, keyed by row id and kept in
// insertion order. A cart holds a single currency. Content is not safe for concurrent use.
type Content struct {
	currency enums.Currency
	rows     []string
	items    map[string]*LineItem
}

// Totals aggregates the items that are not saved for later.
type Totals struct {
	Subtotal money.Money `json:"subtotal"`
	Tax      money.Money `json:"tax"`
	Total    money.Money `json:"total"`
}

// NewContent returns an empty cart content priced in currency.
func NewContent(currency enums.Currency) *Content {
	return &Content{currency: currency, items: map[string]*LineItem{}}
}

func (c *Content) Currency() enums.Currency { return c.currency }

// Add stores item under its row id. When the row already exists the quantities are
// merged and the existing item is returned. An item without quantity counts as one.
func (c *Content) Add(item *LineItem) (*LineItem, error) {
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidArgument, "line item is required")
	}
	if err := c.checkCurrency(item); err != nil {
		return nil, err
	}
	qty, ok := item.Quantity()
	if !ok {
		qty = decimal.NewFromInt(1)
	}

	if existing, found := c.items[item.RowID()]; found {
		current, _ := existing.Quantity()
		if err := existing.SetQuantity(current.Add(qty)); err != nil {
			return nil, err
		}
		return existing, nil
	}

	stored := item.Clone()
	if err := stored.SetQuantity(qty); err != nil {
		return nil, err
	}
	c.rows = append(c.rows, stored.RowID())
	c.items[stored.RowID()] = stored
	return stored, nil
}

// Get returns the item stored under rowID.
func (c *Content) Get(rowID string) (*LineItem, error) {
	item, ok := c.items[rowID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("the cart does not contain rowId %s", rowID))
	}
	return item, nil
}

func (c *Content) Has(rowID string) bool {
	_, ok := c.items[rowID]
	return ok
}

// UpdateQuantity sets the quantity of a row. A quantity of zero or less removes the row,
// in which case the returned item is nil.
func (c *Content) UpdateQuantity(rowID string, qty any) (*LineItem, error) {
	return c.Update(rowID, Attributes{AttrQty: qty})
}

// Update applies attrs to a row. When the row id changes the row is re-keyed in place,
// or merged into an existing row with the same new id. A non-positive qty removes the row.
func (c *Content) Update(rowID string, attrs Attributes) (*LineItem, error) {
	item, err := c.Get(rowID)
	if err != nil {
		return nil, err
	}

	if raw, ok := attrs.lookup(AttrQty); ok {
		if qty, err := toDecimal(raw); err == nil && !qty.IsPositive() {
			return nil, c.Remove(rowID)
		}
	}

	updated := item.Clone()
	if err := updated.UpdateFromAttributes(attrs); err != nil {
		return nil, err
	}
	return c.replace(rowID, updated)
}

// UpdateFromBuyable refreshes a row from a Buyable.
func (c *Content) UpdateFromBuyable(rowID string, product Buyable) (*LineItem, error) {
	item, err := c.Get(rowID)
	if err != nil {
		return nil, err
	}
	updated := item.Clone()
	if err := updated.UpdateFromBuyable(product); err != nil {
		return nil, err
	}
	return c.replace(rowID, updated)
}

func (c *Content) replace(oldRowID string, updated *LineItem) (*LineItem, error) {
	if err := c.checkCurrency(updated); err != nil {
		return nil, err
	}
	newRowID := updated.RowID()
	if newRowID == oldRowID {
		c.items[oldRowID] = updated
		return updated, nil
	}

	if existing, found := c.items[newRowID]; found {
		current, _ := existing.Quantity()
		extra, _ := updated.Quantity()
		if err := existing.SetQuantity(current.Add(extra)); err != nil {
			return nil, err
		}
		if err := c.Remove(oldRowID); err != nil {
			return nil, err
		}
		return existing, nil
	}

	for i, id := range c.rows {
		if id == oldRowID {
			c.rows[i] = newRowID
			break
		}
	}
	delete(c.items, oldRowID)
	c.items[newRowID] = updated
	return updated, nil
}

// Remove deletes a row.
func (c *Content) Remove(rowID string) error {
	if _, err := c.Get(rowID); err != nil {
		return err
	}
	delete(c.items, rowID)
	for i, id := range c.rows {
		if id == rowID {
			c.rows = append(c.rows[:i], c.rows[i+1:]...)
			break
		}
	}
	return nil
}

// Items returns the rows in insertion order.
func (c *Content) Items() []*LineItem {
	out := make([]*LineItem, 0, len(c.rows))
	for _, id := range c.rows {
		out = append(out, c.items[id])
	}
	return out
}

// Search returns the rows matching fn.
func (c *Content) Search(fn func(*LineItem) bool) []*LineItem {
	var out []*LineItem
	for _, item := range c.Items() {
		if fn(item) {
			out = append(out, item)
		}
	}
	return out
}

// SavedForLater returns the rows flagged as saved.
func (c *Content) SavedForLater() []*LineItem {
	return c.Search(func(item *LineItem) bool { return item.IsSaved() })
}

// Len returns the number of rows.
func (c *Content) Len() int {
	return len(c.rows)
}

// Count returns the summed quantity of all rows.
func (c *Content) Count() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items() {
		total = total.Add(item.quantity())
	}
	return total
}

// Totals sums subtotal, tax and total over the rows not saved for later.
func (c *Content) Totals() Totals {
	var subtotal, tax, total int64
	for _, item := range c.Items() {
		if item.IsSaved() {
			continue
		}
		subtotal += item.Subtotal().Amount()
		tax += item.TaxTotal().Amount()
		total += item.Total().Amount()
	}
	return Totals{
		Subtotal: money.MustNew(subtotal, c.currency),
		Tax:      money.MustNew(tax, c.currency),
		Total:    money.MustNew(total, c.currency),
	}
}

func (c *Content) checkCurrency(item *LineItem) error {
	if item.Price().Currency() != c.currency {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("cart is priced in %s, item is priced in %s", c.currency, item.Price().Currency())).
			WithDetails(map[string]any{"cart_currency": c.currency, "item_currency": item.Price().Currency()})
	}
	return nil
}

// itemRecord is the storage form of a line item. Unlike the wire form it keeps the tax
// rate and the associated product type.
type itemRecord struct {
	RowID          string           `json:"rowId"`
	ID             any              `json:"id"`
	Name           string           `json:"name"`
	Qty            *decimal.Decimal `json:"qty"`
	Price          money.Money      `json:"price"`
	Options        Options          `json:"options"`
	TaxRate        decimal.Decimal  `json:"taxRate"`
	IsSaved        bool             `json:"isSaved"`
	AssociatedType string           `json:"associatedType,omitempty"`
}

type contentRecord struct {
	Currency enums.Currency `json:"currency"`
	Items    []itemRecord   `json:"items"`
}

func newItemRecord(item *LineItem) itemRecord {
	rec := itemRecord{
		RowID:          item.rowID,
		ID:             item.id,
		Name:           item.name,
		Price:          item.price,
		Options:        item.options,
		TaxRate:        item.taxRate,
		IsSaved:        item.saved,
		AssociatedType: item.associatedType,
	}
	if item.qty.Valid {
		qty := item.qty.Decimal
		rec.Qty = &qty
	}
	return rec
}

func (r itemRecord) toLineItem() (*LineItem, error) {
	item, err := New(r.ID, r.Name, r.Price, r.Options)
	if err != nil {
		return nil, err
	}
	if r.Qty != nil {
		if err := item.SetQuantity(*r.Qty); err != nil {
			return nil, err
		}
	}
	item.SetTaxRate(r.TaxRate).SetSaved(r.IsSaved).Associate(r.AssociatedType)
	return item, nil
}

// MarshalJSON encodes the content in its storage form.
func (c *Content) MarshalJSON() ([]byte, error) {
	rec := contentRecord{Currency: c.currency, Items: make([]itemRecord, 0, len(c.rows))}
	for _, item := range c.Items() {
		rec.Items = append(rec.Items, newItemRecord(item))
	}
	return marshalNoEscape(rec)
}

// UnmarshalJSON decodes the storage form. Row ids are recomputed rather than trusted.
func (c *Content) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec contentRecord
	if err := dec.Decode(&rec); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInvalidArgument, err, "invalid cart content payload")
	}
	if !rec.Currency.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInvalidArgument, fmt.Sprintf("invalid cart currency %q", rec.Currency))
	}

	restored := NewContent(rec.Currency)
	for _, r := range rec.Items {
		item, err := r.toLineItem()
		if err != nil {
			return err
		}
		if _, err := restored.Add(item); err != nil {
			return err
		}
	}
	*c = *restored
	return nil
}
