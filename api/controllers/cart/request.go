package cart

import (
	"github.com/shopspring/decimal"

	cartsvc "github.com/angelmondragon/shoppingcart/internal/cart"
	pkgerrors "github.com/angelmondragon/shoppingcart/pkg/errors"
	"github.com/angelmondragon/shoppingcart/pkg/money"
)

// AddItemRequest adds either a raw line item (id, name, price) or a catalog product
// (productType, productId).
type AddItemRequest struct {
	ID      any              `json:"id" validate:"required_without=ProductType"`
	Name    string           `json:"name" validate:"required_without=ProductType,max=255"`
	Price   *money.Money     `json:"price" validate:"required_without=ProductType"`
	Qty     any              `json:"qty"`
	Options cartsvc.Options  `json:"options"`
	TaxRate *decimal.Decimal `json:"taxRate"`

	ProductType string `json:"productType" validate:"max=64"`
	ProductID   any    `json:"productId" validate:"required_with=ProductType"`
}

func (r AddItemRequest) isBuyable() bool {
	return r.ProductType != ""
}

func (r AddItemRequest) toAddItemInput() cartsvc.AddItemInput {
	input := cartsvc.AddItemInput{
		ID:      r.ID,
		Name:    r.Name,
		Qty:     r.Qty,
		Options: r.Options,
		TaxRate: r.TaxRate,
	}
	if r.Price != nil {
		input.Price = *r.Price
	}
	return input
}

func (r AddItemRequest) toAddBuyableInput() cartsvc.AddBuyableInput {
	return cartsvc.AddBuyableInput{
		ProductType: r.ProductType,
		ProductID:   r.ProductID,
		Qty:         r.Qty,
		Options:     r.Options,
		TaxRate:     r.TaxRate,
	}
}

// UpdateItemRequest carries a partial update. Absent fields keep their value.
type UpdateItemRequest struct {
	ID      any              `json:"id"`
	Name    *string          `json:"name" validate:"omitempty,max=255"`
	Qty     any              `json:"qty"`
	Price   *money.Money     `json:"price"`
	Options *cartsvc.Options `json:"options"`
}

func (r UpdateItemRequest) toAttributes() (cartsvc.Attributes, error) {
	attrs := cartsvc.Attributes{}
	if r.ID != nil {
		attrs[cartsvc.AttrID] = r.ID
	}
	if r.Name != nil {
		attrs[cartsvc.AttrName] = *r.Name
	}
	if r.Qty != nil {
		attrs[cartsvc.AttrQty] = r.Qty
	}
	if r.Price != nil {
		attrs[cartsvc.AttrPrice] = *r.Price
	}
	if r.Options != nil {
		attrs[cartsvc.AttrOptions] = *r.Options
	}
	if len(attrs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one attribute is required")
	}
	return attrs, nil
}

type SetSavedRequest struct {
	Saved *bool `json:"saved" validate:"required"`
}
