package cart

import (
	pkgerrors "github.com/angelmondragon/shoppingcart/pkg/errors"
	"github.com/angelmondragon/shoppingcart/pkg/money"
)

// Attribute keys understood by FromAttributes and UpdateFromAttributes.
const (
	AttrID      = "id"
	AttrName    = "name"
	AttrQty     = "qty"
	AttrPrice   = "price"
	AttrOptions = "options"
)

// Attributes is a plain attribute mapping used to build or partially update a line item.
// Absent keys keep their current value.
type Attributes map[string]any

func (a Attributes) lookup(key string) (any, bool) {
	if a == nil {
		return nil, false
	}
	v, ok := a[key]
	return v, ok
}

func (a Attributes) name(fallback string) (string, error) {
	v, ok := a.lookup(AttrName)
	if !ok {
		return fallback, nil
	}
	name, isString := v.(string)
	if !isString || name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}

func (a Attributes) price(fallback money.Money) (money.Money, error) {
	v, ok := a.lookup(AttrPrice)
	if !ok {
		return fallback, nil
	}
	var price money.Money
	switch p := v.(type) {
	case money.Money:
		price = p
	case *money.Money:
		if p == nil {
			return money.Money{}, ErrInvalidPrice
		}
		price = *p
	default:
		return money.Money{}, ErrInvalidPrice
	}
	if !price.IsValid() {
		return money.Money{}, ErrInvalidPrice
	}
	return price, nil
}

func (a Attributes) options(fallback Options) (Options, error) {
	v, ok := a.lookup(AttrOptions)
	if !ok || v == nil {
		return fallback, nil
	}
	switch o := v.(type) {
	case Options:
		return o, nil
	case []Option:
		return NewOptions(o...)
	case map[string]any:
		return OptionsFromMap(o)
	default:
		return Options{}, pkgerrors.New(pkgerrors.CodeInvalidArgument, "options must be a key/value mapping")
	}
}
