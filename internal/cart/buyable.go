package cart

import (
	"context"

	"github.com/angelmondragon/shoppingcart/pkg/money"
)

// Buyable is anything that can populate or refresh a line item. Each accessor receives the
// line item's options so prices and descriptions may depend on them.
type Buyable interface {
	BuyableIdentifier(options Options) any
	BuyableDescription(options Options) string
	BuyablePrice(options Options) money.Money
}

// Typed is implemented by products that can name their own product type for association.
type Typed interface {
	ProductType() string
}

// ProductLookup resolves the live product behind a line item from its associated type and id.
type ProductLookup interface {
	FindByID(ctx context.Context, productType string, id any) (Buyable, error)
}
