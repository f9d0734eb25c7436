package product

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/angelmondragon/shoppingcart/internal/cart"
	"github.com/angelmondragon/shoppingcart/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shoppingcart/pkg/errors"
	"github.com/angelmondragon/shoppingcart/pkg/money"
)

// ProductType tags line items that were built from catalog products.
const ProductType = "product"

// Buyable adapts a catalog product to the cart.
type Buyable struct {
	product models.Product
}

func NewBuyable(product models.Product) *Buyable {
	return &Buyable{product: product}
}

func (b *Buyable) BuyableIdentifier(cart.Options) any { return b.product.ID }

func (b *Buyable) BuyableDescription(cart.Options) string { return b.product.Name }

func (b *Buyable) BuyablePrice(cart.Options) money.Money {
	price, err := money.New(b.product.PriceCents, b.product.Currency)
	if err != nil {
		return money.Money{}
	}
	return price
}

func (b *Buyable) ProductType() string { return ProductType }

// Product returns the underlying catalog row.
func (b *Buyable) Product() models.Product { return b.product }

type productFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Product, error)
}

// Catalog resolves line item identifiers back to catalog products.
type Catalog struct {
	repo productFinder
}

func NewCatalog(repo productFinder) *Catalog {
	return &Catalog{repo: repo}
}

// FindByID implements cart.ProductLookup.
func (c *Catalog) FindByID(ctx context.Context, productType string, id any) (cart.Buyable, error) {
	if productType != ProductType {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unknown product type %q", productType))
	}
	productID, err := parseProductID(id)
	if err != nil {
		return nil, err
	}
	product, err := c.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return NewBuyable(*product), nil
}

func parseProductID(id any) (int64, error) {
	var (
		parsed int64
		err    error
	)
	switch v := id.(type) {
	case int64:
		parsed = v
	case int:
		parsed = int64(v)
	case int32:
		parsed = int64(v)
	case float64:
		parsed = int64(v)
		if float64(parsed) != v {
			err = fmt.Errorf("non-integral id %v", v)
		}
	case json.Number:
		parsed, err = v.Int64()
	case string:
		parsed, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		err = fmt.Errorf("unsupported id type %T", id)
	}
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInvalidArgument, err, "invalid product id")
	}
	if parsed <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidArgument, "invalid product id")
	}
	return parsed, nil
}
