package cart

import (
	"github.com/shopspring/decimal"

	cartsvc "github.com/angelmondragon/shoppingcart/internal/cart"
	"github.com/angelmondragon/shoppingcart/pkg/enums"
	"github.com/angelmondragon/shoppingcart/pkg/money"
)

// CartResponse is the public view of a cart instance. Items use the line item JSON
// shape; SavedForLater lists the row ids excluded from the totals.
type CartResponse struct {
	Instance      string              `json:"instance"`
	Currency      enums.Currency      `json:"currency"`
	Items         []*cartsvc.LineItem `json:"items"`
	SavedForLater []string            `json:"savedForLater"`
	Count         decimal.Decimal     `json:"count"`
	Subtotal      money.Money         `json:"subtotal"`
	Tax           money.Money         `json:"tax"`
	Total         money.Money         `json:"total"`
}

func newCartResponse(instance string, content *cartsvc.Content) CartResponse {
	totals := content.Totals()
	saved := []string{}
	for _, item := range content.SavedForLater() {
		saved = append(saved, item.RowID())
	}
	items := content.Items()
	if items == nil {
		items = []*cartsvc.LineItem{}
	}
	return CartResponse{
		Instance:      instance,
		Currency:      content.Currency(),
		Items:         items,
		SavedForLater: saved,
		Count:         content.Count(),
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
	}
}
