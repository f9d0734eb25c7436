package cart

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/shoppingcart/api/responses"
	"github.com/angelmondragon/shoppingcart/api/validators"
	cartsvc "github.com/angelmondragon/shoppingcart/internal/cart"
	pkgerrors "github.com/angelmondragon/shoppingcart/pkg/errors"
	"github.com/angelmondragon/shoppingcart/pkg/logger"
)

const maxIdentifierLen = 191

var errServiceUnavailable = pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")

// CartFetch returns the content and totals of a cart instance.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		instance := instanceParam(r)
		content, err := svc.Content(r.Context(), instance)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(instance, content))
	}
}

// CartAddItem adds a line item, merging quantities when the row already exists.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}

		var payload AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var (
			item *cartsvc.LineItem
			err  error
		)
		if payload.isBuyable() {
			item, err = svc.AddBuyable(r.Context(), instanceParam(r), payload.toAddBuyableInput())
		} else {
			item, err = svc.AddItem(r.Context(), instanceParam(r), payload.toAddItemInput())
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// CartUpdateItem applies a partial update. A quantity of zero or less removes the row
// and answers 204.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}

		var payload UpdateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		attrs, err := payload.toAttributes()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateItem(r.Context(), instanceParam(r), chi.URLParam(r, "rowId"), attrs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if item == nil {
			responses.WriteNoContent(w)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// CartRefreshItem reloads id, name and price of an associated row from the catalog.
func CartRefreshItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		item, err := svc.RefreshItem(r.Context(), instanceParam(r), chi.URLParam(r, "rowId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		if err := svc.RemoveItem(r.Context(), instanceParam(r), chi.URLParam(r, "rowId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// CartSetSaved moves a row in or out of the saved-for-later list.
func CartSetSaved(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}

		var payload SetSavedRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.SetSaved(r.Context(), instanceParam(r), chi.URLParam(r, "rowId"), *payload.Saved)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func CartDestroy(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		if err := svc.Destroy(r.Context(), instanceParam(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// CartStore persists the instance under the identifier path parameter.
func CartStore(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		identifier, err := validators.PathIdentifier(chi.URLParam(r, "identifier"), maxIdentifierLen)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.StoreFor(r.Context(), instanceParam(r), identifier); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// CartRestore merges the copy stored under identifier into the instance.
func CartRestore(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		instance := instanceParam(r)
		identifier, err := validators.PathIdentifier(chi.URLParam(r, "identifier"), maxIdentifierLen)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		content, err := svc.RestoreFor(r.Context(), instance, identifier)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(instance, content))
	}
}

func instanceParam(r *http.Request) string {
	instance := strings.TrimSpace(chi.URLParam(r, "instance"))
	if instance == "" {
		return cartsvc.DefaultInstance
	}
	return instance
}
