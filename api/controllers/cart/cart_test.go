package cart

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/shoppingcart/api/responses"
	cartsvc "github.com/angelmondragon/shoppingcart/internal/cart"
	"github.com/angelmondragon/shoppingcart/pkg/enums"
	pkgerrors "github.com/angelmondragon/shoppingcart/pkg/errors"
	"github.com/angelmondragon/shoppingcart/pkg/logger"
)

const someItemRowID = "07d5da5550494c62daf9993cf954303f"

const someItemBody = `{"id":1,"name":"Some item","qty":2,"price":{"amount":"1000","currency":"USD"},"options":{"size":"XL","color":"red"}}`

func newTestService(t *testing.T) cartsvc.Service {
	t.Helper()
	svc, err := cartsvc.NewService(cartsvc.ServiceParams{
		Store:    cartsvc.NewMemoryStore(),
		Logger:   testLogger(),
		Currency: enums.CurrencyUSD,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: "debug", Output: io.Discard})
}

func serve(handler http.HandlerFunc, method, target, body string, params map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) responses.APIError {
	t.Helper()
	var envelope responses.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error
}

func TestCartAddItemAndFetch(t *testing.T) {
	svc := newTestService(t)
	logg := testLogger()
	params := map[string]string{"instance": "default"}

	rec := serve(CartAddItem(svc, logg), http.MethodPost, "/carts/default/items", someItemBody, params)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	var item map[string]any
	decodeData(t, rec, &item)
	if item["rowId"] != someItemRowID {
		t.Fatalf("unexpected row id %v", item["rowId"])
	}
	subtotal, ok := item["subtotal"].(map[string]any)
	if !ok || subtotal["amount"] != "2000" {
		t.Fatalf("unexpected subtotal in item payload: %v", item["subtotal"])
	}

	rec = serve(CartFetch(svc, logg), http.MethodGet, "/carts/default", "", params)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var cart struct {
		Instance      string           `json:"instance"`
		Currency      string           `json:"currency"`
		Items         []map[string]any `json:"items"`
		SavedForLater []string         `json:"savedForLater"`
		Count         string           `json:"count"`
		Total         struct {
			Amount   string `json:"amount"`
			Currency string `json:"currency"`
		} `json:"total"`
	}
	decodeData(t, rec, &cart)
	if cart.Instance != "default" || cart.Currency != "USD" {
		t.Fatalf("unexpected cart header %+v", cart)
	}
	if len(cart.Items) != 1 || cart.Count != "2" {
		t.Fatalf("unexpected items %+v", cart)
	}
	if cart.Total.Amount != "2000" {
		t.Fatalf("unexpected total %+v", cart.Total)
	}
	if len(cart.SavedForLater) != 0 {
		t.Fatalf("expected nothing saved for later, got %v", cart.SavedForLater)
	}
}

func TestCartAddItemValidation(t *testing.T) {
	svc := newTestService(t)
	params := map[string]string{"instance": "default"}

	cases := map[string]string{
		"missing price":    `{"id":1,"name":"Some item"}`,
		"unknown field":    `{"id":1,"name":"x","price":{"amount":"1","currency":"USD"},"color":"red"}`,
		"bad options":      `{"id":1,"name":"x","price":{"amount":"1","currency":"USD"},"options":["a"]}`,
		"product id":       `{"productType":"product"}`,
		"malformed":        `{"id":`,
		"invalid currency": `{"id":1,"name":"x","price":{"amount":"1","currency":"XXX"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serve(CartAddItem(svc, nil), http.MethodPost, "/carts/default/items", body, params)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d: %s", rec.Code, rec.Body.String())
			}
			if code := decodeError(t, rec).Code; code != string(pkgerrors.CodeValidation) {
				t.Fatalf("unexpected code %s", code)
			}
		})
	}

	rec := serve(CartAddItem(svc, nil), http.MethodPost, "/carts/default/items",
		`{"id":1,"name":"x","qty":-1,"price":{"amount":"1","currency":"USD"}}`, params)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative qty got %d", rec.Code)
	}
	if code := decodeError(t, rec).Code; code != string(pkgerrors.CodeInvalidArgument) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestCartAddItemCurrencyConflict(t *testing.T) {
	svc := newTestService(t)
	rec := serve(CartAddItem(svc, nil), http.MethodPost, "/carts/default/items",
		`{"id":1,"name":"x","price":{"amount":"1","currency":"EUR"}}`, map[string]string{"instance": "default"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
}

func TestCartAddBuyableWithoutCatalog(t *testing.T) {
	svc := newTestService(t)
	rec := serve(CartAddItem(svc, nil), http.MethodPost, "/carts/default/items",
		`{"productType":"product","productId":1,"qty":1}`, map[string]string{"instance": "default"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}

func TestCartUpdateItem(t *testing.T) {
	svc := newTestService(t)
	params := map[string]string{"instance": "default", "rowId": someItemRowID}
	serve(CartAddItem(svc, nil), http.MethodPost, "/carts/default/items", someItemBody, params)

	rec := serve(CartUpdateItem(svc, nil), http.MethodPatch, "/carts/default/items/"+someItemRowID, `{"qty":5,"name":"Renamed"}`, params)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var item map[string]any
	decodeData(t, rec, &item)
	if item["rowId"] != someItemRowID || item["name"] != "Renamed" {
		t.Fatalf("unexpected item %v", item)
	}

	rec = serve(CartUpdateItem(svc, nil), http.MethodPatch, "/carts/default/items/"+someItemRowID, `{}`, params)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty patch got %d", rec.Code)
	}

	rec = serve(CartUpdateItem(svc, nil), http.MethodPatch, "/carts/default/items/"+someItemRowID, `{"qty":0}`, params)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on removal got %d", rec.Code)
	}

	rec = serve(CartUpdateItem(svc, nil), http.MethodPatch, "/carts/default/items/"+someItemRowID, `{"qty":1}`, params)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for removed row got %d", rec.Code)
	}
}

func TestCartRemoveSaveAndDestroy(t *testing.T) {
	svc := newTestService(t)
	params := map[string]string{"instance": "wishlist", "rowId": someItemRowID}
	serve(CartAddItem(svc, nil), http.MethodPost, "/carts/wishlist/items", someItemBody, params)

	rec := serve(CartSetSaved(svc, nil), http.MethodPost, "/carts/wishlist/items/"+someItemRowID+"/saved", `{"saved":true}`, params)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	rec = serve(CartSetSaved(svc, nil), http.MethodPost, "/carts/wishlist/items/"+someItemRowID+"/saved", `{}`, params)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without saved flag got %d", rec.Code)
	}

	rec = serve(CartFetch(svc, nil), http.MethodGet, "/carts/wishlist", "", params)
	body := rec.Body.String()
	if !strings.Contains(body, `"savedForLater":["`+someItemRowID+`"]`) {
		t.Fatalf("expected saved row in payload: %s", body)
	}

	rec = serve(CartRemoveItem(svc, nil), http.MethodDelete, "/carts/wishlist/items/"+someItemRowID, "", params)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rec.Code)
	}
	rec = serve(CartRemoveItem(svc, nil), http.MethodDelete, "/carts/wishlist/items/"+someItemRowID, "", params)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}

	serve(CartAddItem(svc, nil), http.MethodPost, "/carts/wishlist/items", someItemBody, params)
	rec = serve(CartDestroy(svc, nil), http.MethodDelete, "/carts/wishlist", "", params)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rec.Code)
	}
	content, err := svc.Content(context.Background(), "wishlist")
	if err != nil || content.Len() != 0 {
		t.Fatalf("expected empty cart after destroy, got %v (%v)", content, err)
	}
}

func TestCartInvalidInstance(t *testing.T) {
	svc := newTestService(t)
	rec := serve(CartFetch(svc, nil), http.MethodGet, "/carts/a:b", "", map[string]string{"instance": "a:b"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCartStoreWithoutRepository(t *testing.T) {
	svc := newTestService(t)
	params := map[string]string{"instance": "default", "identifier": "user-1"}
	rec := serve(CartStore(svc, nil), http.MethodPost, "/carts/default/store/user-1", "", params)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
	rec = serve(CartRestore(svc, nil), http.MethodPost, "/carts/default/restore/user-1", "", params)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}

func TestCartHandlersWithoutService(t *testing.T) {
	rec := serve(CartFetch(nil, nil), http.MethodGet, "/carts/default", "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}
