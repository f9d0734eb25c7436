package cart

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shoppingcart/pkg/db"
	"github.com/angelmondragon/shoppingcart/pkg/enums"
	pkgerrors "github.com/angelmondragon/shoppingcart/pkg/errors"
	"github.com/angelmondragon/shoppingcart/pkg/logger"
	"github.com/angelmondragon/shoppingcart/pkg/metrics"
	"github.com/angelmondragon/shoppingcart/pkg/money"
)

type serviceFixture struct {
	svc      Service
	store    *MemoryStore
	registry *prometheus.Registry
	logs     *bytes.Buffer
	lookup   *stubLookup
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	conn := openStoredCartDB(t)
	store := NewMemoryStore()
	registry := prometheus.NewRegistry()
	logs := &bytes.Buffer{}
	lookup := &stubLookup{products: map[string]Buyable{
		"1": &stubBuyable{id: int64(1), name: "Catalog item", price: usd(1000)},
	}}

	svc, err := NewService(ServiceParams{
		Store:      store,
		Repository: NewRepository(conn),
		Tx:         db.NewWithDB(conn),
		Products:   lookup,
		Logger:     logger.New(logger.Options{ServiceName: "cart-test", Output: logs}),
		Metrics:    metrics.NewCartMetrics(registry),
		Currency:   enums.CurrencyUSD,
		TaxRate:    decimal.NewFromInt(21),
	})
	require.NoError(t, err)
	return serviceFixture{svc: svc, store: store, registry: registry, logs: logs, lookup: lookup}
}

func TestNewServiceValidatesParams(t *testing.T) {
	logg := logger.New(logger.Options{Output: io.Discard})

	_, err := NewService(ServiceParams{Logger: logg, Currency: enums.CurrencyUSD})
	assert.Error(t, err, "store is required")

	_, err = NewService(ServiceParams{Store: NewMemoryStore(), Currency: enums.CurrencyUSD})
	assert.Error(t, err, "logger is required")

	_, err = NewService(ServiceParams{Store: NewMemoryStore(), Logger: logg, Currency: "XXX"})
	assert.Error(t, err)

	_, err = NewService(ServiceParams{Store: NewMemoryStore(), Logger: logg, Currency: enums.CurrencyUSD, Repository: NewRepository(nil)})
	assert.Error(t, err, "repository without tx runner")

	_, err = NewService(ServiceParams{Store: NewMemoryStore(), Logger: logg, Currency: enums.CurrencyUSD, TaxRate: decimal.NewFromInt(-1)})
	assert.Error(t, err)
}

func TestServiceAddItemPersistsAndMerges(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	input := AddItemInput{ID: 1, Name: "Some item", Qty: 2, Price: usd(1000), Options: sizeColor()}

	item, err := f.svc.AddItem(ctx, "", input)
	require.NoError(t, err)
	assert.Equal(t, someItemRowID, item.RowID())
	assert.Equal(t, "21", item.TaxRate().String(), "default tax rate applies")

	_, err = f.svc.AddItem(ctx, DefaultInstance, input)
	require.NoError(t, err)

	content, err := f.svc.Content(ctx, DefaultInstance)
	require.NoError(t, err)
	require.Equal(t, 1, content.Len())
	qty, _ := content.Items()[0].Quantity()
	assert.Equal(t, "4", qty.String())
	assert.Equal(t, int64(4840), content.Totals().Total.Amount())

	assert.Equal(t, float64(2), counterTotal(t, f.registry, "cart_items_added_total"))
	assert.Contains(t, f.logs.String(), `"cart_instance":"default"`)
	assert.Contains(t, f.logs.String(), someItemRowID)
}

func TestServiceAddItemTaxOverride(t *testing.T) {
	f := newServiceFixture(t)
	zero := decimal.Zero

	item, err := f.svc.AddItem(context.Background(), "default", AddItemInput{ID: "gift", Name: "Gift card", Price: usd(500), TaxRate: &zero})
	require.NoError(t, err)
	assert.True(t, item.TaxRate().IsZero())
	qty, _ := item.Quantity()
	assert.Equal(t, "1", qty.String())

	negative := decimal.NewFromInt(-5)
	_, err = f.svc.AddItem(context.Background(), "default", AddItemInput{ID: "gift", Name: "Gift card", Price: usd(500), TaxRate: &negative})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidArgument))
}

func TestServiceAddItemFailuresAreCounted(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "default", AddItemInput{ID: "", Name: "x", Price: usd(1)})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = f.svc.AddItem(ctx, "default", AddItemInput{ID: 1, Name: "x", Price: usd(1), Qty: "zero"})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.svc.AddItem(ctx, "default", AddItemInput{ID: 1, Name: "x", Price: money.MustNew(1, enums.CurrencyEUR)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = f.svc.AddItem(ctx, "bad:instance", AddItemInput{ID: 1, Name: "x", Price: usd(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	failures := labeledCounter(t, f.registry, "cart_operation_failures_total", "operation", "add_item")
	assert.Equal(t, float64(4), failures)
	assert.Contains(t, f.logs.String(), "cart operation rejected")
}

func TestServiceAddBuyableAssociatesProduct(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	item, err := f.svc.AddBuyable(ctx, "default", AddBuyableInput{ProductType: "stub", ProductID: 1, Qty: 3})
	require.NoError(t, err)
	assert.Equal(t, "Catalog item", item.Name())
	assert.Equal(t, "stub", item.AssociatedType())
	assert.Equal(t, "stub", f.lookup.lastType)

	_, err = f.svc.AddBuyable(ctx, "default", AddBuyableInput{ProductType: "stub", ProductID: 99})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.AddBuyable(ctx, "default", AddBuyableInput{ProductID: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestServiceRefreshItemUsesCatalog(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	item, err := f.svc.AddBuyable(ctx, "default", AddBuyableInput{ProductType: "stub", ProductID: 1, Qty: 1})
	require.NoError(t, err)

	f.lookup.products["1"] = &stubBuyable{id: int64(1), name: "Renamed", price: usd(1200)}
	refreshed, err := f.svc.RefreshItem(ctx, "default", item.RowID())
	require.NoError(t, err)
	assert.Equal(t, "Renamed", refreshed.Name())
	assert.Equal(t, int64(1200), refreshed.Price().Amount())

	plain, err := f.svc.AddItem(ctx, "default", AddItemInput{ID: "loose", Name: "Loose", Price: usd(1)})
	require.NoError(t, err)
	_, err = f.svc.RefreshItem(ctx, "default", plain.RowID())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestServiceUpdateAndRemove(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	item, err := f.svc.AddItem(ctx, "default", AddItemInput{ID: 1, Name: "Some item", Qty: 2, Price: usd(1000), Options: sizeColor()})
	require.NoError(t, err)

	updated, err := f.svc.UpdateItem(ctx, "default", item.RowID(), Attributes{AttrQty: 7})
	require.NoError(t, err)
	assert.Equal(t, item.RowID(), updated.RowID())

	removed, err := f.svc.UpdateItem(ctx, "default", item.RowID(), Attributes{AttrQty: 0})
	require.NoError(t, err)
	assert.Nil(t, removed)

	content, err := f.svc.Content(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, 0, content.Len())

	err = f.svc.RemoveItem(ctx, "default", item.RowID())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	item, err = f.svc.AddItem(ctx, "default", AddItemInput{ID: 1, Name: "Some item", Price: usd(1000)})
	require.NoError(t, err)
	require.NoError(t, f.svc.RemoveItem(ctx, "default", item.RowID()))
	assert.Equal(t, float64(2), counterTotal(t, f.registry, "cart_items_removed_total"))
}

func TestServiceSetSavedExcludesFromTotals(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	item, err := f.svc.AddItem(ctx, "default", AddItemInput{ID: 1, Name: "Some item", Qty: 1, Price: usd(1000)})
	require.NoError(t, err)

	saved, err := f.svc.SetSaved(ctx, "default", item.RowID(), true)
	require.NoError(t, err)
	assert.True(t, saved.IsSaved())

	content, err := f.svc.Content(ctx, "default")
	require.NoError(t, err)
	assert.True(t, content.Totals().Total.IsZero())
	assert.Len(t, content.SavedForLater(), 1)
}

func TestServiceInstancesAreIsolated(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, "default", AddItemInput{ID: 1, Name: "A", Price: usd(1)})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, "wishlist", AddItemInput{ID: 2, Name: "B", Price: usd(1)})
	require.NoError(t, err)

	require.NoError(t, f.svc.Destroy(ctx, "default"))

	content, err := f.svc.Content(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, 0, content.Len())
	wishlist, err := f.svc.Content(ctx, "wishlist")
	require.NoError(t, err)
	assert.Equal(t, 1, wishlist.Len())
}

func TestServiceStoreAndRestore(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, "default", AddItemInput{ID: 1, Name: "Some item", Qty: 2, Price: usd(1000), Options: sizeColor()})
	require.NoError(t, err)

	require.NoError(t, f.svc.StoreFor(ctx, "default", "user-1"))
	err = f.svc.StoreFor(ctx, "default", "user-1")
	assert.ErrorIs(t, err, ErrCartAlreadyStored)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = f.svc.AddItem(ctx, "default", AddItemInput{ID: 1, Name: "Some item", Qty: 1, Price: usd(1000), Options: sizeColor()})
	require.NoError(t, err)

	restored, err := f.svc.RestoreFor(ctx, "default", "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, restored.Len())
	qty, _ := restored.Items()[0].Quantity()
	assert.Equal(t, "5", qty.String(), "stored rows merge into the live cart")

	again, err := f.svc.RestoreFor(ctx, "default", "user-1")
	require.NoError(t, err)
	qty, _ = again.Items()[0].Quantity()
	assert.Equal(t, "5", qty.String(), "the stored copy is consumed by the first restore")

	require.NoError(t, f.svc.StoreFor(ctx, "default", "user-1"), "identifier is free again after restore")

	err = f.svc.StoreFor(ctx, "default", " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestServiceWithoutOptionalDependencies(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Store:    NewMemoryStore(),
		Logger:   logger.New(logger.Options{Output: io.Discard}),
		Currency: enums.CurrencyUSD,
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.AddBuyable(ctx, "default", AddBuyableInput{ProductType: "stub", ProductID: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.True(t, pkgerrors.IsCode(svc.StoreFor(ctx, "default", "user"), pkgerrors.CodeDependency))
	_, err = svc.RestoreFor(ctx, "default", "user")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func counterTotal(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func labeledCounter(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, pair := range m.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
