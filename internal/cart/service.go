package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shoppingcart/pkg/enums"
	pkgerrors "github.com/angelmondragon/shoppingcart/pkg/errors"
	"github.com/angelmondragon/shoppingcart/pkg/logger"
	"github.com/angelmondragon/shoppingcart/pkg/metrics"
	"github.com/angelmondragon/shoppingcart/pkg/money"
)

const DefaultInstance = "default"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes instance scoped cart operations.
type Service interface {
	Content(ctx context.Context, instance string) (*Content, error)
	AddItem(ctx context.Context, instance string, input AddItemInput) (*LineItem, error)
	AddBuyable(ctx context.Context, instance string, input AddBuyableInput) (*LineItem, error)
	UpdateItem(ctx context.Context, instance, rowID string, attrs Attributes) (*LineItem, error)
	RefreshItem(ctx context.Context, instance, rowID string) (*LineItem, error)
	RemoveItem(ctx context.Context, instance, rowID string) error
	SetSaved(ctx context.Context, instance, rowID string, saved bool) (*LineItem, error)
	Destroy(ctx context.Context, instance string) error
	StoreFor(ctx context.Context, instance, identifier string) error
	RestoreFor(ctx context.Context, instance, identifier string) (*Content, error)
}

// ServiceParams wires the cart service dependencies. Repository, Tx and Products are
// optional; the operations needing them fail with CodeDependency when absent.
type ServiceParams struct {
	Store      Store
	Repository StoredCartRepository
	Tx         txRunner
	Products   ProductLookup
	Logger     *logger.Logger
	Metrics    *metrics.CartMetrics
	Currency   enums.Currency
	TaxRate    decimal.Decimal
}

type service struct {
	store    Store
	repo     StoredCartRepository
	tx       txRunner
	products ProductLookup
	logg     *logger.Logger
	metrics  *metrics.CartMetrics
	currency enums.Currency
	taxRate  decimal.Decimal

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !params.Currency.IsValid() {
		return nil, fmt.Errorf("invalid cart currency %q", params.Currency)
	}
	if params.TaxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate must be non-negative")
	}
	if params.Repository != nil && params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required with a stored cart repository")
	}
	return &service{
		store:    params.Store,
		repo:     params.Repository,
		tx:       params.Tx,
		products: params.Products,
		logg:     params.Logger,
		metrics:  params.Metrics,
		currency: params.Currency,
		taxRate:  params.TaxRate,
		locks:    map[string]*sync.Mutex{},
	}, nil
}

// AddItemInput describes a line item built from raw attributes.
type AddItemInput struct {
	ID      any
	Name    string
	Qty     any
	Price   money.Money
	Options Options
	// TaxRate overrides the configured default when set.
	TaxRate *decimal.Decimal
}

// AddBuyableInput describes a line item resolved from the product catalog.
type AddBuyableInput struct {
	ProductType string
	ProductID   any
	Qty         any
	Options     Options
	TaxRate     *decimal.Decimal
}

func (s *service) Content(ctx context.Context, instance string) (*Content, error) {
	instance, err := normalizeInstance(instance)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, instance)
}

func (s *service) AddItem(ctx context.Context, instance string, input AddItemInput) (*LineItem, error) {
	item, err := New(input.ID, input.Name, input.Price, input.Options)
	if err != nil {
		return nil, s.fail(ctx, "add_item", err)
	}
	return s.add(ctx, "add_item", instance, item, input.Qty, input.TaxRate)
}

func (s *service) AddBuyable(ctx context.Context, instance string, input AddBuyableInput) (*LineItem, error) {
	if s.products == nil {
		return nil, s.fail(ctx, "add_buyable", pkgerrors.New(pkgerrors.CodeDependency, "product catalog not configured"))
	}
	if strings.TrimSpace(input.ProductType) == "" {
		return nil, s.fail(ctx, "add_buyable", pkgerrors.New(pkgerrors.CodeValidation, "product type is required"))
	}
	product, err := s.products.FindByID(ctx, input.ProductType, input.ProductID)
	if err != nil {
		return nil, s.fail(ctx, "add_buyable", err)
	}
	item, err := FromBuyable(product, input.Options)
	if err != nil {
		return nil, s.fail(ctx, "add_buyable", err)
	}
	if typed, ok := product.(Typed); ok {
		item.AssociateProduct(typed)
	} else {
		item.Associate(input.ProductType)
	}
	return s.add(ctx, "add_buyable", instance, item, input.Qty, input.TaxRate)
}

func (s *service) add(ctx context.Context, op, instance string, item *LineItem, qty any, taxRate *decimal.Decimal) (*LineItem, error) {
	instance, err := normalizeInstance(instance)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	if qty != nil {
		if err := item.SetQuantity(qty); err != nil {
			return nil, s.fail(ctx, op, err)
		}
	}
	rate := s.taxRate
	if taxRate != nil {
		if taxRate.IsNegative() {
			return nil, s.fail(ctx, op, pkgerrors.New(pkgerrors.CodeInvalidArgument, "tax rate must be non-negative"))
		}
		rate = *taxRate
	}
	item.SetTaxRate(rate)

	var stored *LineItem
	err = s.mutate(ctx, op, instance, func(content *Content) error {
		var err error
		stored, err = content.Add(item)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncAdded(instance)
	ctx = s.logg.WithRowID(s.logg.WithCartInstance(ctx, instance), stored.RowID())
	s.logg.Info(ctx, "cart item added")
	return stored, nil
}

func (s *service) UpdateItem(ctx context.Context, instance, rowID string, attrs Attributes) (*LineItem, error) {
	instance, err := normalizeInstance(instance)
	if err != nil {
		return nil, s.fail(ctx, "update_item", err)
	}
	var updated *LineItem
	err = s.mutate(ctx, "update_item", instance, func(content *Content) error {
		var err error
		updated, err = content.Update(rowID, attrs)
		return err
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		s.metrics.IncRemoved(instance)
	}
	return updated, nil
}

// RefreshItem re-reads id, name and price of an associated item from the catalog.
func (s *service) RefreshItem(ctx context.Context, instance, rowID string) (*LineItem, error) {
	if s.products == nil {
		return nil, s.fail(ctx, "refresh_item", pkgerrors.New(pkgerrors.CodeDependency, "product catalog not configured"))
	}
	var updated *LineItem
	err := s.mutate(ctx, "refresh_item", instance, func(content *Content) error {
		item, err := content.Get(rowID)
		if err != nil {
			return err
		}
		product, err := item.Model(ctx, s.products)
		if err != nil {
			return err
		}
		if product == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item is not associated with a product type")
		}
		updated, err = content.UpdateFromBuyable(rowID, product)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) RemoveItem(ctx context.Context, instance, rowID string) error {
	instance, err := normalizeInstance(instance)
	if err != nil {
		return s.fail(ctx, "remove_item", err)
	}
	err = s.mutate(ctx, "remove_item", instance, func(content *Content) error {
		return content.Remove(rowID)
	})
	if err != nil {
		return err
	}
	s.metrics.IncRemoved(instance)
	return nil
}

func (s *service) SetSaved(ctx context.Context, instance, rowID string, saved bool) (*LineItem, error) {
	var item *LineItem
	err := s.mutate(ctx, "set_saved", instance, func(content *Content) error {
		var err error
		item, err = content.Get(rowID)
		if err != nil {
			return err
		}
		item.SetSaved(saved)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) Destroy(ctx context.Context, instance string) error {
	instance, err := normalizeInstance(instance)
	if err != nil {
		return s.fail(ctx, "destroy", err)
	}
	unlock := s.lock(instance)
	defer unlock()

	if err := s.store.Delete(ctx, instance); err != nil {
		return s.fail(ctx, "destroy", err)
	}
	s.logg.Info(s.logg.WithCartInstance(ctx, instance), "cart destroyed")
	return nil
}

// StoreFor copies the instance content under identifier. It fails with
// ErrCartAlreadyStored when the identifier already holds a copy.
func (s *service) StoreFor(ctx context.Context, instance, identifier string) error {
	if s.repo == nil {
		return s.fail(ctx, "store", pkgerrors.New(pkgerrors.CodeDependency, "stored cart repository not configured"))
	}
	instance, err := normalizeInstance(instance)
	if err != nil {
		return s.fail(ctx, "store", err)
	}
	if strings.TrimSpace(identifier) == "" {
		return s.fail(ctx, "store", pkgerrors.New(pkgerrors.CodeValidation, "identifier is required"))
	}

	unlock := s.lock(instance)
	defer unlock()

	content, err := s.load(ctx, instance)
	if err != nil {
		return s.fail(ctx, "store", err)
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.Exists(ctx, identifier, instance)
		if err != nil {
			return err
		}
		if exists {
			return ErrCartAlreadyStored
		}
		return repo.Create(ctx, identifier, instance, content)
	})
	if err != nil {
		return s.fail(ctx, "store", err)
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"cart_instance": instance, "identifier": identifier})
	s.logg.Info(ctx, "cart stored")
	return nil
}

// RestoreFor merges the content stored under identifier into the instance and removes
// the stored copy. An unknown identifier leaves the instance untouched.
func (s *service) RestoreFor(ctx context.Context, instance, identifier string) (*Content, error) {
	if s.repo == nil {
		return nil, s.fail(ctx, "restore", pkgerrors.New(pkgerrors.CodeDependency, "stored cart repository not configured"))
	}
	instance, err := normalizeInstance(instance)
	if err != nil {
		return nil, s.fail(ctx, "restore", err)
	}
	if strings.TrimSpace(identifier) == "" {
		return nil, s.fail(ctx, "restore", pkgerrors.New(pkgerrors.CodeValidation, "identifier is required"))
	}

	unlock := s.lock(instance)
	defer unlock()

	content, err := s.load(ctx, instance)
	if err != nil {
		return nil, s.fail(ctx, "restore", err)
	}

	restored := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		stored, err := repo.Find(ctx, identifier, instance)
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, item := range stored.Items() {
			if _, err := content.Add(item); err != nil {
				return err
			}
		}
		if err := repo.Delete(ctx, identifier, instance); err != nil {
			return err
		}
		restored = true
		return s.store.Save(ctx, instance, content)
	})
	if err != nil {
		return nil, s.fail(ctx, "restore", err)
	}

	if restored {
		ctx = s.logg.WithFields(ctx, map[string]any{"cart_instance": instance, "identifier": identifier})
		s.logg.Info(ctx, "cart restored")
	}
	return content, nil
}

// mutate loads the instance, applies fn and saves the result under the instance lock.
func (s *service) mutate(ctx context.Context, op, instance string, fn func(*Content) error) error {
	start := time.Now()
	defer func() { s.metrics.ObserveDuration(op, time.Since(start)) }()

	instance, err := normalizeInstance(instance)
	if err != nil {
		return s.fail(ctx, op, err)
	}
	unlock := s.lock(instance)
	defer unlock()

	content, err := s.load(ctx, instance)
	if err != nil {
		return s.fail(ctx, op, err)
	}
	if err := fn(content); err != nil {
		return s.fail(s.logg.WithCartInstance(ctx, instance), op, err)
	}
	if err := s.store.Save(ctx, instance, content); err != nil {
		return s.fail(ctx, op, err)
	}
	return nil
}

func (s *service) load(ctx context.Context, instance string) (*Content, error) {
	content, ok, err := s.store.Load(ctx, instance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewContent(s.currency), nil
	}
	return content, nil
}

func (s *service) lock(instance string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[instance]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[instance] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// fail records the failure and passes err through. Caller errors are logged at warn,
// everything else at error.
func (s *service) fail(ctx context.Context, op string, err error) error {
	s.metrics.IncFailure(op)
	ctx = s.logg.WithField(ctx, "operation", op)
	if typed := pkgerrors.As(err); typed != nil && pkgerrors.MetadataFor(typed.Code()).HTTPStatus < 500 {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart operation rejected")
		return err
	}
	s.logg.Error(ctx, "cart operation failed", err)
	return err
}

func normalizeInstance(instance string) (string, error) {
	instance = strings.TrimSpace(instance)
	if instance == "" {
		return DefaultInstance, nil
	}
	if strings.ContainsAny(instance, ": \t\n") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid cart instance %q", instance))
	}
	return instance, nil
}
