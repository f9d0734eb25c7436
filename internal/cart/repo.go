package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/shoppingcart/pkg/db"
	"github.com/angelmondragon/shoppingcart/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shoppingcart/pkg/errors"
)

// ErrCartAlreadyStored is returned when an identifier already holds a stored copy of
// the instance.
var ErrCartAlreadyStored = pkgerrors.New(pkgerrors.CodeConflict, "a cart with this identifier is already stored")

// Repository persists cart content in the shoppingcart table.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a stored cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) StoredCartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Exists(ctx context.Context, identifier, instance string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StoredCart{}).
		Where("identifier = ? AND instance = ?", identifier, instance).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check stored cart")
	}
	return count > 0, nil
}

// Create inserts the content. A concurrent insert of the same key surfaces as
// ErrCartAlreadyStored.
func (r *Repository) Create(ctx context.Context, identifier, instance string, content *Content) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode stored cart")
	}
	record := &models.StoredCart{
		Identifier: identifier,
		Instance:   instance,
		Content:    string(raw),
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return ErrCartAlreadyStored
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert stored cart")
	}
	return nil
}

// Find loads the stored content, or a CodeNotFound error.
func (r *Repository) Find(ctx context.Context, identifier, instance string) (*Content, error) {
	var record models.StoredCart
	err := r.db.WithContext(ctx).
		Where("identifier = ? AND instance = ?", identifier, instance).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stored cart not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stored cart")
	}

	var content Content
	if err := json.Unmarshal([]byte(record.Content), &content); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode stored cart")
	}
	return &content, nil
}

func (r *Repository) Delete(ctx context.Context, identifier, instance string) error {
	err := r.db.WithContext(ctx).
		Where("identifier = ? AND instance = ?", identifier, instance).
		Delete(&models.StoredCart{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete stored cart")
	}
	return nil
}

// PurgeUpdatedBefore removes stored carts last written before cutoff. tx is optional.
func (r *Repository) PurgeUpdatedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	result := conn.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&models.StoredCart{})
	if result.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "purge stored carts")
	}
	return result.RowsAffected, nil
}
