package cart

import (
	"context"

	"gorm.io/gorm"
)

// Store keeps the working content of cart instances between requests.
type Store interface {
	// Load returns the content of instance and whether it existed.
	Load(ctx context.Context, instance string) (*Content, bool, error)
	Save(ctx context.Context, instance string, content *Content) error
	Delete(ctx context.Context, instance string) error
}

// StoredCartRepository persists cart content under an identifier such as a user id.
type StoredCartRepository interface {
	WithTx(tx *gorm.DB) StoredCartRepository
	Exists(ctx context.Context, identifier, instance string) (bool, error)
	Create(ctx context.Context, identifier, instance string, content *Content) error
	Find(ctx context.Context, identifier, instance string) (*Content, error)
	Delete(ctx context.Context, identifier, instance string) error
}
