package models

import (
	"time"

	"github.com/angelmondragon/shoppingcart/pkg/enums"
)

// Product is a catalog entry that can be put in a cart.
type Product struct {
	ID         int64          `gorm:"column:id;primaryKey;autoIncrement"`
	SKU        string         `gorm:"column:sku;not null;uniqueIndex"`
	Name       string         `gorm:"column:name;not null"`
	PriceCents int64          `gorm:"column:price_cents;not null"`
	Currency   enums.Currency `gorm:"column:currency;not null;default:'USD'"`
	IsActive   bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
