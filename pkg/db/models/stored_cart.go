package models

import "time"

// StoredCart is a cart instance persisted under a caller chosen identifier, e.g. a user id.
type StoredCart struct {
	Identifier string    `gorm:"column:identifier;primaryKey"`
	Instance   string    `gorm:"column:instance;primaryKey"`
	Content    string    `gorm:"column:content;type:text;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (StoredCart) TableName() string { return "shoppingcart" }
