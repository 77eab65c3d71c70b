package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        uint      `gorm:"primaryKey"             json:"id"`
	Name      string    `gorm:"size:100;not null"      json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MenuItem is a sellable item. Price is the live unit price used for every
// total; order lines never copy it.
type MenuItem struct {
	ID         uint            `gorm:"primaryKey"                       json:"id"`
	Name       string          `gorm:"size:200;not null;index"          json:"name"`
	CategoryID *uint           `gorm:"index"                            json:"category_id"`
	Category   *Category       `gorm:"constraint:OnDelete:SET NULL"     json:"category,omitempty"`
	Price      decimal.Decimal `gorm:"type:decimal(10,2);not null"      json:"price"`
	Image      string          `gorm:"size:255"                         json:"image,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
