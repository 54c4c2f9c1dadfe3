package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the minimal catalog row sales lines and barcode assignments
// reference.
type Product struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID      uuid.UUID `gorm:"column:company_id;type:uuid;not null;index"`
	SKU            string    `gorm:"column:sku;not null"`
	Name           string    `gorm:"column:name;not null"`
	PriceCents     int64     `gorm:"column:price_cents;not null"`
	TaxRatePercent *string   `gorm:"column:tax_rate_percent"`
	Active         bool      `gorm:"column:active;not null;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
