package models

import (
	"time"

	"github.com/google/uuid"
)

// SaleItem is one line of a sale. Unit price and line totals are captured at
// record time and never recomputed from the catalog afterwards.
type SaleItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	SaleID         uuid.UUID  `gorm:"column:sale_id;type:uuid;not null;index"`
	ProductID      *uuid.UUID `gorm:"column:product_id;type:uuid"`
	Barcode        *string    `gorm:"column:barcode"`
	Description    string     `gorm:"column:description;not null"`
	Quantity       int64      `gorm:"column:quantity;not null"`
	UnitPriceCents int64      `gorm:"column:unit_price_cents;not null"`
	TaxCents       int64      `gorm:"column:tax_cents;not null;default:0"`
	LineTotalCents int64      `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}
