package models

import (
	"time"

	"github.com/google/uuid"
)

// BarcodeSequence is the per-company counter the allocator mints codes from.
// Prefix plus zero-padded counter plus check digit forms the full code.
type BarcodeSequence struct {
	CompanyID uuid.UUID `gorm:"column:company_id;type:uuid;primaryKey"`
	Prefix    string    `gorm:"column:prefix;not null"`
	Counter   int64     `gorm:"column:counter;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
