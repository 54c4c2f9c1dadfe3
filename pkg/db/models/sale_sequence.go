package models

import (
	"time"

	"github.com/google/uuid"
)

// SaleSequence hands out gapless per-company sale numbers. Rows are read
// FOR UPDATE inside the recording transaction.
type SaleSequence struct {
	CompanyID uuid.UUID `gorm:"column:company_id;type:uuid;primaryKey"`
	NextValue int64     `gorm:"column:next_value;not null;default:1"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
