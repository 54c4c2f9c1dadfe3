package models

import (
	"time"

	"github.com/google/uuid"
)

// Till is a physical or virtual register a session can be opened against.
type Till struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"column:company_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	Location  *string   `gorm:"column:location"`
	Active    bool      `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
