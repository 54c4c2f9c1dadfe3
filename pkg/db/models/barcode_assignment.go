package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/pkg/enums"
)

// BarcodeAssignment binds a code to a product. Codes are globally unique per
// company regardless of whether they were minted or supplier-issued.
type BarcodeAssignment struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID  uuid.UUID           `gorm:"column:company_id;type:uuid;not null;index"`
	ProductID  uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index"`
	Code       string              `gorm:"column:code;not null"`
	Source     enums.BarcodeSource `gorm:"column:source;type:text;not null"`
	AssignedBy uuid.UUID           `gorm:"column:assigned_by;type:uuid;not null"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
}
