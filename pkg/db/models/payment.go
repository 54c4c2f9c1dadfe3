package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/pkg/enums"
)

// Payment settles part of a sale. The pair (sale_id, reference) is unique so
// a retried capture with the same processor reference lands once.
type Payment struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID      uuid.UUID           `gorm:"column:company_id;type:uuid;not null;index"`
	SaleID         uuid.UUID           `gorm:"column:sale_id;type:uuid;not null;index"`
	SessionID      uuid.UUID           `gorm:"column:session_id;type:uuid;not null;index"`
	Method         enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Status         enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'completed'"`
	AmountCents    int64               `gorm:"column:amount_cents;not null"`
	Reference      *string             `gorm:"column:reference"`
	RecordedBy     uuid.UUID           `gorm:"column:recorded_by;type:uuid;not null"`
	ReversedAt     *time.Time          `gorm:"column:reversed_at"`
	ReversedBy     *uuid.UUID          `gorm:"column:reversed_by;type:uuid"`
	ReversalReason *string             `gorm:"column:reversal_reason"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
