package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/pkg/enums"
)

// Sale is a recorded transaction within a till session. The pair
// (company_id, idempotency_key) is unique so that replays of the same client
// submission resolve to the same row; payload_hash detects a replayed key
// carrying a different body.
type Sale struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID      uuid.UUID        `gorm:"column:company_id;type:uuid;not null;index"`
	SessionID      uuid.UUID        `gorm:"column:session_id;type:uuid;not null;index"`
	Number         int64            `gorm:"column:number;not null"`
	IdempotencyKey string           `gorm:"column:idempotency_key;not null"`
	PayloadHash    string           `gorm:"column:payload_hash;not null"`
	Status         enums.SaleStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	SubtotalCents  int64            `gorm:"column:subtotal_cents;not null"`
	TaxCents       int64            `gorm:"column:tax_cents;not null;default:0"`
	TotalCents     int64            `gorm:"column:total_cents;not null"`
	RecordedBy     uuid.UUID        `gorm:"column:recorded_by;type:uuid;not null"`
	VoidedAt       *time.Time       `gorm:"column:voided_at"`
	VoidedBy       *uuid.UUID       `gorm:"column:voided_by;type:uuid"`
	VoidReason     *string          `gorm:"column:void_reason"`
	Items          []SaleItem       `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	Payments       []Payment        `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
