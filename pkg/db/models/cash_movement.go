package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/pkg/enums"
)

// CashMovement is a manual pay-in or pay-out against an open session's
// drawer. Movements feed the expected balance at close.
type CashMovement struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID   uuid.UUID              `gorm:"column:company_id;type:uuid;not null;index"`
	SessionID   uuid.UUID              `gorm:"column:session_id;type:uuid;not null;index"`
	Type        enums.CashMovementType `gorm:"column:type;type:text;not null"`
	AmountCents int64                  `gorm:"column:amount_cents;not null"`
	Reason      string                 `gorm:"column:reason;not null"`
	RecordedBy  uuid.UUID              `gorm:"column:recorded_by;type:uuid;not null"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}
