package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/pkg/enums"
)

// TillSession is one operator shift on a till. At most one open session may
// exist per till; the partial unique index enforcing that lives in the
// migrations.
type TillSession struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID           uuid.UUID           `gorm:"column:company_id;type:uuid;not null;index"`
	TillID              uuid.UUID           `gorm:"column:till_id;type:uuid;not null;index"`
	OperatorID          uuid.UUID           `gorm:"column:operator_id;type:uuid;not null"`
	Status              enums.SessionStatus `gorm:"column:status;type:text;not null;default:'open'"`
	OpeningBalanceCents int64               `gorm:"column:opening_balance_cents;not null"`
	ClosingBalanceCents *int64              `gorm:"column:closing_balance_cents"`
	ExpectedCents       *int64              `gorm:"column:expected_cents"`
	VarianceCents       *int64              `gorm:"column:variance_cents"`
	OpenedAt            time.Time           `gorm:"column:opened_at;not null"`
	ClosedAt            *time.Time          `gorm:"column:closed_at"`
	ClosedBy            *uuid.UUID          `gorm:"column:closed_by;type:uuid"`
	Notes               *string             `gorm:"column:notes"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
