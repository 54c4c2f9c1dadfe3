package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/pkg/enums"
)

// SyncEntry is one operation captured while a device was offline. SessionKey
// and SaleKey are client-minted correlation keys; AppliedEntityID records the
// server-side row the entry resolved to once drained.
type SyncEntry struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID       uuid.UUID           `gorm:"column:company_id;type:uuid;not null;index"`
	DeviceID        string              `gorm:"column:device_id;not null;index"`
	IdempotencyKey  string              `gorm:"column:idempotency_key;not null"`
	Operation       enums.SyncOperation `gorm:"column:operation;type:text;not null"`
	Payload         json.RawMessage     `gorm:"column:payload;type:jsonb;not null"`
	SessionKey      string              `gorm:"column:session_key;not null;index"`
	SaleKey         *string             `gorm:"column:sale_key"`
	Status          enums.SyncStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	RejectionReason *string             `gorm:"column:rejection_reason"`
	AppliedEntityID *uuid.UUID          `gorm:"column:applied_entity_id;type:uuid"`
	Attempts        int                 `gorm:"column:attempts;not null;default:0"`
	LocalTimestamp  time.Time           `gorm:"column:local_timestamp;not null"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
