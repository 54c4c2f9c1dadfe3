package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/pkg/enums"
)

// AuditEntry is one immutable row of the audit trail. Seq is a monotonic
// cursor for feed consumers; PublishedAt is set by the feed worker after the
// entry has been pushed downstream.
type AuditEntry struct {
	Seq         int64             `gorm:"column:seq;primaryKey;autoIncrement"`
	ID          uuid.UUID         `gorm:"column:id;type:uuid;not null;uniqueIndex"`
	CompanyID   uuid.UUID         `gorm:"column:company_id;type:uuid;not null;index"`
	ActorID     uuid.UUID         `gorm:"column:actor_id;type:uuid;not null"`
	Action      enums.AuditAction `gorm:"column:action;type:text;not null"`
	EntityType  string            `gorm:"column:entity_type;not null"`
	EntityID    uuid.UUID         `gorm:"column:entity_id;type:uuid;not null;index"`
	Before      json.RawMessage   `gorm:"column:before;type:jsonb"`
	After       json.RawMessage   `gorm:"column:after;type:jsonb"`
	PublishedAt *time.Time        `gorm:"column:published_at"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}
