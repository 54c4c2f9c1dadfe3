package syncqueue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/internal/sales"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
)

// EnqueueInput captures one operation a device recorded while offline.
// SessionKey and SaleKey are client-minted correlation keys: the device does
// not know server IDs yet, so dependent entries reference each other by key.
type EnqueueInput struct {
	CompanyID      uuid.UUID
	DeviceID       string
	IdempotencyKey string
	Operation      enums.SyncOperation
	Payload        json.RawMessage
	SessionKey     string
	SaleKey        *string
	LocalTimestamp time.Time
}

// EnqueueResult carries the stored entry and whether it was already queued.
type EnqueueResult struct {
	Entry     *models.SyncEntry
	Duplicate bool
}

// OpenSessionPayload is the payload for an open_session entry.
type OpenSessionPayload struct {
	TillID              uuid.UUID `json:"till_id"`
	OperatorID          uuid.UUID `json:"operator_id"`
	OpeningBalanceCents int64     `json:"opening_balance_cents"`
}

// RecordSalePayload is the payload for a record_sale entry.
type RecordSalePayload struct {
	RecordedBy uuid.UUID             `json:"recorded_by"`
	Items      []sales.SaleItemInput `json:"items"`
}

// AttachPaymentPayload is the payload for an attach_payment entry.
type AttachPaymentPayload struct {
	Method      enums.PaymentMethod `json:"method"`
	AmountCents int64               `json:"amount_cents"`
	Reference   *string             `json:"reference"`
	RecordedBy  uuid.UUID           `json:"recorded_by"`
}

// CloseSessionPayload is the payload for a close_session entry.
type CloseSessionPayload struct {
	ClosedBy            uuid.UUID `json:"closed_by"`
	ClosingBalanceCents int64     `json:"closing_balance_cents"`
	Notes               *string   `json:"notes"`
}

// EntryOutcome is the drain result for one entry.
type EntryOutcome struct {
	EntryID   uuid.UUID        `json:"entry_id"`
	Status    enums.SyncStatus `json:"status"`
	Duplicate bool             `json:"duplicate,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	EntityID  *uuid.UUID       `json:"entity_id,omitempty"`
}

// DrainResult summarizes one drain pass.
type DrainResult struct {
	Applied   int            `json:"applied"`
	Duplicate int            `json:"duplicate"`
	Rejected  int            `json:"rejected"`
	Deferred  int            `json:"deferred"`
	Outcomes  []EntryOutcome `json:"outcomes"`
}

// Refs carries server-side IDs resolved from the entry's correlation keys.
type Refs struct {
	SessionID uuid.UUID
	SaleID    uuid.UUID
}
