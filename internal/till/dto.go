package till

import (
	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/pkg/enums"
)

// OpenSessionInput captures the data required to open a till session.
type OpenSessionInput struct {
	CompanyID           uuid.UUID
	TillID              uuid.UUID
	OperatorID          uuid.UUID
	OpeningBalanceCents int64
}

// CloseSessionInput captures the counted drawer and the closing actor.
// Notes let the operator explain the count, typically a variance.
type CloseSessionInput struct {
	CompanyID           uuid.UUID
	SessionID           uuid.UUID
	ClosedBy            uuid.UUID
	ClosingBalanceCents int64
	Notes               *string
}

// CashMovementInput records a manual pay-in or pay-out against an open
// session.
type CashMovementInput struct {
	CompanyID   uuid.UUID
	SessionID   uuid.UUID
	Type        enums.CashMovementType
	AmountCents int64
	Reason      string
	RecordedBy  uuid.UUID
}

// CreateTillInput registers a new till for a company.
type CreateTillInput struct {
	CompanyID uuid.UUID
	Name      string
	Location  *string
}
