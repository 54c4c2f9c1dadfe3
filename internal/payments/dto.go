package payments

import (
	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
)

// AttachPaymentInput settles part of a sale. Reference is the processor or
// terminal reference; when present it deduplicates retried captures.
type AttachPaymentInput struct {
	CompanyID   uuid.UUID
	SaleID      uuid.UUID
	Method      enums.PaymentMethod
	AmountCents int64
	Reference   *string
	RecordedBy  uuid.UUID
}

// AttachPaymentResult carries the resolved payment and whether the request
// was a replay of an earlier capture.
type AttachPaymentResult struct {
	Payment   *models.Payment
	Duplicate bool
}

// ReversePaymentInput captures a payment reversal.
type ReversePaymentInput struct {
	CompanyID uuid.UUID
	PaymentID uuid.UUID
	ActorID   uuid.UUID
	Reason    string
}
