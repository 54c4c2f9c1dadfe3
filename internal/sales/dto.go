package sales

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/pkg/db/models"
)

// FormatNumber renders a sale's sequence number the way receipts print it.
func FormatNumber(n int64) string {
	return fmt.Sprintf("S-%d", n)
}

// SaleItemInput is one line of a sale submission. Unit prices are captured
// from the client so a later catalog change never rewrites history.
type SaleItemInput struct {
	ProductID      *uuid.UUID `json:"product_id"`
	Barcode        *string    `json:"barcode"`
	Description    string     `json:"description"`
	Quantity       int64      `json:"quantity"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	TaxRatePercent *string    `json:"tax_rate_percent"`
}

// RecordSaleInput captures a sale submission. IdempotencyKey is minted by
// the client and makes retried submissions converge on one sale.
type RecordSaleInput struct {
	CompanyID      uuid.UUID
	SessionID      uuid.UUID
	RecordedBy     uuid.UUID
	IdempotencyKey string
	Items          []SaleItemInput
}

// RecordSaleResult carries the resolved sale and whether the submission was
// a replay of an earlier one.
type RecordSaleResult struct {
	Sale      *models.Sale
	Duplicate bool
}

// VoidSaleInput captures a void request.
type VoidSaleInput struct {
	CompanyID uuid.UUID
	SaleID    uuid.UUID
	ActorID   uuid.UUID
	Reason    string
}
