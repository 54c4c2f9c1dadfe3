package enums

// AuditAction names an auditable state transition. Actions are written once
// and never updated, so there is no Parse helper; readers treat unknown
// actions as opaque strings.
type AuditAction string

const (
	AuditSessionOpened   AuditAction = "session.opened"
	AuditSessionClosed   AuditAction = "session.closed"
	AuditSaleRecorded    AuditAction = "sale.recorded"
	AuditSaleVoided      AuditAction = "sale.voided"
	AuditPaymentAttached AuditAction = "payment.attached"
	AuditPaymentReversed AuditAction = "payment.reversed"
	AuditCashMovement    AuditAction = "cash.movement"
	AuditBarcodeAssigned AuditAction = "barcode.assigned"
	AuditProductCreated  AuditAction = "product.created"
	AuditSyncApplied     AuditAction = "sync.applied"
	AuditSyncRejected    AuditAction = "sync.rejected"
)

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}
