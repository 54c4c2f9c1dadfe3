package sales

import "github.com/camdenretail/tillcore-backend/pkg/enums"

// ResolveStatus derives a sale's status from its total and the sum of
// non-reversed payments. This is the single place the pending/completed
// boundary is decided; voiding is terminal and never passes through here.
func ResolveStatus(totalCents, settledCents int64) enums.SaleStatus {
	if settledCents >= totalCents {
		return enums.SaleStatusCompleted
	}
	return enums.SaleStatusPending
}
