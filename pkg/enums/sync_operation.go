package enums

import "fmt"

// SyncOperation names the server-side operation an offline entry replays.
type SyncOperation string

const (
	SyncOpOpenSession   SyncOperation = "open_session"
	SyncOpRecordSale    SyncOperation = "record_sale"
	SyncOpAttachPayment SyncOperation = "attach_payment"
	SyncOpCloseSession  SyncOperation = "close_session"
)

var validSyncOperations = []SyncOperation{
	SyncOpOpenSession,
	SyncOpRecordSale,
	SyncOpAttachPayment,
	SyncOpCloseSession,
}

// String implements fmt.Stringer.
func (s SyncOperation) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SyncOperation.
func (s SyncOperation) IsValid() bool {
	for _, candidate := range validSyncOperations {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSyncOperation converts raw input into a SyncOperation.
func ParseSyncOperation(value string) (SyncOperation, error) {
	for _, candidate := range validSyncOperations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync operation %q", value)
}
