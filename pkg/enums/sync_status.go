package enums

import "fmt"

// SyncStatus tracks a queued offline entry through the drain cycle.
type SyncStatus string

const (
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusApplied  SyncStatus = "applied"
	SyncStatusRejected SyncStatus = "rejected"
)

var validSyncStatuses = []SyncStatus{
	SyncStatusPending,
	SyncStatusApplied,
	SyncStatusRejected,
}

// String implements fmt.Stringer.
func (s SyncStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SyncStatus.
func (s SyncStatus) IsValid() bool {
	for _, candidate := range validSyncStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSyncStatus converts raw input into a SyncStatus.
func ParseSyncStatus(value string) (SyncStatus, error) {
	for _, candidate := range validSyncStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync status %q", value)
}
