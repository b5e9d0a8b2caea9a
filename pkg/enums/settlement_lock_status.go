package enums

import "fmt"

// SettlementLockStatus records the one true outcome of a settlement attempt.
// A lock is created in the acquired state and only ever moves to completed or
// failed; rows are never deleted.
type SettlementLockStatus string

const (
	SettlementLockStatusAcquired  SettlementLockStatus = "acquired"
	SettlementLockStatusCompleted SettlementLockStatus = "completed"
	SettlementLockStatusFailed    SettlementLockStatus = "failed"
)

var validSettlementLockStatuses = []SettlementLockStatus{
	SettlementLockStatusAcquired,
	SettlementLockStatusCompleted,
	SettlementLockStatusFailed,
}

// String implements fmt.Stringer.
func (s SettlementLockStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SettlementLockStatus) IsValid() bool {
	for _, candidate := range validSettlementLockStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the lock already records a final outcome.
func (s SettlementLockStatus) IsTerminal() bool {
	return s == SettlementLockStatusCompleted || s == SettlementLockStatusFailed
}

// ParseSettlementLockStatus converts raw input into a SettlementLockStatus.
func ParseSettlementLockStatus(value string) (SettlementLockStatus, error) {
	for _, candidate := range validSettlementLockStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement lock status %q", value)
}
