package enums

import "fmt"

// PoolAllocationStatus tracks whether pool funds are still available to draw
// against.
type PoolAllocationStatus string

const (
	PoolAllocationStatusAvailable PoolAllocationStatus = "available"
	PoolAllocationStatusDrawn     PoolAllocationStatus = "drawn"
	PoolAllocationStatusReversed  PoolAllocationStatus = "reversed"
)

var validPoolAllocationStatuses = []PoolAllocationStatus{
	PoolAllocationStatusAvailable,
	PoolAllocationStatusDrawn,
	PoolAllocationStatusReversed,
}

func (s PoolAllocationStatus) String() string {
	return string(s)
}

func (s PoolAllocationStatus) IsValid() bool {
	for _, candidate := range validPoolAllocationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePoolAllocationStatus converts raw input into a PoolAllocationStatus.
func ParsePoolAllocationStatus(value string) (PoolAllocationStatus, error) {
	for _, candidate := range validPoolAllocationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pool allocation status %q", value)
}
