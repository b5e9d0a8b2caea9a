package enums

import "fmt"

// PoolType names the internal accounting buckets that accrue a share of every
// settled order.
type PoolType string

const (
	PoolTypeEditing       PoolType = "editing"
	PoolTypeQualityReview PoolType = "quality_review"
	PoolTypeOperating     PoolType = "operating"
)

var validPoolTypes = []PoolType{
	PoolTypeEditing,
	PoolTypeQualityReview,
	PoolTypeOperating,
}

// AllPoolTypes returns the pools in commit order.
func AllPoolTypes() []PoolType {
	out := make([]PoolType, len(validPoolTypes))
	copy(out, validPoolTypes)
	return out
}

// String implements fmt.Stringer.
func (p PoolType) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PoolType) IsValid() bool {
	for _, candidate := range validPoolTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePoolType converts raw input into a PoolType.
func ParsePoolType(value string) (PoolType, error) {
	for _, candidate := range validPoolTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pool type %q", value)
}
