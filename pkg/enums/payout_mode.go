package enums

import "fmt"

// PayoutMode distinguishes staff paid through the external transfer rail from
// staff settled internally (salaried or invoiced outside the engine).
type PayoutMode string

const (
	PayoutModeExternal PayoutMode = "external"
	PayoutModeInternal PayoutMode = "internal"
)

var validPayoutModes = []PayoutMode{
	PayoutModeExternal,
	PayoutModeInternal,
}

func (m PayoutMode) String() string {
	return string(m)
}

func (m PayoutMode) IsValid() bool {
	for _, candidate := range validPayoutModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePayoutMode converts raw input into a PayoutMode.
func ParsePayoutMode(value string) (PayoutMode, error) {
	for _, candidate := range validPayoutModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout mode %q", value)
}
