package enums

import "fmt"

// CashMovementType classifies manual cash drawer adjustments within a
// session.
type CashMovementType string

const (
	CashMovementPayIn  CashMovementType = "pay_in"
	CashMovementPayOut CashMovementType = "pay_out"
)

var validCashMovementTypes = []CashMovementType{
	CashMovementPayIn,
	CashMovementPayOut,
}

// String implements fmt.Stringer.
func (c CashMovementType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CashMovementType.
func (c CashMovementType) IsValid() bool {
	for _, candidate := range validCashMovementTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCashMovementType converts raw input into a CashMovementType.
func ParseCashMovementType(value string) (CashMovementType, error) {
	for _, candidate := range validCashMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cash movement type %q", value)
}
