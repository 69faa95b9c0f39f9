package enums

import "fmt"

// PettyCashOperation maps to the petty_cash_operation enum in Postgres.
type PettyCashOperation string

const (
	PettyCashOperationAdd      PettyCashOperation = "add"
	PettyCashOperationSubtract PettyCashOperation = "subtract"
)

var validPettyCashOperations = []PettyCashOperation{
	PettyCashOperationAdd,
	PettyCashOperationSubtract,
}

// String implements fmt.Stringer.
func (p PettyCashOperation) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PettyCashOperation.
func (p PettyCashOperation) IsValid() bool {
	for _, candidate := range validPettyCashOperations {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePettyCashOperation converts raw input into a PettyCashOperation.
func ParsePettyCashOperation(value string) (PettyCashOperation, error) {
	for _, candidate := range validPettyCashOperations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid petty cash operation %q", value)
}
