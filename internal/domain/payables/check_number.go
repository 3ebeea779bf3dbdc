package payables

import (
	"math"
	"strconv"
	"strings"

	"github.com/erp/payables/internal/domain/shared"
)

// CheckNumber is the sequential number printed on a check.
// Payment records store it as text, so it converts to and from strings.
type CheckNumber int64

// IsValid returns true for positive check numbers
func (n CheckNumber) IsValid() bool {
	return n > 0
}

// Next returns the following check number. It must not be called on the
// last representable number.
func (n CheckNumber) Next() CheckNumber {
	return n + 1
}

// IsLast reports whether no check number follows n
func (n CheckNumber) IsLast() bool {
	return n == math.MaxInt64
}

// String returns the decimal representation used by the payment ledger
func (n CheckNumber) String() string {
	return strconv.FormatInt(int64(n), 10)
}

// ParseCheckNumber parses a ledger payment number into a CheckNumber
func ParseCheckNumber(s string) (CheckNumber, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, shared.WrapDomainError(CodeInvalidCheckNumber, "Check number must be numeric", err)
	}
	n := CheckNumber(v)
	if !n.IsValid() {
		return 0, ErrInvalidStartingCheckNumber
	}
	return n, nil
}
