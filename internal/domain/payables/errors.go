package payables

import (
	"fmt"
	"strings"

	"github.com/erp/payables/internal/domain/shared"
)

// Error codes raised by the check run planner
const (
	CodeDataIntegrity       = "DATA_INTEGRITY"
	CodeCheckNumberInUse    = "CHECK_NUMBER_IN_USE"
	CodeInvalidCheckNumber  = "INVALID_CHECK_NUMBER"
	CodeCheckAlreadyVoided  = "CHECK_ALREADY_VOIDED"
	CodeCheckAlreadyCleared = "CHECK_ALREADY_CLEARED"
)

var (
	// ErrDataIntegrity marks a row that breaks the invoice source contract.
	// It indicates an upstream query defect, not a user input error.
	ErrDataIntegrity = shared.NewDomainError(CodeDataIntegrity, "Invoice data failed integrity checks")

	// ErrCheckNumberInUse matches any CheckNumberInUseError via errors.Is
	ErrCheckNumberInUse = shared.NewDomainError(CodeCheckNumberInUse, "Check previously used")

	ErrInvalidStartingCheckNumber = shared.NewDomainError(CodeInvalidCheckNumber, "Starting check number must be positive")
	ErrCheckNumbersExhausted      = shared.NewDomainError(CodeInvalidCheckNumber, "No check numbers remain after the starting number")

	ErrCheckAlreadyVoided  = shared.NewDomainError(CodeCheckAlreadyVoided, "Check has already been voided")
	ErrCheckAlreadyCleared = shared.NewDomainError(CodeCheckAlreadyCleared, "Check has cleared the bank and cannot be voided")
)

// newDataIntegrityError builds a DATA_INTEGRITY error with row context
func newDataIntegrityError(format string, args ...any) *shared.DomainError {
	return shared.NewDomainError(CodeDataIntegrity, fmt.Sprintf(format, args...))
}

// CheckNumberInUseError reports check numbers already recorded against a bank.
// The caller decides whether to pick another starting number or bank.
type CheckNumberInUseError struct {
	BankNumber int64
	Numbers    []string
}

// NewCheckNumberInUseError creates a CheckNumberInUseError
func NewCheckNumberInUseError(bankNumber int64, numbers []string) *CheckNumberInUseError {
	return &CheckNumberInUseError{
		BankNumber: bankNumber,
		Numbers:    append([]string(nil), numbers...),
	}
}

// Error implements the error interface
func (e *CheckNumberInUseError) Error() string {
	return fmt.Sprintf("check number(s) %s previously used for bank %d",
		strings.Join(e.Numbers, ", "), e.BankNumber)
}

// Code returns the domain error code
func (e *CheckNumberInUseError) Code() string {
	return CodeCheckNumberInUse
}

// Is lets errors.Is match against ErrCheckNumberInUse
func (e *CheckNumberInUseError) Is(target error) bool {
	t, ok := target.(*shared.DomainError)
	return ok && t.Code == CodeCheckNumberInUse
}
