package payables

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/payables/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// SortOrder selects the order checks are printed in
type SortOrder string

const (
	SortByVendorName   SortOrder = "V"
	SortByVendorNumber SortOrder = "N"
)

// IsValid checks if the sort order is supported
func (s SortOrder) IsValid() bool {
	return s == SortByVendorName || s == SortByVendorNumber
}

// String returns the string representation of SortOrder
func (s SortOrder) String() string {
	return string(s)
}

// CheckPreviewFilter selects the invoices for a check run
type CheckPreviewFilter struct {
	CompanyID    uuid.UUID  `json:"company_id" validate:"required"`
	CheckDate    time.Time  `json:"check_date" validate:"required"`
	CheckNumber  int64      `json:"check_number" validate:"gt=0"`
	BankNumber   int64      `json:"bank_number" validate:"gt=0"`
	SortBy       SortOrder  `json:"sort_by" validate:"required,oneof=V N"`
	VendorGroup  string     `json:"vendor_group,omitempty" validate:"omitempty,max=10"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	DiscountDate *time.Time `json:"discount_date,omitempty"`
}

var filterValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the filter and reports every failing field in one error
func (f CheckPreviewFilter) Validate() error {
	err := filterValidator.Struct(f)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.WrapDomainError(shared.ErrInvalidInput.Code, "Invalid check preview filter", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return shared.NewDomainError(shared.ErrInvalidInput.Code,
		"Invalid check preview filter: "+strings.Join(msgs, "; "))
}

// StartingCheckNumber returns the first check number for the run
func (f CheckPreviewFilter) StartingCheckNumber() CheckNumber {
	return CheckNumber(f.CheckNumber)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}
