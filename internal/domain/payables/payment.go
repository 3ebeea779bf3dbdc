package payables

import (
	"fmt"
	"time"

	"github.com/erp/payables/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the state of an issued check
type PaymentStatus string

const (
	PaymentStatusOutstanding PaymentStatus = "O" // Issued, not yet cleared
	PaymentStatusCleared     PaymentStatus = "C" // Cleared by the bank
	PaymentStatusVoided      PaymentStatus = "V"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusOutstanding, PaymentStatusCleared, PaymentStatusVoided:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// PaymentDetail is one invoice settled by a payment
type PaymentDetail struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	Discount      decimal.Decimal `json:"discount"`
}

// Payment is a check recorded in the payment ledger
type Payment struct {
	ID           uuid.UUID       `json:"id"`
	CompanyID    uuid.UUID       `json:"company_id"`
	BankNumber   int64           `json:"bank_number"`
	VendorNumber int64           `json:"vendor_number"`
	VendorName   string          `json:"vendor_name"`
	Number       string          `json:"number"`
	Amount       decimal.Decimal `json:"amount"`
	PaymentDate  time.Time       `json:"payment_date"`
	Status       PaymentStatus   `json:"status"`
	DateCleared  *time.Time      `json:"date_cleared,omitempty"`
	DateVoided   *time.Time      `json:"date_voided,omitempty"`
	Details      []PaymentDetail `json:"details,omitempty"`
	Version      int             `json:"version"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsVoided returns true if the check has been voided
func (p *Payment) IsVoided() bool {
	return p.Status == PaymentStatusVoided || p.DateVoided != nil
}

// IsCleared returns true if the bank has cleared the check
func (p *Payment) IsCleared() bool {
	return p.Status == PaymentStatusCleared || p.DateCleared != nil
}

// CanVoid reports why the check cannot be voided, or nil if it can
func (p *Payment) CanVoid() error {
	if p.IsVoided() {
		return shared.NewDomainError(CodeCheckAlreadyVoided,
			fmt.Sprintf("Check %s has already been voided", p.Number))
	}
	if p.IsCleared() {
		return shared.NewDomainError(CodeCheckAlreadyCleared,
			fmt.Sprintf("Check %s has cleared and cannot be voided", p.Number))
	}
	return nil
}

// Void marks the check voided as of effectiveDate
func (p *Payment) Void(effectiveDate time.Time) error {
	if err := p.CanVoid(); err != nil {
		return err
	}
	if effectiveDate.IsZero() {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Void date is required")
	}
	if effectiveDate.Before(p.PaymentDate) {
		return shared.NewDomainError(shared.ErrInvalidInput.Code,
			fmt.Sprintf("Void date cannot precede the payment date of check %s", p.Number))
	}

	voided := effectiveDate
	p.Status = PaymentStatusVoided
	p.DateVoided = &voided
	p.UpdatedAt = time.Now()
	p.Version++
	return nil
}
