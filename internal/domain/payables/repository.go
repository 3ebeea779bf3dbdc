package payables

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"
)

// InvoiceRowSource streams the invoices selected by a filter, already
// ordered by the filter's sort order. The stream yields a non-nil error
// and stops if the underlying query fails.
type InvoiceRowSource interface {
	StreamCheckPreviewRows(ctx context.Context, filter CheckPreviewFilter) iter.Seq2[InvoiceRow, error]
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	PaymentLedger

	// FindByBankAndNumber finds a check by bank and check number.
	// Returns shared.ErrNotFound when no payment matches.
	FindByBankAndNumber(ctx context.Context, companyID uuid.UUID, bankNumber int64, number CheckNumber) (*Payment, error)

	// Save updates an existing payment
	Save(ctx context.Context, payment *Payment) error
}

// CheckNumberReservationStore holds short-lived claims on check numbers so
// concurrent runs for one bank are not approved for overlapping ranges.
type CheckNumberReservationStore interface {
	// Reserve claims every number in r for owner. It is all or nothing:
	// when any number is already held by someone else, nothing is claimed
	// and the held numbers are returned.
	Reserve(ctx context.Context, r CheckNumberRange, owner string, ttl time.Duration) (conflicts []string, err error)

	// Release drops the claims owner holds on r
	Release(ctx context.Context, r CheckNumberRange, owner string) error
}
