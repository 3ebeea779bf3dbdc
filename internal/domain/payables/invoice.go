package payables

import (
	"strings"
	"time"

	"github.com/erp/payables/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceRow is one open, approved invoice joined with its pay-to vendor.
// Rows are produced by an InvoiceRowSource in the order the run should print
// checks, and are read-only to the planner.
type InvoiceRow struct {
	InvoiceID           uuid.UUID           `json:"invoice_id"`
	VendorNumber        int64               `json:"vendor_number"`
	VendorName          string              `json:"vendor_name"`
	Address             valueobject.Address `json:"address"`
	PaySeparately       bool                `json:"pay_separately"`
	InvoiceNumber       string              `json:"invoice_number"`
	InvoiceDate         time.Time           `json:"invoice_date"`
	DueDate             time.Time           `json:"due_date"`
	Gross               decimal.Decimal     `json:"gross"`
	DiscountAmount      decimal.Decimal     `json:"discount_amount"`
	DiscountPercent     decimal.NullDecimal `json:"discount_percent"`
	PurchaseOrderNumber int64               `json:"purchase_order_number,omitempty"`
	Note                string              `json:"note,omitempty"`
}

// Validate checks the fields the planner cannot work without.
// A failure is a data integrity error: the row source returned a malformed row.
func (r InvoiceRow) Validate() error {
	if r.VendorNumber <= 0 {
		return newDataIntegrityError("invoice %q has no vendor number", r.InvoiceNumber)
	}
	if strings.TrimSpace(r.InvoiceNumber) == "" {
		return newDataIntegrityError("invoice for vendor %d has no invoice number", r.VendorNumber)
	}
	if r.InvoiceDate.IsZero() {
		return newDataIntegrityError("invoice %q for vendor %d has no invoice date", r.InvoiceNumber, r.VendorNumber)
	}
	return nil
}
