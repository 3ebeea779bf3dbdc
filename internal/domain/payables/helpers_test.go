package payables

import (
	"fmt"
	"time"

	"github.com/erp/payables/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var testInvoiceDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

var invoiceSeq int

// newTestRow builds a valid invoice row for vendor with the given gross amount
func newTestRow(vendor int64, gross string, separate bool) InvoiceRow {
	invoiceSeq++
	return InvoiceRow{
		InvoiceID:     uuid.New(),
		VendorNumber:  vendor,
		VendorName:    fmt.Sprintf("Vendor %d", vendor),
		Address:       valueobject.NewAddress(fmt.Sprintf("%d Main St", vendor), "Springfield", "IL", valueobject.WithPostalCode("62701")),
		PaySeparately: separate,
		InvoiceNumber: fmt.Sprintf("INV-%04d", invoiceSeq),
		InvoiceDate:   testInvoiceDate.AddDate(0, 0, invoiceSeq%28),
		DueDate:       testInvoiceDate.AddDate(0, 1, 0),
		Gross:         decimal.RequireFromString(gross),
	}
}

// withDiscount sets the discount amount and percent on a row
func withDiscount(row InvoiceRow, amount, percent string) InvoiceRow {
	row.DiscountAmount = decimal.RequireFromString(amount)
	row.DiscountPercent = decimal.NewNullDecimal(decimal.RequireFromString(percent))
	return row
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
