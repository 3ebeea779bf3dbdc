package payables

import (
	"time"

	"github.com/erp/payables/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// CheckLine is one invoice printed on a check stub
type CheckLine struct {
	InvoiceID           uuid.UUID `json:"invoice_id"`
	InvoiceNumber       string    `json:"invoice_number"`
	InvoiceDate         time.Time `json:"invoice_date"`
	DueDate             time.Time `json:"due_date"`
	PurchaseOrderNumber int64     `json:"purchase_order_number,omitempty"`
	Note                string    `json:"note,omitempty"`
	Amounts
}

func newCheckLine(row InvoiceRow) CheckLine {
	return CheckLine{
		InvoiceID:           row.InvoiceID,
		InvoiceNumber:       row.InvoiceNumber,
		InvoiceDate:         row.InvoiceDate,
		DueDate:             row.DueDate,
		PurchaseOrderNumber: row.PurchaseOrderNumber,
		Note:                row.Note,
		Amounts:             ComputeLineAmounts(row),
	}
}

// CheckGroup is one check to be issued.
// Vendor, address and date come from the first invoice on the check.
// Totals always equal the sum of Lines.
type CheckGroup struct {
	CheckNumber  CheckNumber         `json:"check_number"`
	VendorNumber int64               `json:"vendor_number"`
	VendorName   string              `json:"vendor_name"`
	Address      valueobject.Address `json:"address"`
	Date         time.Time           `json:"date"`
	Lines        []CheckLine         `json:"lines"`
	Totals       Amounts             `json:"totals"`
}

func newCheckGroup(number CheckNumber, row InvoiceRow) *CheckGroup {
	g := &CheckGroup{
		CheckNumber:  number,
		VendorNumber: row.VendorNumber,
		VendorName:   row.VendorName,
		Address:      row.Address,
		Date:         row.InvoiceDate,
		Totals:       ZeroAmounts(),
	}
	g.addLine(row)
	return g
}

// addLine appends the invoice and accumulates its amounts, returning them
func (g *CheckGroup) addLine(row InvoiceRow) Amounts {
	line := newCheckLine(row)
	g.Lines = append(g.Lines, line)
	g.Totals = g.Totals.Add(line.Amounts)
	return line.Amounts
}

// LineCount returns the number of invoices on the check
func (g CheckGroup) LineCount() int {
	return len(g.Lines)
}

// clone returns a deep copy so callers cannot reach planner-owned slices
func (g CheckGroup) clone() CheckGroup {
	g.Lines = append([]CheckLine(nil), g.Lines...)
	return g
}
