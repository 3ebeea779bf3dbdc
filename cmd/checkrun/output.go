package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	apppayables "github.com/erp/payables/internal/application/payables"
	"github.com/erp/payables/internal/domain/payables"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

func validateFormat(format string) error {
	switch format {
	case formatJSON, formatTable:
		return nil
	}
	return fmt.Errorf("invalid --format %q: expected %s or %s", format, formatJSON, formatTable)
}

// previewOutput is the JSON document printed by the preview command
type previewOutput struct {
	RunID            string                    `json:"run_id"`
	FirstCheckNumber payables.CheckNumber      `json:"first_check_number,omitempty"`
	LastCheckNumber  payables.CheckNumber      `json:"last_check_number,omitempty"`
	CheckCount       int                       `json:"check_count"`
	InvoiceCount     int                       `json:"invoice_count"`
	Preview          *payables.CheckRunPreview `json:"preview"`
	Reservation      *apppayables.Reservation  `json:"reservation,omitempty"`
}

func newPreviewOutput(r *apppayables.CheckRunResult) previewOutput {
	return previewOutput{
		RunID:            r.RunID,
		FirstCheckNumber: r.FirstCheckNumber(),
		LastCheckNumber:  r.LastCheckNumber(),
		CheckCount:       r.Preview.Len(),
		InvoiceCount:     r.Preview.InvoiceCount(),
		Preview:          r.Preview,
		Reservation:      r.Reservation,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writePreviewTable prints one row per invoice grouped under its check,
// followed by a check subtotal and the run totals
func writePreviewTable(w io.Writer, r *apppayables.CheckRunResult) error {
	if r.Preview.IsEmpty() {
		_, err := fmt.Fprintln(w, "No open invoices matched the filter.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "CHECK\tVENDOR\tNAME\tINVOICE\tDUE\tGROSS\tDISCOUNT\tDEDUCTION\tNET\t")
	for _, c := range r.Preview.Checks() {
		for i, line := range c.Lines {
			check, vendor, name := "", "", ""
			if i == 0 {
				check = c.CheckNumber.String()
				vendor = fmt.Sprintf("%d", c.VendorNumber)
				name = c.VendorName
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
				check, vendor, name, line.InvoiceNumber, line.DueDate.Format(dateLayout),
				money(line.Gross), money(line.Discount), money(line.Deduction), money(line.NetPaid))
		}
		fmt.Fprintf(tw, "\t\t\t\t%d invoice(s)\t%s\t%s\t%s\t%s\t\n",
			c.LineCount(), money(c.Totals.Gross), money(c.Totals.Discount), money(c.Totals.Deduction), money(c.Totals.NetPaid))
	}

	t := r.Preview.Totals()
	fmt.Fprintf(tw, "TOTAL\t\t%d check(s)\t%d invoice(s)\t\t%s\t%s\t%s\t%s\t\n",
		r.Preview.Len(), r.Preview.InvoiceCount(), money(t.Gross), money(t.Discount), money(t.Deduction), money(t.NetPaid))
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nRun %s uses checks %s-%s\n",
		r.RunID, r.FirstCheckNumber(), r.LastCheckNumber())
	if err != nil {
		return err
	}
	if r.Reservation != nil {
		_, err = fmt.Fprintf(w, "Check numbers reserved until %s\n", r.Reservation.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	}
	return err
}

// writePaymentTable prints a single check from the payment ledger
func writePaymentTable(w io.Writer, p *payables.Payment) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Check\t%s\n", p.Number)
	fmt.Fprintf(tw, "Bank\t%d\n", p.BankNumber)
	fmt.Fprintf(tw, "Vendor\t%d %s\n", p.VendorNumber, p.VendorName)
	fmt.Fprintf(tw, "Amount\t%s\n", money(p.Amount))
	fmt.Fprintf(tw, "Payment date\t%s\n", p.PaymentDate.Format(dateLayout))
	fmt.Fprintf(tw, "Status\t%s\n", p.Status)
	if p.DateVoided != nil {
		fmt.Fprintf(tw, "Voided\t%s\n", p.DateVoided.Format(dateLayout))
	}
	for _, d := range p.Details {
		fmt.Fprintf(tw, "  Invoice %s\t%s\n", d.InvoiceNumber, money(d.Amount))
	}
	return tw.Flush()
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
