package payables

import (
	"encoding/json"

	"github.com/google/uuid"
)

// CheckRunPreview is the result of one planning pass: the ordered checks
// and run totals. It is immutable once built.
type CheckRunPreview struct {
	checks []CheckGroup
	totals Amounts
}

// NewCheckRunPreview builds a preview from finished checks.
// Run totals are the sum over the checks.
func NewCheckRunPreview(checks []CheckGroup) *CheckRunPreview {
	owned := make([]CheckGroup, len(checks))
	for i, c := range checks {
		owned[i] = c.clone()
	}
	return &CheckRunPreview{
		checks: owned,
		totals: SumCheckTotals(owned),
	}
}

// SumCheckTotals adds up the totals of every check
func SumCheckTotals(checks []CheckGroup) Amounts {
	total := ZeroAmounts()
	for _, c := range checks {
		total = total.Add(c.Totals)
	}
	return total
}

// Checks returns a copy of the planned checks in print order
func (p *CheckRunPreview) Checks() []CheckGroup {
	out := make([]CheckGroup, len(p.checks))
	for i, c := range p.checks {
		out[i] = c.clone()
	}
	return out
}

// Totals returns the run-level totals
func (p *CheckRunPreview) Totals() Amounts {
	return p.totals
}

// Len returns the number of checks in the run
func (p *CheckRunPreview) Len() int {
	return len(p.checks)
}

// IsEmpty returns true when no invoice qualified for the run
func (p *CheckRunPreview) IsEmpty() bool {
	return len(p.checks) == 0
}

// InvoiceCount returns the number of invoices across all checks
func (p *CheckRunPreview) InvoiceCount() int {
	n := 0
	for _, c := range p.checks {
		n += len(c.Lines)
	}
	return n
}

// NumberRange returns the range of check numbers the run will consume
func (p *CheckRunPreview) NumberRange(companyID uuid.UUID, bankNumber int64) CheckNumberRange {
	r := CheckNumberRange{
		CompanyID:  companyID,
		BankNumber: bankNumber,
		Count:      len(p.checks),
	}
	if len(p.checks) > 0 {
		r.Start = p.checks[0].CheckNumber
	}
	return r
}

// MarshalJSON implements json.Marshaler
func (p *CheckRunPreview) MarshalJSON() ([]byte, error) {
	checks := p.checks
	if checks == nil {
		checks = []CheckGroup{}
	}
	return json.Marshal(struct {
		Checks []CheckGroup `json:"checks"`
		Totals Amounts      `json:"totals"`
	}{
		Checks: checks,
		Totals: p.totals,
	})
}
