package payables

import (
	"fmt"
	"iter"
	"slices"

	"github.com/erp/payables/internal/domain/shared"
)

// planState is the fold state threaded through one planning pass
type planState struct {
	groups              []*CheckGroup
	current             *CheckGroup
	previous            *InvoiceRow
	previousWasSeparate bool
	nextNumber          CheckNumber
	exhausted           bool
	running             Amounts
}

func (s *planState) apply(row InvoiceRow) error {
	var lineAmounts Amounts
	if IsNewGroupBoundary(s.previous, row, s.previousWasSeparate) {
		if s.exhausted {
			return shared.WrapDomainError(CodeInvalidCheckNumber,
				fmt.Sprintf("No check number remains for vendor %d after check %s", row.VendorNumber, s.current.CheckNumber),
				ErrCheckNumbersExhausted)
		}
		s.current = newCheckGroup(s.nextNumber, row)
		s.groups = append(s.groups, s.current)
		if s.nextNumber.IsLast() {
			s.exhausted = true
		} else {
			s.nextNumber = s.nextNumber.Next()
		}
		lineAmounts = s.current.Totals
	} else {
		lineAmounts = s.current.addLine(row)
	}

	s.running = s.running.Add(lineAmounts)
	s.previous = &row
	s.previousWasSeparate = row.PaySeparately
	return nil
}

// finish builds the preview and reconciles run totals two ways:
// the sum over finished checks and the running total kept during the pass.
func (s *planState) finish() (*CheckRunPreview, error) {
	checks := make([]CheckGroup, len(s.groups))
	for i, g := range s.groups {
		checks[i] = *g
	}

	preview := NewCheckRunPreview(checks)
	if !preview.Totals().Equal(s.running) {
		return nil, newDataIntegrityError(
			"run totals do not reconcile: checks sum to gross %s net %s, running total gross %s net %s",
			preview.totals.Gross, preview.totals.NetPaid, s.running.Gross, s.running.NetPaid)
	}
	return preview, nil
}

// PlanCheckRun groups an ordered invoice stream into numbered checks.
//
// Rows must already be sorted the way checks should print (by vendor name or
// vendor number). Checks are numbered from start with no gaps. An empty stream
// yields an empty preview. An error from the stream or a row failing
// validation aborts the run and no partial preview is returned.
func PlanCheckRun(rows iter.Seq2[InvoiceRow, error], start CheckNumber) (*CheckRunPreview, error) {
	if !start.IsValid() {
		return nil, ErrInvalidStartingCheckNumber
	}

	state := &planState{
		nextNumber: start,
		running:    ZeroAmounts(),
	}

	for row, err := range rows {
		if err != nil {
			return nil, fmt.Errorf("read invoice rows: %w", err)
		}
		if err := row.Validate(); err != nil {
			return nil, err
		}
		if err := state.apply(row); err != nil {
			return nil, err
		}
	}

	return state.finish()
}

// PlanCheckRunFromSlice plans a run over already materialized rows
func PlanCheckRunFromSlice(rows []InvoiceRow, start CheckNumber) (*CheckRunPreview, error) {
	return PlanCheckRun(RowsFromSlice(rows), start)
}

// RowsFromSlice adapts a slice to the row stream consumed by PlanCheckRun
func RowsFromSlice(rows []InvoiceRow) iter.Seq2[InvoiceRow, error] {
	return func(yield func(InvoiceRow, error) bool) {
		for _, row := range slices.Clone(rows) {
			if !yield(row, nil) {
				return
			}
		}
	}
}
