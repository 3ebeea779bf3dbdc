package payables

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"
)

// CheckNumberRange is the contiguous block [Start, Start+Count-1] a run
// would print against one bank account.
type CheckNumberRange struct {
	CompanyID  uuid.UUID
	BankNumber int64
	Start      CheckNumber
	Count      int
}

// Numbers returns the range as ledger payment numbers
func (r CheckNumberRange) Numbers() []string {
	if r.Count <= 0 {
		return nil
	}
	out := make([]string, r.Count)
	for i := range r.Count {
		out[i] = (r.Start + CheckNumber(i)).String()
	}
	return out
}

// End returns the last number in the range, or Start-1 for an empty range
func (r CheckNumberRange) End() CheckNumber {
	return r.Start + CheckNumber(r.Count) - 1
}

// CollisionResult is the answer of a collision check.
// Conflicts lists the numbers already used, in ascending order.
type CollisionResult struct {
	Range     CheckNumberRange
	Conflicts []string
}

// Collides returns true if any number in the range is already used
func (r CollisionResult) Collides() bool {
	return len(r.Conflicts) > 0
}

// Err returns a CheckNumberInUseError when the range collides, nil otherwise
func (r CollisionResult) Err() error {
	if !r.Collides() {
		return nil
	}
	return NewCheckNumberInUseError(r.Range.BankNumber, r.Conflicts)
}

// PaymentLedger answers which payment numbers are already recorded for a bank
type PaymentLedger interface {
	FindUsedCheckNumbers(ctx context.Context, companyID uuid.UUID, bankNumber int64, numbers []string) ([]string, error)
}

// CollisionValidator checks a proposed check number range against the ledger
type CollisionValidator struct {
	ledger PaymentLedger
}

// NewCollisionValidator creates a CollisionValidator
func NewCollisionValidator(ledger PaymentLedger) *CollisionValidator {
	return &CollisionValidator{ledger: ledger}
}

// Check reports which numbers in r are already used for r.BankNumber.
// An empty range returns no collision without querying the ledger.
// A ledger failure is returned as an error, never as a collision.
func (v *CollisionValidator) Check(ctx context.Context, r CheckNumberRange) (CollisionResult, error) {
	result := CollisionResult{Range: r}
	if r.Count <= 0 {
		return result, nil
	}

	used, err := v.ledger.FindUsedCheckNumbers(ctx, r.CompanyID, r.BankNumber, r.Numbers())
	if err != nil {
		return CollisionResult{}, fmt.Errorf("check number collision query for bank %d: %w", r.BankNumber, err)
	}

	result.Conflicts = sortCheckNumbers(used)
	return result, nil
}

// sortCheckNumbers orders numbers numerically, falling back to text order
// for values that are not numeric
func sortCheckNumbers(numbers []string) []string {
	if len(numbers) == 0 {
		return nil
	}
	out := slices.Clone(numbers)
	slices.SortFunc(out, func(a, b string) int {
		ai, aerr := strconv.ParseInt(a, 10, 64)
		bi, berr := strconv.ParseInt(b, 10, 64)
		if aerr == nil && berr == nil {
			switch {
			case ai < bi:
				return -1
			case ai > bi:
				return 1
			}
			return 0
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	})
	return slices.Compact(out)
}
