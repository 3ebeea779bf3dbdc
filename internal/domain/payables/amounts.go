package payables

import (
	"github.com/shopspring/decimal"
)

// Amounts holds the four monetary figures tracked for a line, a check and a run.
// Deduction is always zero today; no deduction source feeds it yet.
type Amounts struct {
	Gross     decimal.Decimal `json:"gross"`
	Discount  decimal.Decimal `json:"discount"`
	Deduction decimal.Decimal `json:"deduction"`
	NetPaid   decimal.Decimal `json:"net_paid"`
}

// ZeroAmounts returns Amounts with every field at zero
func ZeroAmounts() Amounts {
	return Amounts{
		Gross:     decimal.Zero,
		Discount:  decimal.Zero,
		Deduction: decimal.Zero,
		NetPaid:   decimal.Zero,
	}
}

// Add returns the field-wise sum of a and other
func (a Amounts) Add(other Amounts) Amounts {
	return Amounts{
		Gross:     a.Gross.Add(other.Gross),
		Discount:  a.Discount.Add(other.Discount),
		Deduction: a.Deduction.Add(other.Deduction),
		NetPaid:   a.NetPaid.Add(other.NetPaid),
	}
}

// Equal compares numerically, ignoring decimal scale
func (a Amounts) Equal(other Amounts) bool {
	return a.Gross.Equal(other.Gross) &&
		a.Discount.Equal(other.Discount) &&
		a.Deduction.Equal(other.Deduction) &&
		a.NetPaid.Equal(other.NetPaid)
}

// ComputeLineAmounts derives the amounts paid for one invoice.
//
//	discount = discountAmount * discountPercent (zero when percent is null)
//	netPaid  = gross - discount
//
// No rounding is applied.
func ComputeLineAmounts(row InvoiceRow) Amounts {
	discount := decimal.Zero
	if row.DiscountPercent.Valid {
		discount = row.DiscountAmount.Mul(row.DiscountPercent.Decimal)
	}
	return Amounts{
		Gross:     row.Gross,
		Discount:  discount,
		Deduction: decimal.Zero,
		NetPaid:   row.Gross.Sub(discount),
	}
}
