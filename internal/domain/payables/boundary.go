package payables

// IsNewGroupBoundary reports whether current starts a new check.
//
// A new check starts when any of these hold:
//   - there is no previous row (first row of the run)
//   - the vendor changed
//   - current is flagged pay-separately
//   - the previous row was flagged pay-separately (carry-over)
//
// previous is nil for the first row.
func IsNewGroupBoundary(previous *InvoiceRow, current InvoiceRow, previousWasSeparate bool) bool {
	if previous == nil {
		return true
	}
	if previous.VendorNumber != current.VendorNumber {
		return true
	}
	return current.PaySeparately || previousWasSeparate
}
