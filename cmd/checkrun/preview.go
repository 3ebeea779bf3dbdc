package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/erp/payables/internal/domain/payables"
)

const dateLayout = "2006-01-02"

type previewFlags struct {
	company      string
	checkDate    string
	checkNumber  int64
	bank         int64
	sort         string
	vendorGroup  string
	dueDate      string
	discountDate string
	format       string
	release      bool
}

func newPreviewCmd(rt *runtime) *cobra.Command {
	var f previewFlags

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Plan a check run from open invoices",
		Long: `Selects the open invoices matching the filter, groups them into checks
numbered from --check-number and verifies no number in the run is already
recorded for the bank.

Exits with status 2 when a planned check number is already in use.`,
		Example: `  checkrun preview --company 6f1c2a8e-0b7d-4c55-9a3e-1d2f3a4b5c6d \
    --check-date 2024-03-15 --check-number 1001 --bank 1 --sort V --format table`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := f.filter(rt.cfg.CheckRun.DefaultSort)
			if err != nil {
				return err
			}
			if err := validateFormat(f.format); err != nil {
				return err
			}

			svc, err := rt.previewService(cmd.Context())
			if err != nil {
				return err
			}

			result, err := svc.Preview(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if f.format == formatTable {
				err = writePreviewTable(cmd.OutOrStdout(), result)
			} else {
				err = writeJSON(cmd.OutOrStdout(), newPreviewOutput(result))
			}
			if err != nil {
				return err
			}

			if f.release {
				return svc.Release(cmd.Context(), result)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.company, "company", "", "Company ID (UUID)")
	flags.StringVar(&f.checkDate, "check-date", "", "Date printed on the checks (YYYY-MM-DD)")
	flags.Int64Var(&f.checkNumber, "check-number", 0, "First check number of the run")
	flags.Int64Var(&f.bank, "bank", 0, "Bank account number the checks draw on")
	flags.StringVar(&f.sort, "sort", "", "Check order: V (vendor name) or N (vendor number); defaults to checkrun.default_sort")
	flags.StringVar(&f.vendorGroup, "vendor-group", "", "Only pay vendors in this group")
	flags.StringVar(&f.dueDate, "due-date", "", "Only pay invoices due on or before this date (YYYY-MM-DD)")
	flags.StringVar(&f.discountDate, "discount-date", "", "Discount cutoff date (YYYY-MM-DD)")
	flags.StringVar(&f.format, "format", formatJSON, "Output format: json or table")
	flags.BoolVar(&f.release, "release", false, "Release the check number reservation after printing the preview")

	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("check-date")
	_ = cmd.MarkFlagRequired("check-number")
	_ = cmd.MarkFlagRequired("bank")

	return cmd
}

// filter converts the flags into a check preview filter.
// Field rules are left to CheckPreviewFilter.Validate.
func (f *previewFlags) filter(defaultSort string) (payables.CheckPreviewFilter, error) {
	companyID, err := uuid.Parse(f.company)
	if err != nil {
		return payables.CheckPreviewFilter{}, fmt.Errorf("invalid --company %q: %w", f.company, err)
	}
	checkDate, err := parseDate("check-date", f.checkDate)
	if err != nil {
		return payables.CheckPreviewFilter{}, err
	}

	sortBy := f.sort
	if sortBy == "" {
		sortBy = defaultSort
	}

	filter := payables.CheckPreviewFilter{
		CompanyID:   companyID,
		CheckDate:   checkDate,
		CheckNumber: f.checkNumber,
		BankNumber:  f.bank,
		SortBy:      payables.SortOrder(strings.ToUpper(sortBy)),
		VendorGroup: strings.TrimSpace(f.vendorGroup),
	}

	if filter.DueDate, err = parseOptionalDate("due-date", f.dueDate); err != nil {
		return payables.CheckPreviewFilter{}, err
	}
	if filter.DiscountDate, err = parseOptionalDate("discount-date", f.discountDate); err != nil {
		return payables.CheckPreviewFilter{}, err
	}
	return filter, nil
}

func parseDate(flag, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: expected YYYY-MM-DD", flag, value)
	}
	return t, nil
}

func parseOptionalDate(flag, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := parseDate(flag, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
