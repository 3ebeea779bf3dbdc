package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	apppayables "github.com/erp/payables/internal/application/payables"
	"github.com/erp/payables/internal/domain/payables"
)

type voidFlags struct {
	company       string
	bank          int64
	checkNumber   int64
	effectiveDate string
	dryRun        bool
	format        string
}

func newVoidCmd(rt *runtime) *cobra.Command {
	var f voidFlags

	cmd := &cobra.Command{
		Use:   "void",
		Short: "Void an issued check",
		Long: `Marks an outstanding check voided as of --effective-date.

Exits with status 3 when the check is already voided or has cleared the
bank, and with status 4 when no such check exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			companyID, err := uuid.Parse(f.company)
			if err != nil {
				return fmt.Errorf("invalid --company %q: %w", f.company, err)
			}
			effective := time.Now().UTC().Truncate(24 * time.Hour)
			if f.effectiveDate != "" {
				if effective, err = parseDate("effective-date", f.effectiveDate); err != nil {
					return err
				}
			}
			if err := validateFormat(f.format); err != nil {
				return err
			}

			svc, err := rt.voidService()
			if err != nil {
				return err
			}

			var payment *payables.Payment
			if f.dryRun {
				payment, err = svc.FetchVoidCandidate(cmd.Context(), companyID, f.bank, payables.CheckNumber(f.checkNumber))
			} else {
				payment, err = svc.Void(cmd.Context(), apppayables.VoidCheckRequest{
					CompanyID:     companyID,
					BankNumber:    f.bank,
					CheckNumber:   payables.CheckNumber(f.checkNumber),
					EffectiveDate: effective,
				})
			}
			if err != nil {
				return err
			}

			if f.format == formatTable {
				return writePaymentTable(cmd.OutOrStdout(), payment)
			}
			return writeJSON(cmd.OutOrStdout(), payment)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.company, "company", "", "Company ID (UUID)")
	flags.Int64Var(&f.bank, "bank", 0, "Bank account number the check was drawn on")
	flags.Int64Var(&f.checkNumber, "check-number", 0, "Check number to void")
	flags.StringVar(&f.effectiveDate, "effective-date", "", "Void date (YYYY-MM-DD); defaults to today")
	flags.BoolVar(&f.dryRun, "dry-run", false, "Only report whether the check can be voided")
	flags.StringVar(&f.format, "format", formatJSON, "Output format: json or table")

	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("bank")
	_ = cmd.MarkFlagRequired("check-number")

	return cmd
}
