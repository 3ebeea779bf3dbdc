package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/payables/internal/domain/payables"
	"github.com/erp/payables/internal/domain/shared"
	"github.com/erp/payables/internal/infrastructure/persistence/models"
)

func TestGormPaymentRepository_FindUsedCheckNumbers(t *testing.T) {
	db := newSQLiteDB(t)
	f := newAPFixture(t, db)

	vendor := f.vendor(10, "Acme Supply", "")
	operating := f.bank(1)
	payroll := f.bank(2)
	f.payment(operating, vendor, "1001", day(2024, 3, 1))
	f.payment(operating, vendor, "1003", day(2024, 3, 1))
	f.payment(payroll, vendor, "1002", day(2024, 3, 1))

	closed := f.bank(3)
	f.payment(closed, vendor, "1001", day(2024, 3, 1))
	require.NoError(t, db.Model(closed).Update("deleted", true).Error)

	other := newAPFixture(t, db)
	otherVendor := other.vendor(10, "Acme Supply", "")
	other.payment(other.bank(1), otherVendor, "1002", day(2024, 3, 1))

	repo := NewGormPaymentRepository(db)
	ctx := context.Background()
	numbers := []string{"1001", "1002", "1003", "1004"}

	t.Run("scoped to company and bank", func(t *testing.T) {
		used, err := repo.FindUsedCheckNumbers(ctx, f.companyID, 1, numbers)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"1001", "1003"}, used)

		used, err = repo.FindUsedCheckNumbers(ctx, f.companyID, 2, numbers)
		require.NoError(t, err)
		assert.Equal(t, []string{"1002"}, used)
	})

	t.Run("deleted bank has no used numbers", func(t *testing.T) {
		used, err := repo.FindUsedCheckNumbers(ctx, f.companyID, 3, numbers)
		require.NoError(t, err)
		assert.Empty(t, used)
	})

	t.Run("unknown bank", func(t *testing.T) {
		used, err := repo.FindUsedCheckNumbers(ctx, f.companyID, 99, numbers)
		require.NoError(t, err)
		assert.Empty(t, used)
	})

	t.Run("empty number list skips the query", func(t *testing.T) {
		used, err := repo.FindUsedCheckNumbers(ctx, f.companyID, 1, nil)
		require.NoError(t, err)
		assert.Nil(t, used)
	})

	t.Run("feeds the collision validator", func(t *testing.T) {
		validator := payables.NewCollisionValidator(repo)
		result, err := validator.Check(ctx, payables.CheckNumberRange{
			CompanyID:  f.companyID,
			BankNumber: 1,
			Start:      1000,
			Count:      5,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"1001", "1003"}, result.Conflicts)

		var inUse *payables.CheckNumberInUseError
		require.ErrorAs(t, result.Err(), &inUse)
		assert.Equal(t, int64(1), inUse.BankNumber)
	})
}

func TestGormPaymentRepository_FindUsedCheckNumbers_Query(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	companyID := uuid.New()
	repo := NewGormPaymentRepository(db.DB)

	t.Run("selects distinct payment numbers joined to active banks", func(t *testing.T) {
		mock.ExpectQuery(`SELECT DISTINCT "account_payable_payments"."payment_number" FROM "account_payable_payments" JOIN banks ON banks.id = account_payable_payments.bank_id AND banks.deleted = \$1 WHERE account_payable_payments.company_id = \$2 AND banks.number = \$3 AND account_payable_payments.payment_number IN \(\$4,\$5\)`).
			WithArgs(false, companyID, int64(7), "500", "501").
			WillReturnRows(sqlmock.NewRows([]string{"payment_number"}).AddRow("501"))

		used, err := repo.FindUsedCheckNumbers(context.Background(), companyID, 7, []string{"500", "501"})
		require.NoError(t, err)
		assert.Equal(t, []string{"501"}, used)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps query errors", func(t *testing.T) {
		mock.ExpectQuery(`SELECT DISTINCT`).WillReturnError(errors.New("connection reset"))

		used, err := repo.FindUsedCheckNumbers(context.Background(), companyID, 7, []string{"500"})
		require.Error(t, err)
		assert.Nil(t, used)
		assert.Contains(t, err.Error(), "find used check numbers")
		assert.Contains(t, err.Error(), "connection reset")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPaymentRepository_FindByBankAndNumber(t *testing.T) {
	db := newSQLiteDB(t)
	f := newAPFixture(t, db)

	vendor := f.vendor(10, "Acme Supply", "")
	inv1 := f.invoice(vendor, "A-1", day(2024, 3, 1), "100.00")
	inv2 := f.invoice(vendor, "A-2", day(2024, 3, 2), "40.00")
	bank := f.bank(1)
	stored := f.payment(bank, vendor, "2001", day(2024, 3, 15), inv1, inv2)

	repo := NewGormPaymentRepository(db)
	ctx := context.Background()

	t.Run("loads payment with vendor and details", func(t *testing.T) {
		payment, err := repo.FindByBankAndNumber(ctx, f.companyID, 1, 2001)
		require.NoError(t, err)

		assert.Equal(t, stored.ID, payment.ID)
		assert.Equal(t, f.companyID, payment.CompanyID)
		assert.Equal(t, int64(1), payment.BankNumber)
		assert.Equal(t, int64(10), payment.VendorNumber)
		assert.Equal(t, "Acme Supply", payment.VendorName)
		assert.Equal(t, "2001", payment.Number)
		assert.Equal(t, payables.PaymentStatusOutstanding, payment.Status)
		assert.True(t, payment.Amount.Equal(decimal.RequireFromString("140")), payment.Amount)
		assert.True(t, payment.PaymentDate.Equal(day(2024, 3, 15)))
		assert.Nil(t, payment.DateVoided)
		assert.Equal(t, 1, payment.Version)

		require.Len(t, payment.Details, 2)
		var invoices []string
		for _, d := range payment.Details {
			invoices = append(invoices, d.InvoiceNumber)
		}
		assert.ElementsMatch(t, []string{"A-1", "A-2"}, invoices)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.FindByBankAndNumber(ctx, f.companyID, 1, 2002)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = repo.FindByBankAndNumber(ctx, f.companyID, 2, 2001)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = repo.FindByBankAndNumber(ctx, uuid.New(), 1, 2001)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormPaymentRepository_Save(t *testing.T) {
	db := newSQLiteDB(t)
	f := newAPFixture(t, db)

	vendor := f.vendor(10, "Acme Supply", "")
	bank := f.bank(1)
	f.payment(bank, vendor, "3001", day(2024, 3, 15), f.invoice(vendor, "A-1", day(2024, 3, 1), "100.00"))

	repo := NewGormPaymentRepository(db)
	ctx := context.Background()

	payment, err := repo.FindByBankAndNumber(ctx, f.companyID, 1, 3001)
	require.NoError(t, err)
	stale := *payment

	require.NoError(t, payment.Void(day(2024, 3, 20)))
	require.NoError(t, repo.Save(ctx, payment))

	reloaded, err := repo.FindByBankAndNumber(ctx, f.companyID, 1, 3001)
	require.NoError(t, err)
	assert.Equal(t, payables.PaymentStatusVoided, reloaded.Status)
	require.NotNil(t, reloaded.DateVoided)
	assert.True(t, reloaded.DateVoided.Equal(day(2024, 3, 20)))
	assert.Equal(t, 2, reloaded.Version)

	t.Run("stale copy is rejected", func(t *testing.T) {
		stale.Status = payables.PaymentStatusOutstanding
		stale.DateVoided = nil
		require.NoError(t, stale.Void(day(2024, 3, 21)))

		err := repo.Save(ctx, &stale)
		assert.ErrorIs(t, err, shared.ErrConcurrentModification)

		var count int64
		require.NoError(t, db.Model(&models.AccountPayablePaymentModel{}).
			Where("version = ?", 2).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestGormPaymentRepository_Save_Query(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	repo := NewGormPaymentRepository(db.DB)
	payment := &payables.Payment{
		ID:          uuid.New(),
		Number:      "4001",
		PaymentDate: day(2024, 3, 1),
		Status:      payables.PaymentStatusOutstanding,
		Version:     3,
	}
	require.NoError(t, payment.Void(day(2024, 3, 2)))

	t.Run("updates with version check", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "account_payable_payments" SET .* WHERE id = \$\d AND version = \$\d`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Save(context.Background(), payment))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no matching version is a concurrent modification", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "account_payable_payments"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Save(context.Background(), payment)
		assert.ErrorIs(t, err, shared.ErrConcurrentModification)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps driver errors", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "account_payable_payments"`).
			WillReturnError(errors.New("deadlock detected"))

		err := repo.Save(context.Background(), payment)
		require.Error(t, err)
		assert.NotErrorIs(t, err, shared.ErrConcurrentModification)
		assert.Contains(t, err.Error(), "save check 4001")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
