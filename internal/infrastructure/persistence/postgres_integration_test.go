//go:build integration

package persistence

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/erp/payables/internal/domain/payables"
	"github.com/erp/payables/internal/domain/shared"
	"github.com/erp/payables/internal/infrastructure/config"
	"github.com/erp/payables/internal/infrastructure/migration"
	"github.com/erp/payables/internal/infrastructure/persistence/models"
)

// newPostgresDB starts a PostgreSQL container and applies the embedded migrations
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("payables_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	db, err := NewDatabase(&config.DatabaseConfig{
		Driver:          config.DriverPostgres,
		Host:            host,
		Port:            portNum,
		User:            "postgres",
		Password:        "postgres",
		DBName:          "payables_test",
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    1,
		ConnMaxLifetime: 5,
		ConnMaxIdleTime: 5,
		LogLevel:        "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	m, err := migration.New(sqlDB, migration.Config{Driver: "postgres"}, nil)
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return db.DB
}

func TestPostgres_CheckRunRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := newPostgresDB(t)
	f := newAPFixture(t, db)
	f.control(false)

	acme := f.vendor(20, "Acme Supply", "UTIL")
	zeta := f.vendor(10, "Zeta Parts", "UTIL")
	a1 := f.invoice(acme, "A-1", day(2024, 3, 1), "100.00", func(m *models.AccountPayableInvoiceModel) {
		m.DiscountAmount = decimal.RequireFromString("100.00")
		m.DiscountPercent = decimal.NewNullDecimal(decimal.RequireFromString("0.02"))
		m.DiscountDate = ptr(day(2024, 3, 18))
	})
	f.invoice(zeta, "Z-1", day(2024, 3, 2), "40.00", func(m *models.AccountPayableInvoiceModel) {
		m.DiscountDate = ptr(day(2024, 3, 25))
	})

	ctx := context.Background()
	filter := f.previewFilter(payables.SortByVendorNumber)
	filter.VendorGroup = "UTIL"
	filter.DiscountDate = ptr(day(2024, 3, 20))

	rows := collectRows(t, NewGormCheckPreviewRepository(db).StreamCheckPreviewRows(ctx, filter))
	require.Len(t, rows, 1)
	assert.Equal(t, a1.ID, rows[0].InvoiceID)
	assert.True(t, rows[0].DiscountPercent.Decimal.Equal(decimal.RequireFromString("0.02")))

	preview, err := payables.PlanCheckRun(payables.RowsFromSlice(rows), filter.StartingCheckNumber())
	require.NoError(t, err)
	assert.True(t, preview.Totals().NetPaid.Equal(decimal.RequireFromString("98")), preview.Totals().NetPaid)

	bank := f.bank(1)
	f.payment(bank, acme, "1001", day(2024, 3, 15), a1)

	repo := NewGormPaymentRepository(db)
	result, err := payables.NewCollisionValidator(repo).Check(ctx, preview.NumberRange(f.companyID, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"1001"}, result.Conflicts)

	payment, err := repo.FindByBankAndNumber(ctx, f.companyID, 1, 1001)
	require.NoError(t, err)
	require.NoError(t, payment.Void(day(2024, 3, 16)))
	require.NoError(t, repo.Save(ctx, payment))

	stale, err := repo.FindByBankAndNumber(ctx, f.companyID, 1, 1001)
	require.NoError(t, err)
	assert.True(t, stale.IsVoided())
	stale.Version = 1
	stale.Status = payables.PaymentStatusOutstanding
	stale.DateVoided = nil
	require.NoError(t, stale.Void(day(2024, 3, 17)))
	assert.ErrorIs(t, repo.Save(ctx, stale), shared.ErrConcurrentModification)
}
