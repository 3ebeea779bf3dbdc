package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/erp/payables/internal/domain/payables"
	"github.com/erp/payables/internal/infrastructure/migration"
	"github.com/erp/payables/internal/infrastructure/persistence/models"
)

// newSQLiteDB opens a migrated SQLite database in a temp dir
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := NewDatabase(sqliteConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)

	// The migrator owns sqlDB once closed, so it is left open here
	m, err := migration.New(sqlDB, migration.Config{Driver: "sqlite"}, nil)
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return db.DB
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}

// apFixture seeds one company's AP tables
type apFixture struct {
	t         *testing.T
	db        *gorm.DB
	companyID uuid.UUID
}

func newAPFixture(t *testing.T, db *gorm.DB) *apFixture {
	return &apFixture{t: t, db: db, companyID: uuid.New()}
}

func (f *apFixture) create(value any) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(value).Error)
}

func (f *apFixture) control(payAfterDiscount bool) {
	f.create(&models.AccountPayableControlModel{
		CompanyModel:         f.companyModel(),
		PayAfterDiscountDate: payAfterDiscount,
	})
}

func (f *apFixture) companyModel() models.CompanyModel {
	return models.CompanyModel{
		BaseModel: models.BaseModel{ID: uuid.New()},
		CompanyID: f.companyID,
	}
}

func (f *apFixture) vendor(number int64, name string, group string) *models.VendorModel {
	v := &models.VendorModel{
		CompanyModel: f.companyModel(),
		Number:       number,
		Name:         name,
		Address1:     "100 Main St",
		City:         "Springfield",
		State:        "IL",
		PostalCode:   ptr("62701"),
	}
	if group != "" {
		v.VendorGroup = ptr(group)
	}
	f.create(v)
	return v
}

// invoice seeds an open invoice paid to vendor
func (f *apFixture) invoice(vendor *models.VendorModel, number string, invoiceDate time.Time, gross string, mutate ...func(*models.AccountPayableInvoiceModel)) *models.AccountPayableInvoiceModel {
	inv := &models.AccountPayableInvoiceModel{
		CompanyModel:   f.companyModel(),
		VendorID:       vendor.ID,
		PayToID:        vendor.ID,
		Invoice:        number,
		InvoiceDate:    invoiceDate,
		DueDate:        invoiceDate.AddDate(0, 0, 30),
		InvoiceAmount:  decimal.RequireFromString(gross),
		DiscountAmount: decimal.Zero,
		Status:         models.InvoiceStatusOpen,
	}
	for _, m := range mutate {
		m(inv)
	}
	f.create(inv)
	return inv
}

func (f *apFixture) bank(number int64) *models.BankModel {
	b := &models.BankModel{
		CompanyModel: f.companyModel(),
		Number:       number,
		Name:         "Operating",
	}
	f.create(b)
	return b
}

// payment records a check against bank for the given invoices
func (f *apFixture) payment(bank *models.BankModel, vendor *models.VendorModel, number string, paid time.Time, invoices ...*models.AccountPayableInvoiceModel) *models.AccountPayablePaymentModel {
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.InvoiceAmount)
	}

	p := &models.AccountPayablePaymentModel{
		CompanyModel:  f.companyModel(),
		BankID:        bank.ID,
		VendorID:      vendor.ID,
		PaymentNumber: number,
		PaymentDate:   paid,
		Amount:        total,
		Status:        payables.PaymentStatusOutstanding,
		Version:       1,
	}
	require.NoError(f.t, f.db.Omit("Bank", "Vendor", "Details").Create(p).Error)

	for _, inv := range invoices {
		detail := &models.AccountPayablePaymentDetailModel{
			ID:        uuid.New(),
			PaymentID: p.ID,
			InvoiceID: inv.ID,
			Amount:    inv.InvoiceAmount,
			Discount:  inv.DiscountAmount,
		}
		require.NoError(f.t, f.db.Omit("Invoice").Create(detail).Error)
	}
	return p
}
