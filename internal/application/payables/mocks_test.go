package payables

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/erp/payables/internal/domain/payables"
	"github.com/erp/payables/internal/domain/shared/valueobject"
)

// MockInvoiceRowSource is a mock implementation of payables.InvoiceRowSource
type MockInvoiceRowSource struct {
	mock.Mock
}

func (m *MockInvoiceRowSource) StreamCheckPreviewRows(ctx context.Context, filter payables.CheckPreviewFilter) iter.Seq2[payables.InvoiceRow, error] {
	args := m.Called(ctx, filter)
	return args.Get(0).(iter.Seq2[payables.InvoiceRow, error])
}

// MockPaymentRepository is a mock implementation of payables.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindUsedCheckNumbers(ctx context.Context, companyID uuid.UUID, bankNumber int64, numbers []string) ([]string, error) {
	args := m.Called(ctx, companyID, bankNumber, numbers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockPaymentRepository) FindByBankAndNumber(ctx context.Context, companyID uuid.UUID, bankNumber int64, number payables.CheckNumber) (*payables.Payment, error) {
	args := m.Called(ctx, companyID, bankNumber, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payables.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Save(ctx context.Context, payment *payables.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

// MockReservationStore is a mock implementation of payables.CheckNumberReservationStore
type MockReservationStore struct {
	mock.Mock
}

func (m *MockReservationStore) Reserve(ctx context.Context, r payables.CheckNumberRange, owner string, ttl time.Duration) ([]string, error) {
	args := m.Called(ctx, r, owner, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockReservationStore) Release(ctx context.Context, r payables.CheckNumberRange, owner string) error {
	args := m.Called(ctx, r, owner)
	return args.Error(0)
}

var testCompanyID = uuid.MustParse("6f1c2a8e-0b7d-4c55-9a3e-1d2f3a4b5c6d")

func testFilter() payables.CheckPreviewFilter {
	return payables.CheckPreviewFilter{
		CompanyID:   testCompanyID,
		CheckDate:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		CheckNumber: 5001,
		BankNumber:  2,
		SortBy:      payables.SortByVendorName,
	}
}

var rowSeq int

func testRow(vendor int64, gross string) payables.InvoiceRow {
	rowSeq++
	return payables.InvoiceRow{
		InvoiceID:     uuid.New(),
		VendorNumber:  vendor,
		VendorName:    fmt.Sprintf("Vendor %d", vendor),
		Address:       valueobject.NewAddress("1 Main St", "Springfield", "IL"),
		InvoiceNumber: fmt.Sprintf("INV-%d", rowSeq),
		InvoiceDate:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Gross:         decimal.RequireFromString(gross),
	}
}

func rowsOf(rows ...payables.InvoiceRow) iter.Seq2[payables.InvoiceRow, error] {
	return payables.RowsFromSlice(rows)
}

func failingRows(err error) iter.Seq2[payables.InvoiceRow, error] {
	return func(yield func(payables.InvoiceRow, error) bool) {
		yield(payables.InvoiceRow{}, err)
	}
}
