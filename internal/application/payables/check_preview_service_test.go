package payables

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erp/payables/internal/domain/payables"
	"github.com/erp/payables/internal/domain/shared"
	"github.com/erp/payables/internal/infrastructure/cache"
)

func TestCheckPreviewService_Preview_PlansRun(t *testing.T) {
	rows := new(MockInvoiceRowSource)
	ledger := new(MockPaymentRepository)
	core, logs := observer.New(zapcore.InfoLevel)

	filter := testFilter()
	rows.On("StreamCheckPreviewRows", mock.Anything, filter).
		Return(rowsOf(testRow(1, "100.00"), testRow(1, "25.50"), testRow(2, "40.00")))
	ledger.On("FindUsedCheckNumbers", mock.Anything, testCompanyID, int64(2), []string{"5001", "5002"}).
		Return(nil, nil)

	svc := NewCheckPreviewService(rows, ledger, WithPreviewLogger(zap.New(core)))
	result, err := svc.Preview(context.Background(), filter)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 2, result.Preview.Len())
	assert.Equal(t, 3, result.Preview.InvoiceCount())
	assert.Equal(t, payables.CheckNumber(5001), result.FirstCheckNumber())
	assert.Equal(t, payables.CheckNumber(5002), result.LastCheckNumber())
	assert.Nil(t, result.Reservation)
	assert.Equal(t, "165.5", result.Preview.Totals().NetPaid.String())

	planned := logs.FilterMessage("Check run planned").All()
	require.Len(t, planned, 1)
	fields := planned[0].ContextMap()
	assert.Equal(t, result.RunID, fields["run_id"])
	assert.Equal(t, filter.CompanyID.String(), fields["company_id"])
	assert.Equal(t, filter.BankNumber, fields["bank_number"])
	assert.Equal(t, int64(2), fields["checks"])

	rows.AssertExpectations(t)
	ledger.AssertExpectations(t)
}

func TestCheckPreviewService_Preview_EmptyRunSkipsCollisionCheck(t *testing.T) {
	rows := new(MockInvoiceRowSource)
	ledger := new(MockPaymentRepository)
	store := new(MockReservationStore)

	filter := testFilter()
	rows.On("StreamCheckPreviewRows", mock.Anything, filter).Return(rowsOf())

	svc := NewCheckPreviewService(rows, ledger, WithReservations(store, time.Minute))
	result, err := svc.Preview(context.Background(), filter)
	require.NoError(t, err)

	assert.True(t, result.Preview.IsEmpty())
	assert.Zero(t, result.FirstCheckNumber())
	assert.Zero(t, result.LastCheckNumber())
	ledger.AssertNotCalled(t, "FindUsedCheckNumbers", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckPreviewService_Preview_InvalidFilter(t *testing.T) {
	rows := new(MockInvoiceRowSource)
	ledger := new(MockPaymentRepository)

	filter := testFilter()
	filter.CheckNumber = 0
	filter.SortBy = "X"

	svc := NewCheckPreviewService(rows, ledger)
	result, err := svc.Preview(context.Background(), filter)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Contains(t, err.Error(), "CheckNumber")
	assert.Contains(t, err.Error(), "SortBy")
	rows.AssertNotCalled(t, "StreamCheckPreviewRows", mock.Anything, mock.Anything)
}

func TestCheckPreviewService_Preview_Collision(t *testing.T) {
	rows := new(MockInvoiceRowSource)
	ledger := new(MockPaymentRepository)
	store := new(MockReservationStore)
	core, logs := observer.New(zapcore.WarnLevel)

	filter := testFilter()
	rows.On("StreamCheckPreviewRows", mock.Anything, filter).
		Return(rowsOf(testRow(1, "10"), testRow(2, "10"), testRow(3, "10")))
	ledger.On("FindUsedCheckNumbers", mock.Anything, testCompanyID, int64(2), []string{"5001", "5002", "5003"}).
		Return([]string{"5003", "5001"}, nil)

	svc := NewCheckPreviewService(rows, ledger,
		WithReservations(store, time.Minute),
		WithPreviewLogger(zap.New(core)),
	)
	result, err := svc.Preview(context.Background(), filter)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, IsCheckNumberInUse(err))

	var inUse *payables.CheckNumberInUseError
	require.ErrorAs(t, err, &inUse)
	assert.Equal(t, int64(2), inUse.BankNumber)
	assert.Equal(t, []string{"5001", "5003"}, inUse.Numbers)

	assert.Equal(t, 1, logs.FilterMessage("Check numbers previously used").Len())
	store.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckPreviewService_Preview_LedgerFailureIsNotACollision(t *testing.T) {
	rows := new(MockInvoiceRowSource)
	ledger := new(MockPaymentRepository)

	filter := testFilter()
	rows.On("StreamCheckPreviewRows", mock.Anything, filter).Return(rowsOf(testRow(1, "10")))
	ledger.On("FindUsedCheckNumbers", mock.Anything, testCompanyID, int64(2), []string{"5001"}).
		Return(nil, errors.New("connection refused"))

	svc := NewCheckPreviewService(rows, ledger)
	result, err := svc.Preview(context.Background(), filter)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.False(t, IsCheckNumberInUse(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCheckPreviewService_Preview_RowSourceFailure(t *testing.T) {
	rows := new(MockInvoiceRowSource)
	ledger := new(MockPaymentRepository)

	filter := testFilter()
	rows.On("StreamCheckPreviewRows", mock.Anything, filter).Return(failingRows(errors.New("query timeout")))

	svc := NewCheckPreviewService(rows, ledger)
	result, err := svc.Preview(context.Background(), filter)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan check run")
	assert.Contains(t, err.Error(), "query timeout")
	ledger.AssertNotCalled(t, "FindUsedCheckNumbers", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckPreviewService_Preview_MalformedRow(t *testing.T) {
	rows := new(MockInvoiceRowSource)
	ledger := new(MockPaymentRepository)

	bad := testRow(1, "10")
	bad.InvoiceNumber = " "
	filter := testFilter()
	rows.On("StreamCheckPreviewRows", mock.Anything, filter).Return(rowsOf(testRow(1, "10"), bad))

	svc := NewCheckPreviewService(rows, ledger)
	_, err := svc.Preview(context.Background(), filter)

	assert.ErrorIs(t, err, payables.ErrDataIntegrity)
}

func TestCheckPreviewService_Preview_QueryTimeout(t *testing.T) {
	rows := new(MockInvoiceRowSource)
	ledger := new(MockPaymentRepository)

	filter := testFilter()
	rows.On("StreamCheckPreviewRows", mock.Anything, filter).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
		}).
		Return(rowsOf())

	svc := NewCheckPreviewService(rows, ledger, WithQueryTimeout(time.Minute))
	_, err := svc.Preview(context.Background(), filter)
	require.NoError(t, err)
	rows.AssertExpectations(t)
}

func TestCheckPreviewService_Preview_Reservation(t *testing.T) {
	newService := func(store *MockReservationStore) (*CheckPreviewService, payables.CheckPreviewFilter) {
		rows := new(MockInvoiceRowSource)
		ledger := new(MockPaymentRepository)
		filter := testFilter()
		rows.On("StreamCheckPreviewRows", mock.Anything, filter).Return(rowsOf(testRow(1, "10"), testRow(2, "20")))
		ledger.On("FindUsedCheckNumbers", mock.Anything, testCompanyID, int64(2), mock.Anything).Return(nil, nil)
		return NewCheckPreviewService(rows, ledger, WithReservations(store, 10*time.Minute)), filter
	}

	expectedRange := payables.CheckNumberRange{
		CompanyID:  testCompanyID,
		BankNumber: 2,
		Start:      5001,
		Count:      2,
	}

	t.Run("reserves the planned range", func(t *testing.T) {
		store := new(MockReservationStore)
		svc, filter := newService(store)
		store.On("Reserve", mock.Anything, expectedRange, mock.AnythingOfType("string"), 10*time.Minute).Return(nil, nil)

		result, err := svc.Preview(context.Background(), filter)
		require.NoError(t, err)
		require.NotNil(t, result.Reservation)
		assert.Equal(t, result.RunID, result.Reservation.Owner)
		assert.False(t, result.Reservation.ExpiresAt.IsZero())

		store.On("Release", mock.Anything, expectedRange, result.RunID).Return(nil)
		require.NoError(t, svc.Release(context.Background(), result))
		assert.Nil(t, result.Reservation)
		store.AssertExpectations(t)
	})

	t.Run("reserved by another run", func(t *testing.T) {
		store := new(MockReservationStore)
		svc, filter := newService(store)
		store.On("Reserve", mock.Anything, expectedRange, mock.Anything, mock.Anything).Return([]string{"5002"}, nil)

		result, err := svc.Preview(context.Background(), filter)
		assert.Nil(t, result)

		var inUse *payables.CheckNumberInUseError
		require.ErrorAs(t, err, &inUse)
		assert.Equal(t, []string{"5002"}, inUse.Numbers)
	})

	t.Run("store failure", func(t *testing.T) {
		store := new(MockReservationStore)
		svc, filter := newService(store)
		store.On("Reserve", mock.Anything, expectedRange, mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))

		result, err := svc.Preview(context.Background(), filter)
		assert.Nil(t, result)
		require.Error(t, err)
		assert.False(t, IsCheckNumberInUse(err))
		assert.Contains(t, err.Error(), "reserve check numbers 5001-5002")
	})
}

func TestCheckPreviewService_ConcurrentRunsForOneBank(t *testing.T) {
	store := cache.NewInMemoryReservationStore()
	defer store.Close()

	newService := func() (*CheckPreviewService, payables.CheckPreviewFilter) {
		rows := new(MockInvoiceRowSource)
		ledger := new(MockPaymentRepository)
		filter := testFilter()
		rows.On("StreamCheckPreviewRows", mock.Anything, filter).Return(rowsOf(testRow(1, "10"), testRow(2, "20")))
		ledger.On("FindUsedCheckNumbers", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
		return NewCheckPreviewService(rows, ledger, WithReservations(store, time.Minute)), filter
	}

	first, filter := newService()
	approved, err := first.Preview(context.Background(), filter)
	require.NoError(t, err)

	second, filter := newService()
	_, err = second.Preview(context.Background(), filter)
	assert.True(t, IsCheckNumberInUse(err))

	require.NoError(t, first.Release(context.Background(), approved))
	_, err = second.Preview(context.Background(), filter)
	assert.NoError(t, err)
}

func TestCheckPreviewService_Release_WithoutReservation(t *testing.T) {
	svc := NewCheckPreviewService(new(MockInvoiceRowSource), new(MockPaymentRepository))
	assert.NoError(t, svc.Release(context.Background(), nil))
	assert.NoError(t, svc.Release(context.Background(), &CheckRunResult{}))
}
