package payables

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/erp/payables/internal/domain/payables"
	"github.com/erp/payables/internal/infrastructure/logger"
	"github.com/erp/payables/internal/infrastructure/telemetry"
)

// DefaultReservationTTL is how long a reserved check number range is held
const DefaultReservationTTL = 30 * time.Minute

// CheckPreviewService plans a check run and guards its number range
type CheckPreviewService struct {
	rows           payables.InvoiceRowSource
	collisions     *payables.CollisionValidator
	reservations   payables.CheckNumberReservationStore
	reservationTTL time.Duration
	queryTimeout   time.Duration
	metrics        *telemetry.CheckRunMetrics
	logger         *zap.Logger
	now            func() time.Time
}

// PreviewOption configures a CheckPreviewService
type PreviewOption func(*CheckPreviewService)

// WithReservations holds the planned range in store for ttl after a clean
// collision check. A nil store disables reservation.
func WithReservations(store payables.CheckNumberReservationStore, ttl time.Duration) PreviewOption {
	return func(s *CheckPreviewService) {
		s.reservations = store
		if ttl > 0 {
			s.reservationTTL = ttl
		}
	}
}

// WithQueryTimeout bounds the invoice query and the collision query
func WithQueryTimeout(d time.Duration) PreviewOption {
	return func(s *CheckPreviewService) {
		s.queryTimeout = d
	}
}

// WithPreviewMetrics records run outcomes on m
func WithPreviewMetrics(m *telemetry.CheckRunMetrics) PreviewOption {
	return func(s *CheckPreviewService) {
		s.metrics = m
	}
}

// WithPreviewLogger sets the service logger
func WithPreviewLogger(l *zap.Logger) PreviewOption {
	return func(s *CheckPreviewService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewCheckPreviewService creates a new CheckPreviewService
func NewCheckPreviewService(rows payables.InvoiceRowSource, ledger payables.PaymentLedger, opts ...PreviewOption) *CheckPreviewService {
	s := &CheckPreviewService{
		rows:           rows,
		collisions:     payables.NewCollisionValidator(ledger),
		reservationTTL: DefaultReservationTTL,
		logger:         zap.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reservation is the hold placed on a run's check numbers
type Reservation struct {
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CheckRunResult is an approved check run preview
type CheckRunResult struct {
	RunID       string                    `json:"run_id"`
	Preview     *payables.CheckRunPreview `json:"preview"`
	Range       payables.CheckNumberRange `json:"-"`
	Reservation *Reservation              `json:"reservation,omitempty"`
}

// FirstCheckNumber returns the first number the run consumes, or 0 for an empty run
func (r *CheckRunResult) FirstCheckNumber() payables.CheckNumber {
	if r.Range.Count == 0 {
		return 0
	}
	return r.Range.Start
}

// LastCheckNumber returns the last number the run consumes, or 0 for an empty run
func (r *CheckRunResult) LastCheckNumber() payables.CheckNumber {
	if r.Range.Count == 0 {
		return 0
	}
	return r.Range.End()
}

// Preview validates filter, plans the run from the selected invoices and
// checks the run's number range against the bank's payment ledger.
//
// An empty selection returns an empty preview without a collision query.
// A range that overlaps used or reserved numbers returns a
// *payables.CheckNumberInUseError and no preview.
func (s *CheckPreviewService) Preview(ctx context.Context, filter payables.CheckPreviewFilter) (*CheckRunResult, error) {
	started := s.now()
	runID := uuid.NewString()

	ctx, span := telemetry.StartServiceSpan(ctx, "check_run", "preview")
	defer span.End()

	ctx, log := logger.WithRunID(ctx, logger.Enrich(ctx, s.logger), runID)
	ctx, log = logger.WithCompanyID(ctx, log, filter.CompanyID.String())
	ctx, log = logger.WithBankNumber(ctx, log, filter.BankNumber)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, filter.CompanyID.String(),
		telemetry.SpanAttrBankNumber, filter.BankNumber,
		telemetry.SpanAttrCheckNumber, filter.CheckNumber,
		telemetry.SpanAttrSortBy, filter.SortBy.String(),
	)

	fail := func(err error) (*CheckRunResult, error) {
		telemetry.RecordError(span, err)
		s.metrics.RecordRun(ctx, filter.BankNumber, telemetry.CheckRunOutcomeFailed, 0, s.now().Sub(started))
		log.Error("Check run preview failed", zap.Error(err))
		return nil, err
	}

	if err := filter.Validate(); err != nil {
		return fail(err)
	}

	queryCtx, cancel := s.withQueryTimeout(ctx)
	defer cancel()

	preview, err := payables.PlanCheckRun(s.rows.StreamCheckPreviewRows(queryCtx, filter), filter.StartingCheckNumber())
	if err != nil {
		return fail(fmt.Errorf("plan check run: %w", err))
	}

	result := &CheckRunResult{
		RunID:   runID,
		Preview: preview,
		Range:   preview.NumberRange(filter.CompanyID, filter.BankNumber),
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCheckCount, preview.Len(),
		telemetry.SpanAttrInvoiceCount, preview.InvoiceCount(),
		telemetry.SpanAttrNetPaid, preview.Totals().NetPaid.String(),
	)

	if preview.IsEmpty() {
		s.metrics.RecordRun(ctx, filter.BankNumber, telemetry.CheckRunOutcomeEmpty, 0, s.now().Sub(started))
		telemetry.SetOK(span)
		log.Info("No invoices selected for check run")
		return result, nil
	}

	collision, err := s.collisions.Check(queryCtx, result.Range)
	if err != nil {
		return fail(err)
	}
	if collision.Collides() {
		return s.rejectRange(ctx, span, log, filter, started, collision)
	}

	if s.reservations != nil {
		conflicts, err := s.reservations.Reserve(ctx, result.Range, runID, s.reservationTTL)
		if err != nil {
			return fail(fmt.Errorf("reserve check numbers %s-%s: %w", result.Range.Start, result.Range.End(), err))
		}
		if len(conflicts) > 0 {
			return s.rejectRange(ctx, span, log, filter, started, payables.CollisionResult{
				Range:     result.Range,
				Conflicts: conflicts,
			})
		}
		result.Reservation = &Reservation{
			Owner:     runID,
			ExpiresAt: started.Add(s.reservationTTL),
		}
	}

	s.metrics.RecordRun(ctx, filter.BankNumber, telemetry.CheckRunOutcomePlanned, preview.Len(), s.now().Sub(started))
	telemetry.SetOK(span)
	log.Info("Check run planned",
		zap.Int("checks", preview.Len()),
		zap.Int("invoices", preview.InvoiceCount()),
		zap.Stringer("first_check", result.Range.Start),
		zap.Stringer("last_check", result.Range.End()),
		zap.String("net_paid", preview.Totals().NetPaid.String()),
		zap.Bool("reserved", result.Reservation != nil),
	)
	return result, nil
}

// Release drops the reservation held by result, if any
func (s *CheckPreviewService) Release(ctx context.Context, result *CheckRunResult) error {
	if s.reservations == nil || result == nil || result.Reservation == nil {
		return nil
	}
	if err := s.reservations.Release(ctx, result.Range, result.Reservation.Owner); err != nil {
		return fmt.Errorf("release check numbers %s-%s: %w", result.Range.Start, result.Range.End(), err)
	}
	result.Reservation = nil
	return nil
}

func (s *CheckPreviewService) rejectRange(
	ctx context.Context,
	span trace.Span,
	log *zap.Logger,
	filter payables.CheckPreviewFilter,
	started time.Time,
	collision payables.CollisionResult,
) (*CheckRunResult, error) {
	err := collision.Err()
	telemetry.SetAttribute(span, telemetry.SpanAttrConflicts, collision.Conflicts)
	telemetry.RecordError(span, err)
	s.metrics.RecordCollisions(ctx, filter.BankNumber, len(collision.Conflicts))
	s.metrics.RecordRun(ctx, filter.BankNumber, telemetry.CheckRunOutcomeCollision, 0, s.now().Sub(started))
	log.Warn("Check numbers previously used",
		zap.Strings("conflicts", collision.Conflicts),
		zap.Stringer("first_check", collision.Range.Start),
		zap.Stringer("last_check", collision.Range.End()),
	)
	return nil, err
}

func (s *CheckPreviewService) withQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// IsCheckNumberInUse reports whether err rejected a run for used check numbers
func IsCheckNumberInUse(err error) bool {
	return errors.Is(err, payables.ErrCheckNumberInUse)
}
