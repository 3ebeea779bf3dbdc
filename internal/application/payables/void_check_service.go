package payables

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/payables/internal/domain/payables"
	"github.com/erp/payables/internal/domain/shared"
	"github.com/erp/payables/internal/infrastructure/logger"
	"github.com/erp/payables/internal/infrastructure/telemetry"
)

// VoidCheckService voids issued checks in the payment ledger
type VoidCheckService struct {
	payments payables.PaymentRepository
	metrics  *telemetry.CheckRunMetrics
	logger   *zap.Logger
}

// NewVoidCheckService creates a new VoidCheckService
func NewVoidCheckService(payments payables.PaymentRepository, metrics *telemetry.CheckRunMetrics, l *zap.Logger) *VoidCheckService {
	if l == nil {
		l = zap.NewNop()
	}
	return &VoidCheckService{
		payments: payments,
		metrics:  metrics,
		logger:   l,
	}
}

// VoidCheckRequest identifies the check to void and the date it takes effect
type VoidCheckRequest struct {
	CompanyID     uuid.UUID
	BankNumber    int64
	CheckNumber   payables.CheckNumber
	EffectiveDate time.Time
}

// FetchVoidCandidate loads a check and confirms it can still be voided.
// Returns shared.ErrNotFound when the bank has no such check, and
// CHECK_ALREADY_VOIDED or CHECK_ALREADY_CLEARED when it cannot be voided.
func (s *VoidCheckService) FetchVoidCandidate(ctx context.Context, companyID uuid.UUID, bankNumber int64, checkNumber payables.CheckNumber) (*payables.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "void_check", "fetch_candidate")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, companyID.String(),
		telemetry.SpanAttrBankNumber, bankNumber,
		telemetry.SpanAttrCheckNumber, int64(checkNumber),
	)

	payment, err := s.find(ctx, companyID, bankNumber, checkNumber)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := payment.CanVoid(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	return payment, nil
}

// Void marks the check voided as of req.EffectiveDate and saves it.
// A concurrent change to the check returns shared.ErrConcurrentModification.
func (s *VoidCheckService) Void(ctx context.Context, req VoidCheckRequest) (*payables.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "void_check", "void")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, req.CompanyID.String(),
		telemetry.SpanAttrBankNumber, req.BankNumber,
		telemetry.SpanAttrCheckNumber, int64(req.CheckNumber),
	)

	ctx, log := logger.WithCompanyID(ctx, logger.Enrich(ctx, s.logger), req.CompanyID.String())
	ctx, log = logger.WithBankNumber(ctx, log, req.BankNumber)
	log = log.With(zap.Stringer("check_number", req.CheckNumber))

	payment, err := s.find(ctx, req.CompanyID, req.BankNumber, req.CheckNumber)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := payment.Void(req.EffectiveDate); err != nil {
		telemetry.RecordError(span, err)
		log.Warn("Check cannot be voided", zap.Error(err))
		return nil, err
	}

	if err := s.payments.Save(ctx, payment); err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, shared.ErrConcurrentModification) {
			log.Warn("Check changed while voiding", zap.Error(err))
			return nil, err
		}
		log.Error("Failed to save voided check", zap.Error(err))
		return nil, fmt.Errorf("save voided check %s: %w", req.CheckNumber, err)
	}

	s.metrics.RecordVoid(ctx, req.BankNumber)
	telemetry.SetOK(span)
	log.Info("Check voided",
		zap.String("vendor_name", payment.VendorName),
		zap.String("amount", payment.Amount.String()),
		zap.Time("date_voided", *payment.DateVoided),
	)
	return payment, nil
}

func (s *VoidCheckService) find(ctx context.Context, companyID uuid.UUID, bankNumber int64, checkNumber payables.CheckNumber) (*payables.Payment, error) {
	if !checkNumber.IsValid() {
		return nil, shared.NewDomainError(payables.CodeInvalidCheckNumber, "Check number must be positive")
	}
	if bankNumber <= 0 {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Bank number must be positive")
	}

	payment, err := s.payments.FindByBankAndNumber(ctx, companyID, bankNumber, checkNumber)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.ErrNotFound.Code,
				fmt.Sprintf("Check %s not found for bank %d", checkNumber, bankNumber))
		}
		return nil, fmt.Errorf("find check %s for bank %d: %w", checkNumber, bankNumber, err)
	}
	return payment, nil
}
