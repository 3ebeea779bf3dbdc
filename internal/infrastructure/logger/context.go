package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	runIDKey     contextKey = "run_id"
	companyIDKey contextKey = "company_id"
	bankKey      contextKey = "bank_number"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRunID tags the context and its logger with a check run identifier
func WithRunID(ctx context.Context, logger *zap.Logger, runID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, runIDKey, runID)
	enriched := logger.With(zap.String("run_id", runID))
	return WithContext(ctx, enriched), enriched
}

// WithCompanyID tags the context and its logger with the company being paid from
func WithCompanyID(ctx context.Context, logger *zap.Logger, companyID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, companyIDKey, companyID)
	enriched := logger.With(zap.String("company_id", companyID))
	return WithContext(ctx, enriched), enriched
}

// WithBankNumber tags the context and its logger with the bank the checks draw on
func WithBankNumber(ctx context.Context, logger *zap.Logger, bank int64) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, bankKey, bank)
	enriched := logger.With(zap.Int64("bank_number", bank))
	return WithContext(ctx, enriched), enriched
}

// GetRunID retrieves the run ID from context
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(runIDKey).(string); ok {
		return runID
	}
	return ""
}

// GetCompanyID retrieves the company ID from context
func GetCompanyID(ctx context.Context) string {
	if companyID, ok := ctx.Value(companyIDKey).(string); ok {
		return companyID
	}
	return ""
}

// GetBankNumber retrieves the bank number from context
func GetBankNumber(ctx context.Context) (int64, bool) {
	bank, ok := ctx.Value(bankKey).(int64)
	return bank, ok
}

// WithTraceContext adds trace_id and span_id from the active span.
// The logger is returned unchanged when there is no valid span.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}

// L returns the context logger with trace fields added.
// Run, company and bank fields are already on it when set via the With helpers.
//
//	logger.L(ctx).Info("check run planned", zap.Int("checks", n))
func L(ctx context.Context) *zap.Logger {
	return WithTraceContext(ctx, FromContext(ctx))
}

// Enrich adds the trace and check run fields found in ctx to a logger
// that was not taken from ctx, such as one injected into a service
func Enrich(ctx context.Context, l *zap.Logger) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	l = WithTraceContext(ctx, l)
	if runID := GetRunID(ctx); runID != "" {
		l = l.With(zap.String("run_id", runID))
	}
	if companyID := GetCompanyID(ctx); companyID != "" {
		l = l.With(zap.String("company_id", companyID))
	}
	if bank, ok := GetBankNumber(ctx); ok {
		l = l.With(zap.Int64("bank_number", bank))
	}
	return l
}
