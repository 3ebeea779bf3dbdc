package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CheckRunOutcome labels how a check run preview ended.
type CheckRunOutcome string

const (
	CheckRunOutcomePlanned   CheckRunOutcome = "planned"
	CheckRunOutcomeEmpty     CheckRunOutcome = "empty"
	CheckRunOutcomeCollision CheckRunOutcome = "collision"
	CheckRunOutcomeFailed    CheckRunOutcome = "failed"
)

// CheckRunMetrics records check run planning activity.
type CheckRunMetrics struct {
	runsTotal       *Counter
	checksPlanned   *Counter
	collisionsTotal *Counter
	voidsTotal      *Counter
	planDuration    *Histogram
}

// MetricsError reports a failure while building metric instruments.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewCheckRunMetrics", Err: "meter cannot be nil"}

// NewCheckRunMetrics creates the check run instruments on meter.
func NewCheckRunMetrics(meter metric.Meter) (*CheckRunMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &CheckRunMetrics{}
	var err error

	if m.runsTotal, err = NewCounter(meter,
		"payables_check_runs_total",
		"Total number of check run previews by outcome",
		"{runs}",
	); err != nil {
		return nil, err
	}

	if m.checksPlanned, err = NewCounter(meter,
		"payables_checks_planned_total",
		"Total number of checks planned",
		"{checks}",
	); err != nil {
		return nil, err
	}

	if m.collisionsTotal, err = NewCounter(meter,
		"payables_check_collisions_total",
		"Total number of check numbers found already in use",
		"{checks}",
	); err != nil {
		return nil, err
	}

	if m.voidsTotal, err = NewCounter(meter,
		"payables_checks_voided_total",
		"Total number of checks voided",
		"{checks}",
	); err != nil {
		return nil, err
	}

	if m.planDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "payables_check_run_duration_seconds",
		Description: "Time to plan and validate a check run",
		Unit:        "s",
		Boundaries:  PlanningDurationBuckets,
	}); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRun records one finished preview.
func (m *CheckRunMetrics) RecordRun(ctx context.Context, bankNumber int64, outcome CheckRunOutcome, checks int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrBankNumber.Int64(bankNumber),
		AttrOutcome.String(string(outcome)),
	}
	m.runsTotal.Inc(ctx, attrs...)
	m.planDuration.RecordDuration(ctx, elapsed, attrs...)
	if outcome == CheckRunOutcomePlanned && checks > 0 {
		m.checksPlanned.Add(ctx, int64(checks), AttrBankNumber.Int64(bankNumber))
	}
}

// RecordCollisions records check numbers rejected as already used.
func (m *CheckRunMetrics) RecordCollisions(ctx context.Context, bankNumber int64, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.collisionsTotal.Add(ctx, int64(count), AttrBankNumber.Int64(bankNumber))
}

// RecordVoid records a voided check.
func (m *CheckRunMetrics) RecordVoid(ctx context.Context, bankNumber int64) {
	if m == nil {
		return
	}
	m.voidsTotal.Inc(ctx, AttrBankNumber.Int64(bankNumber))
}
