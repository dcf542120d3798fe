// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	intakeapp "github.com/docintake/backend/internal/application/intake"
	"github.com/docintake/backend/internal/domain/intake"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// MetricsError represents an error in metrics setup.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewIntakeMetrics", Err: "meter cannot be nil"}

// Ensure IntakeMetrics implements the orchestrator's recorder surface
var _ intakeapp.MetricsRecorder = (*IntakeMetrics)(nil)

// IntakeMetrics records pipeline events as OpenTelemetry counters. All
// recording methods are cheap and non-blocking; export happens on the
// meter provider's periodic reader.
type IntakeMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	transitionsTotal *Counter
	duplicatesTotal  *Counter
	mismatchesTotal  *Counter
}

// NewIntakeMetrics creates the intake pipeline metrics set
func NewIntakeMetrics(meter metric.Meter, logger *zap.Logger) (*IntakeMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	im := &IntakeMetrics{
		meter:  meter,
		logger: logger,
	}

	var err error

	im.transitionsTotal, err = NewCounter(
		meter,
		"docintake_transaction_transitions_total",
		"Total number of upload transaction status transitions",
		"{transitions}",
	)
	if err != nil {
		return nil, err
	}

	im.duplicatesTotal, err = NewCounter(
		meter,
		"docintake_duplicates_rejected_total",
		"Total number of uploads rejected as duplicate content",
		"{uploads}",
	)
	if err != nil {
		return nil, err
	}

	im.mismatchesTotal, err = NewCounter(
		meter,
		"docintake_reconciliation_mismatches_total",
		"Total number of line-count reconciliation mismatches",
		"{documents}",
	)
	if err != nil {
		return nil, err
	}

	return im, nil
}

// TransactionTransition records a status transition
func (im *IntakeMetrics) TransactionTransition(ctx context.Context, to intake.TransactionStatus, code *intake.ReasonCode) {
	if code != nil {
		im.transitionsTotal.Inc(ctx,
			AttrStatus.String(string(to)),
			AttrReasonCode.String(string(*code)),
		)
		return
	}
	im.transitionsTotal.Inc(ctx, AttrStatus.String(string(to)))
}

// DuplicateRejected records a duplicate-content rejection for a source
func (im *IntakeMetrics) DuplicateRejected(ctx context.Context, sourceID string) {
	im.duplicatesTotal.Inc(ctx, AttrSourceID.String(sourceID))
}

// ReconciliationMismatch records a line-count mismatch by reason
func (im *IntakeMetrics) ReconciliationMismatch(ctx context.Context, reason intake.ReasonCode) {
	im.mismatchesTotal.Inc(ctx, AttrReasonCode.String(string(reason)))
}

// NopMetrics is a MetricsRecorder that discards every event. It keeps the
// orchestrator wiring simple when metrics are disabled.
type NopMetrics struct{}

// Ensure NopMetrics implements the orchestrator's recorder surface
var _ intakeapp.MetricsRecorder = NopMetrics{}

func (NopMetrics) TransactionTransition(context.Context, intake.TransactionStatus, *intake.ReasonCode) {
}

func (NopMetrics) DuplicateRejected(context.Context, string) {}

func (NopMetrics) ReconciliationMismatch(context.Context, intake.ReasonCode) {}
