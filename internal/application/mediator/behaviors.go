package mediator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"github.com/stocker/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// TenantScoped is implemented by requests that act on one tenant's data.
type TenantScoped interface {
	GetTenantID() uuid.UUID
}

// LoggingBehavior logs every request with its duration and outcome.
type LoggingBehavior struct {
	logger *zap.Logger
}

func NewLoggingBehavior(l *zap.Logger) *LoggingBehavior {
	return &LoggingBehavior{logger: l.Named("mediator")}
}

func (b *LoggingBehavior) Handle(ctx context.Context, req any, next Next) (any, error) {
	start := time.Now()
	res, err := next(ctx)

	log := logger.WithLogger(ctx, b.logger)
	fields := []zap.Field{
		zap.String("request", RequestName(req)),
		zap.Duration("duration", time.Since(start)),
	}
	switch code := shared.CodeOf(err); {
	case err == nil:
		log.Debug("request handled", fields...)
	case code != "":
		// domain errors are expected outcomes
		log.Info("request rejected", append(fields, zap.String("code", code), zap.Error(err))...)
	default:
		log.Error("request failed", append(fields, zap.Error(err))...)
	}
	return res, err
}

// TracingBehavior wraps each request in a span.
type TracingBehavior struct{}

func NewTracingBehavior() *TracingBehavior { return &TracingBehavior{} }

func (TracingBehavior) Handle(ctx context.Context, req any, next Next) (any, error) {
	name := RequestName(req)
	ctx, span := telemetry.StartSpan(ctx, "mediator."+name, telemetry.AttrRequestName.String(name))
	res, err := next(ctx)
	telemetry.EndSpan(span, err)
	return res, err
}

// MetricsBehavior counts requests and records their latency.
type MetricsBehavior struct {
	requests *telemetry.Counter
	latency  *telemetry.Histogram
}

func NewMetricsBehavior(meter metric.Meter) (*MetricsBehavior, error) {
	requests, err := telemetry.NewCounter(meter, "mediator_requests_total", "Requests dispatched through the mediator", "{request}")
	if err != nil {
		return nil, err
	}
	latency, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "mediator_request_duration_seconds",
		Description: "Mediator request latency",
		Unit:        "s",
		Boundaries:  []float64{0.005, 0.025, 0.1, 0.25, 1, 2.5, 10},
	})
	if err != nil {
		return nil, err
	}
	return &MetricsBehavior{requests: requests, latency: latency}, nil
}

func (b *MetricsBehavior) Handle(ctx context.Context, req any, next Next) (any, error) {
	start := time.Now()
	res, err := next(ctx)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := []attribute.KeyValue{
		telemetry.AttrRequestName.String(RequestName(req)),
		telemetry.AttrOutcome.String(outcome),
	}
	if code := shared.CodeOf(err); code != "" {
		attrs = append(attrs, telemetry.AttrErrorCode.String(code))
	}
	b.requests.Inc(ctx, attrs...)
	b.latency.RecordDuration(ctx, time.Since(start), attrs...)
	return res, err
}

// ValidationBehavior checks `validate` struct tags before the handler runs.
type ValidationBehavior struct {
	validate *validator.Validate
}

func NewValidationBehavior() *ValidationBehavior {
	return &ValidationBehavior{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (b *ValidationBehavior) Handle(ctx context.Context, req any, next Next) (any, error) {
	err := b.validate.StructCtx(ctx, req)
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		return nil, validationError(invalid)
	}
	// a non-struct request has nothing to validate
	return next(ctx)
}

// validationError keeps errs as the cause so callers can report the
// failing fields individually.
func validationError(errs validator.ValidationErrors) *shared.DomainError {
	fields := make([]string, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return shared.NewDomainErrorWithCause(shared.CodeValidation, "Invalid request: "+strings.Join(fields, ", "), errs)
}

// TenantBehavior rejects tenant-scoped requests without a tenant and puts
// the tenant on the context for logging and the GORM tenant scope.
type TenantBehavior struct{}

func NewTenantBehavior() *TenantBehavior { return &TenantBehavior{} }

func (TenantBehavior) Handle(ctx context.Context, req any, next Next) (any, error) {
	scoped, ok := req.(TenantScoped)
	if !ok {
		return next(ctx)
	}
	tenantID := scoped.GetTenantID()
	if tenantID == uuid.Nil {
		return nil, shared.ErrInvalidTenant
	}
	if existing := logger.GetTenantID(ctx); existing != "" && existing != tenantID.String() {
		return nil, shared.ErrForbidden
	}
	return next(logger.WithTenantID(ctx, tenantID.String()))
}

// DefaultBehaviors returns the standard pipeline, outermost first.
func DefaultBehaviors(l *zap.Logger, meter metric.Meter) ([]Behavior, error) {
	metrics, err := NewMetricsBehavior(meter)
	if err != nil {
		return nil, err
	}
	return []Behavior{
		NewLoggingBehavior(l),
		NewTracingBehavior(),
		metrics,
		NewValidationBehavior(),
		NewTenantBehavior(),
	}, nil
}
