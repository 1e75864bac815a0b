package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig configures otelgorm instrumentation.
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound query variables in span statements. Only for
	// development: variables may carry personal data from migration rows.
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBName          string
}

type queryStartKey struct{}

const slowQueryCallback = "telemetry:slow_query"

// RegisterDBTracing installs the otelgorm plugin and a callback that flags
// slow statements on the active span.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBName == "" {
		cfg.DBName = "postgresql"
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) {
		markSlowQuery(tx, cfg.SlowQueryThresh)
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register(slowQueryCallback+":before_create", before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Before("otel:after:create").Register(slowQueryCallback+":create", after); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register(slowQueryCallback+":before_query", before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Before("otel:after:query").Register(slowQueryCallback+":query", after); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register(slowQueryCallback+":before_update", before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Before("otel:after:update").Register(slowQueryCallback+":update", after); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register(slowQueryCallback+":before_delete", before); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Before("otel:after:delete").Register(slowQueryCallback+":delete", after); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register(slowQueryCallback+":before_raw", before); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Before("otel:after:raw").Register(slowQueryCallback+":raw", after); err != nil {
		return err
	}

	logger.Info("database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func markSlowQuery(tx *gorm.DB, threshold time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if elapsed < threshold {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.Bool("db.slow_query", true),
		attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
		attribute.String("db.table", tx.Statement.Table),
	)
}
