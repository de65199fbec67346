package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultSlowQueryThreshold marks queries slower than this on their span.
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// DBTracingConfig holds database tracing options.
type DBTracingConfig struct {
	Enabled         bool
	DBName          string
	SlowQueryThresh time.Duration
}

type queryStartKey struct{}

// RegisterDBTracing installs the otelgorm plugin plus slow query callbacks on db.
// It is a no-op when tracing is disabled.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled")
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = DefaultSlowQueryThreshold
	}

	if err := db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName(cfg.DBName),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return fmt.Errorf("failed to register otelgorm plugin: %w", err)
	}

	if err := registerTimingCallbacks(db, cfg.SlowQueryThresh); err != nil {
		return fmt.Errorf("failed to register slow query callbacks: %w", err)
	}

	logger.Info("Database tracing enabled",
		zap.String("db_name", cfg.DBName),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func registerTimingCallbacks(db *gorm.DB, threshold time.Duration) error {
	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) {
		annotateSpan(tx, threshold)
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("feedsync:before_create", before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("feedsync:after_create", after); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("feedsync:before_query", before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("feedsync:after_query", after); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("feedsync:before_update", before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("feedsync:after_update", after); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("feedsync:before_delete", before); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("feedsync:after_delete", after); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("feedsync:before_raw", before); err != nil {
		return err
	}
	return cb.Raw().After("gorm:raw").Register("feedsync:after_raw", after)
}

func annotateSpan(tx *gorm.DB, threshold time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if tx.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	}
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, tx.Error.Error())
		span.RecordError(tx.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > threshold {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}
