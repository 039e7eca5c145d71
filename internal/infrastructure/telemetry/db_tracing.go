package telemetry

import (
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database query tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include query variables in spans; never in production
	SlowQueryThresh time.Duration
	DBSystem        string
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:         false,
		LogFullSQL:      false,
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBTracingPlugin wraps the otelgorm plugin with slow query marking.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

// RegisterOtelGorm registers the otelgorm plugin plus a slow-query
// callback on the given GORM DB. A disabled config is a no-op.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}

	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := p.registerSlowQueryCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.Bool("log_full_sql", p.config.LogFullSQL))
	return nil
}

const dbQueryStartKey = "telemetry:query_start"

// registerSlowQueryCallbacks adds callbacks that time each query and
// tag the active span when the threshold is exceeded
func (p *DBTracingPlugin) registerSlowQueryCallbacks(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.Set(dbQueryStartKey, time.Now())
	}
	after := func(tx *gorm.DB) {
		p.markSlowQuery(tx)
	}

	callbacks := []struct {
		name     string
		register func(name string, fn func(*gorm.DB)) error
	}{
		{"create", func(n string, fn func(*gorm.DB)) error { return db.Callback().Create().Before("gorm:create").Register(n, fn) }},
		{"query", func(n string, fn func(*gorm.DB)) error { return db.Callback().Query().Before("gorm:query").Register(n, fn) }},
		{"update", func(n string, fn func(*gorm.DB)) error { return db.Callback().Update().Before("gorm:update").Register(n, fn) }},
		{"delete", func(n string, fn func(*gorm.DB)) error { return db.Callback().Delete().Before("gorm:delete").Register(n, fn) }},
	}
	for _, cb := range callbacks {
		if err := cb.register("telemetry:before_"+cb.name, before); err != nil {
			return err
		}
	}

	afterCallbacks := []struct {
		name     string
		register func(name string, fn func(*gorm.DB)) error
	}{
		{"create", func(n string, fn func(*gorm.DB)) error { return db.Callback().Create().After("gorm:create").Register(n, fn) }},
		{"query", func(n string, fn func(*gorm.DB)) error { return db.Callback().Query().After("gorm:query").Register(n, fn) }},
		{"update", func(n string, fn func(*gorm.DB)) error { return db.Callback().Update().After("gorm:update").Register(n, fn) }},
		{"delete", func(n string, fn func(*gorm.DB)) error { return db.Callback().Delete().After("gorm:delete").Register(n, fn) }},
	}
	for _, cb := range afterCallbacks {
		if err := cb.register("telemetry:after_"+cb.name, after); err != nil {
			return err
		}
	}
	return nil
}

func (p *DBTracingPlugin) markSlowQuery(tx *gorm.DB) {
	value, ok := tx.Get(dbQueryStartKey)
	if !ok {
		return
	}
	start, ok := value.(time.Time)
	if !ok {
		return
	}

	elapsed := time.Since(start)
	if elapsed < p.config.SlowQueryThresh {
		return
	}

	span := trace.SpanFromContext(tx.Statement.Context)
	if span.SpanContext().IsValid() {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
		)
	}

	p.logger.Warn("slow database query",
		zap.Duration("elapsed", elapsed),
		zap.String("table", tx.Statement.Table),
		zap.Int64("rows_affected", tx.RowsAffected))
}
