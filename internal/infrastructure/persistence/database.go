package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/stocker/backend/internal/infrastructure/config"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"github.com/stocker/backend/internal/infrastructure/persistence/tenant"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the GORM connection.
type Database struct {
	DB *gorm.DB
}

// Options tunes NewDatabase.
type Options struct {
	LogLevel      gormlogger.LogLevel
	SlowThreshold time.Duration
	LogFullSQL    bool
	// RequireTenant makes the tenant callback reject statements whose
	// context has no tenant. Background jobs always set one.
	RequireTenant bool
}

// NewDatabase opens PostgreSQL, tunes the pool and installs the tenant
// callback.
func NewDatabase(cfg *config.DatabaseConfig, log *zap.Logger, opts Options) (*Database, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig(log, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := tenant.NewCallback(tenant.Column, opts.RequireTenant).Register(db); err != nil {
		return nil, fmt.Errorf("failed to register tenant callback: %w", err)
	}
	return &Database{DB: db}, nil
}

func gormConfig(log *zap.Logger, opts Options) *gorm.Config {
	gl := logger.NewGormLogger(log, opts.LogLevel,
		logger.WithSlowThreshold(opts.SlowThreshold),
		logger.WithFullSQL(opts.LogFullSQL),
	)
	return &gorm.Config{
		Logger:                 gl,
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// ConnectionStats is the pool snapshot reported by the health endpoint.
type ConnectionStats struct {
	MaxOpenConnections int           `json:"max_open_connections"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
}

func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	s := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: s.MaxOpenConnections,
		OpenConnections:    s.OpenConnections,
		InUse:              s.InUse,
		Idle:               s.Idle,
		WaitCount:          s.WaitCount,
		WaitDuration:       s.WaitDuration,
	}, nil
}
