package database

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"beverageHub/pkg/config"
	"beverageHub/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// retryDelay is multiplied by the attempt number between connection attempts.
var retryDelay = 2 * time.Second

// InitPostgres opens the connection pool, retrying up to
// cfg.Database.ConnectMaxAttempts times with a linearly growing delay.
func InitPostgres(cfg *config.Config) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if cfg.IsProduction() {
		logLevel = gormlogger.Error
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.Database.ConnectMaxAttempts; attempt++ {
		db, err := open(cfg.Database.DSN(), logLevel)
		if err == nil {
			return db, nil
		}

		lastErr = err
		logger.Warn("Database connect attempt failed", "attempt", attempt, "max_attempts", cfg.Database.ConnectMaxAttempts, "error", err)
		if attempt < cfg.Database.ConnectMaxAttempts {
			time.Sleep(retryDelay * time.Duration(attempt))
		}
	}

	return nil, fmt.Errorf("connect to postgres after %d attempts: %w", cfg.Database.ConnectMaxAttempts, lastErr)
}

func open(dsn string, level gormlogger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// Watchdog pings the database on a fixed interval for as long as its context
// lives and remembers whether the last ping succeeded.
type Watchdog struct {
	db        *gorm.DB
	interval  time.Duration
	connected atomic.Bool
}

func NewWatchdog(db *gorm.DB, interval time.Duration) *Watchdog {
	w := &Watchdog{db: db, interval: interval}
	w.connected.Store(true)
	return w
}

// Connected reports the outcome of the most recent ping.
func (w *Watchdog) Connected() bool {
	return w.connected.Load()
}

func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ping(ctx)
		}
	}
}

func (w *Watchdog) ping(ctx context.Context) {
	sqlDB, err := w.db.DB()
	if err == nil {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = sqlDB.PingContext(pingCtx)
		cancel()
	}

	wasConnected := w.connected.Swap(err == nil)
	switch {
	case err != nil && wasConnected:
		logger.Error("Database connection lost, will keep retrying", "error", err)
	case err == nil && !wasConnected:
		logger.Info("Database connection restored")
	}
}

// Close releases the underlying pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
