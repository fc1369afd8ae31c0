// Package database manages the live backends queries execute against: one
// connection pool per configured dialect, opened with retry and used only
// inside read-only transactions.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/sijms/go-ora/v2"     // Oracle driver

	"github.com/dbsmedya/nlquery/internal/config"
	"github.com/dbsmedya/nlquery/internal/dialect"
	"github.com/dbsmedya/nlquery/internal/logger"
	"github.com/dbsmedya/nlquery/internal/types"
)

// ErrNotConfigured is returned for a dialect without connection settings.
var ErrNotConfigured = errors.New("database not configured")

// ErrUnavailable is returned for a configured dialect that could not be reached.
var ErrUnavailable = errors.New("database unavailable")

// healthPingTimeout bounds each backend ping made by Health.
const healthPingTimeout = 2 * time.Second

// Status is the health of one backend as reported by the health endpoint.
type Status string

const (
	StatusConnected        Status = "connected"
	StatusConnectionFailed Status = "connection_failed"
	StatusNotConfigured    Status = "not_configured"
)

// Manager handles one connection pool per configured dialect.
type Manager struct {
	config *config.Config
	logger *logger.Logger

	mu  sync.RWMutex
	dbs map[dialect.Target]*sql.DB

	// open, maxRetries, backoff and pingTimeout are replaced in tests.
	open        func(driverName, dsn string) (*sql.DB, error)
	maxRetries  int
	backoff     time.Duration
	pingTimeout time.Duration
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.Config, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		config:      cfg,
		logger:      log,
		dbs:         make(map[dialect.Target]*sql.DB),
		open:        sql.Open,
		maxRetries:  3,
		backoff:     time.Second,
		pingTimeout: healthPingTimeout,
	}
}

// Backend returns the connection settings for target.
func (m *Manager) Backend(target dialect.Target) config.DatabaseConfig {
	cfg, _ := m.config.Database(target.String())
	return cfg
}

// Connect opens every configured backend. An unreachable backend is logged
// and left out so requests for it fall back; only cancellation is an error.
func (m *Manager) Connect(ctx context.Context) error {
	for _, target := range dialect.All() {
		cfg := m.Backend(target)
		if !cfg.Configured() {
			continue
		}
		log := m.logger.WithDialect(target.String())

		db, err := m.connectWithRetry(ctx, target, &cfg)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			log.Warnf("Database unavailable, requests will use the mock dataset: %v", err)
			continue
		}
		m.mu.Lock()
		m.dbs[target] = db
		m.mu.Unlock()
		log.Info("Database connected")
	}
	return nil
}

// connectWithRetry attempts to connect with exponential backoff.
func (m *Manager) connectWithRetry(ctx context.Context, target dialect.Target, cfg *config.DatabaseConfig) (*sql.DB, error) {
	var db *sql.DB
	var err error

	backoff := m.backoff
	for i := 0; i < m.maxRetries; i++ {
		db, err = m.connect(target, cfg)
		if err == nil {
			pingErr := db.PingContext(ctx)
			if pingErr == nil {
				return db, nil
			}
			db.Close()
			err = pingErr
		}

		if i < m.maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", m.maxRetries, err)
}

// connect creates a connection pool for target.
func (m *Manager) connect(target dialect.Target, cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn, err := BuildDSN(target, cfg)
	if err != nil {
		return nil, err
	}
	db, err := m.open(DriverName(target), dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// DriverName returns the database/sql driver registered for target.
func DriverName(target dialect.Target) string {
	switch target {
	case dialect.MySQL:
		return "mysql"
	case dialect.Oracle:
		return "oracle"
	default:
		return "pgx"
	}
}

// Executor returns a read-only executor for target, ErrNotConfigured when the
// dialect has no settings, or ErrUnavailable when it could not be reached.
func (m *Manager) Executor(target dialect.Target) (types.Executor, error) {
	if !m.Backend(target).Configured() {
		return nil, fmt.Errorf("%s: %w", target, ErrNotConfigured)
	}
	m.mu.RLock()
	db := m.dbs[target]
	m.mu.RUnlock()
	if db == nil {
		return nil, fmt.Errorf("%s: %w", target, ErrUnavailable)
	}
	return NewConnector(db, target, m.config.Query.MaxRows), nil
}

// Health pings every configured backend. The result never contains
// connection details.
func (m *Manager) Health(ctx context.Context) map[string]Status {
	out := make(map[string]Status, len(dialect.All()))
	for _, target := range dialect.All() {
		if !m.Backend(target).Configured() {
			out[target.String()] = StatusNotConfigured
			continue
		}
		m.mu.RLock()
		db := m.dbs[target]
		m.mu.RUnlock()
		if db == nil || m.ping(ctx, db) != nil {
			out[target.String()] = StatusConnectionFailed
			continue
		}
		out[target.String()] = StatusConnected
	}
	return out
}

func (m *Manager) ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, m.pingTimeout)
	defer cancel()
	return db.PingContext(ctx)
}

// Close closes all database connections gracefully.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, target := range dialect.All() {
		db := m.dbs[target]
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s close: %w", target, err))
		}
		delete(m.dbs, target)
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}
	return nil
}
