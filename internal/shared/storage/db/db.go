// Package db owns the Postgres pool behind the profile and contact repositories.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx as database/sql driver
	"golang.org/x/sync/singleflight"

	"portfolio-backend/internal/shared/telemetry"
)

// Options tunes the pool and the health checks done by Handle.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	// EnsureInterval is how long a successful ping is trusted.
	EnsureInterval time.Duration
}

// ErrClosed is returned by a Handle after Close.
var ErrClosed = errors.New("database handle closed")

var (
	openDB = sql.Open

	sharedMu    sync.Mutex
	sharedPool  *sql.DB
	sharedGroup singleflight.Group
)

// IsLambdaRuntime reports whether the process runs inside AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// DefaultLambdaOptions keeps each warm container to a couple of connections.
func DefaultLambdaOptions() Options {
	return Options{
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 30 * time.Second,
		ConnMaxLifetime: 15 * time.Minute,
		PingTimeout:     3 * time.Second,
		EnsureInterval:  30 * time.Second,
	}
}

// DefaultServerOptions suits the long-running API and worker.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
		EnsureInterval:  10 * time.Second,
	}
}

// DefaultMigrateOptions is a single connection for migrate and portfolioctl.
func DefaultMigrateOptions() Options {
	return Options{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// OptionsFromEnv applies DB_* overrides on top of defaults. Malformed
// values are logged and ignored.
func OptionsFromEnv(defaults Options) Options {
	opts := defaults
	ints := map[string]*int{
		"DB_MAX_OPEN_CONNS": &opts.MaxOpenConns,
		"DB_MAX_IDLE_CONNS": &opts.MaxIdleConns,
	}
	for key, dst := range ints {
		raw, ok := lookupEnv(key)
		if !ok {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			telemetry.Warn("db.env_invalid", map[string]any{"key": key, "error": err.Error()})
			continue
		}
		*dst = v
	}
	durations := map[string]*time.Duration{
		"DB_CONN_MAX_LIFETIME":  &opts.ConnMaxLifetime,
		"DB_CONN_MAX_IDLE_TIME": &opts.ConnMaxIdleTime,
		"DB_PING_TIMEOUT":       &opts.PingTimeout,
		"DB_ENSURE_INTERVAL":    &opts.EnsureInterval,
	}
	for key, dst := range durations {
		raw, ok := lookupEnv(key)
		if !ok {
			continue
		}
		v, err := time.ParseDuration(raw)
		if err != nil {
			telemetry.Warn("db.env_invalid", map[string]any{"key": key, "error": err.Error()})
			continue
		}
		*dst = v
	}
	return opts
}

// Connect opens a pgx-backed pool for databaseURL and pings it.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}
	pool, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	configurePool(pool, opts)
	if err := ping(ctx, pool, opts.PingTimeout); err != nil {
		pool.Close()
		return nil, err
	}

	st := pool.Stats()
	telemetry.Info("db.connected", map[string]any{
		"max_open": st.MaxOpenConnections,
		"open":     st.OpenConnections,
		"idle":     st.Idle,
	})
	return pool, nil
}

// SharedPool returns the process-wide pool, connecting on first use.
// Concurrent callers share one attempt; a failed attempt is retried by the
// next call.
func SharedPool(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	sharedMu.Lock()
	pool := sharedPool
	sharedMu.Unlock()
	if pool != nil {
		return pool, nil
	}

	v, err, _ := sharedGroup.Do("pool", func() (any, error) {
		sharedMu.Lock()
		existing := sharedPool
		sharedMu.Unlock()
		if existing != nil {
			return existing, nil
		}
		pool, err := Connect(ctx, databaseURL, opts)
		if err != nil {
			return nil, err
		}
		sharedMu.Lock()
		sharedPool = pool
		sharedMu.Unlock()
		telemetry.Info("db.shared_pool_ready", nil)
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sql.DB), nil
}

// Handle owns the pool for one App. Open never dials; Ensure connects
// lazily and re-pings at most once per EnsureInterval.
type Handle struct {
	url    string
	opts   Options
	shared bool

	mu       sync.Mutex
	pool     *sql.DB
	verified time.Time
	closed   bool
	now      func() time.Time
}

// Open prepares a handle. shared selects SharedPool so warm Lambda
// invocations reuse connections.
func Open(databaseURL string, opts Options, shared bool) *Handle {
	return &Handle{url: databaseURL, opts: opts, shared: shared, now: time.Now}
}

// Ensure connects if needed and verifies the pool is reachable.
func (h *Handle) Ensure(ctx context.Context) error {
	_, err := h.DB(ctx)
	return err
}

// DB returns a verified pool.
func (h *Handle) DB(ctx context.Context) (*sql.DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}

	if h.pool == nil {
		var (
			pool *sql.DB
			err  error
		)
		if h.shared {
			pool, err = SharedPool(ctx, h.url, h.opts)
		} else {
			pool, err = Connect(ctx, h.url, h.opts)
		}
		if err != nil {
			return nil, err
		}
		h.pool = pool
		h.verified = h.now()
		return pool, nil
	}

	if h.opts.EnsureInterval <= 0 || h.now().Sub(h.verified) >= h.opts.EnsureInterval {
		if err := ping(ctx, h.pool, h.opts.PingTimeout); err != nil {
			return nil, err
		}
		h.verified = h.now()
	}
	return h.pool, nil
}

// Close releases a private pool. The shared pool lives as long as the process.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if h.pool == nil || h.shared {
		return nil
	}
	return h.pool.Close()
}

// Provider yields a ready pool. Repositories hold a Provider so an
// unreachable database fails the request, not the constructor.
type Provider interface {
	DB(ctx context.Context) (*sql.DB, error)
}

// Static wraps an already-open pool, mainly for tests.
type Static struct {
	Pool *sql.DB
}

// DB returns the wrapped pool.
func (s Static) DB(context.Context) (*sql.DB, error) {
	return s.Pool, nil
}

func ping(ctx context.Context, pool *sql.DB, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func configurePool(pool *sql.DB, opts Options) {
	pool.SetMaxOpenConns(positiveOr(opts.MaxOpenConns, 10))
	pool.SetMaxIdleConns(positiveOr(opts.MaxIdleConns, 5))
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	pool.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func positiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func lookupEnv(key string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	return raw, raw != ""
}
