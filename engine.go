package reseller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/reseller/plugin"
	"github.com/xraph/reseller/store"
	"github.com/xraph/reseller/types"
)

// Defaults applied by New.
const (
	DefaultValidityDays    = 365
	DefaultMaxWriteRetries = 5
	DefaultSweepInterval   = time.Hour
	DefaultSweepBatchSize  = 100
	MinReasonLength        = 10
)

// Engine is the reseller back-office core. It owns the lifecycle state
// machine and is the only caller of the wallet ledger and the validity
// tracker.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	ledger   *ledgerEngine
	validity *validityTracker

	// Background workers
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Configuration
	now                 func() time.Time
	location            *time.Location
	currency            string
	defaultValidityDays int
	maxWriteRetries     int
	sweepInterval       time.Duration
	sweepBatchSize      int
	autoMigrate         bool
}

// New creates a new Engine over s.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:               s,
		plugins:             plugin.NewRegistry(),
		logger:              slog.Default(),
		stopChan:            make(chan struct{}),
		now:                 time.Now,
		location:            time.UTC,
		currency:            types.DefaultCurrency,
		defaultValidityDays: DefaultValidityDays,
		maxWriteRetries:     DefaultMaxWriteRetries,
		sweepInterval:       DefaultSweepInterval,
		sweepBatchSize:      DefaultSweepBatchSize,
		autoMigrate:         true,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.ledger = &ledgerEngine{
		store:    s,
		plugins:  e.plugins,
		logger:   e.logger,
		now:      e.clock,
		currency: e.currency,
		retries:  e.maxWriteRetries,
	}
	e.validity = &validityTracker{
		store:       s,
		plugins:     e.plugins,
		logger:      e.logger,
		now:         e.clock,
		location:    e.location,
		defaultDays: e.defaultValidityDays,
		retries:     e.maxWriteRetries,
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		if err := e.plugins.Register(p); err != nil {
			e.logger.Warn("plugin registration skipped", "plugin", p.Name(), "error", err)
		}
	}
}

// WithDefaultValidityDays sets the length of a reset validity window.
func WithDefaultValidityDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.defaultValidityDays = days
		}
	}
}

// WithCurrency sets the wallet currency (ISO 4217, any case).
func WithCurrency(currency string) Option {
	return func(e *Engine) {
		if currency != "" {
			e.currency = types.Zero(currency).Currency
		}
	}
}

// WithLocation sets the zone in which explicit validity dates end.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithMaxWriteRetries bounds optimistic write retries per operation.
func WithMaxWriteRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxWriteRetries = n
		}
	}
}

// WithSweepConfig configures the validity expiry sweeper. A zero interval
// disables the background worker; SweepExpired can still be called.
func WithSweepConfig(interval time.Duration, batchSize int) Option {
	return func(e *Engine) {
		e.sweepInterval = interval
		if batchSize > 0 {
			e.sweepBatchSize = batchSize
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithAutoMigrate controls whether Start runs store migrations.
func WithAutoMigrate(enabled bool) Option {
	return func(e *Engine) {
		e.autoMigrate = enabled
	}
}

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Currency returns the configured wallet currency.
func (e *Engine) Currency() string { return e.currency }

func (e *Engine) clock() time.Time { return e.now().UTC() }

// Start migrates the store, initializes plugins and begins background workers.
func (e *Engine) Start(ctx context.Context) error {
	if e.autoMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return persistence("migrate", err)
		}
	}

	e.plugins.EmitInit(ctx, e)

	if e.sweepInterval > 0 {
		e.wg.Add(1)
		go e.sweepWorker(ctx)
	}

	e.logger.Info("reseller engine started",
		"currency", e.currency,
		"default_validity_days", e.defaultValidityDays,
		"sweep_interval", e.sweepInterval,
		"max_write_retries", e.maxWriteRetries,
	)

	return nil
}

// Stop shuts down background workers, notifies plugins and closes the store.
func (e *Engine) Stop() error {
	e.stopOnce.Do(func() { close(e.stopChan) })
	e.wg.Wait()

	e.plugins.EmitShutdown(context.Background())

	return e.store.Close()
}

// sweepWorker periodically expires validity windows whose end has passed.
func (e *Engine) sweepWorker(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.SweepExpired(ctx); err != nil {
				e.logger.Error("validity sweep failed", "error", err)
			}
		}
	}
}

// SweepExpired marks every ACTIVE validity window that has ended as EXPIRED
// and returns how many were changed. Records are processed in batches.
func (e *Engine) SweepExpired(ctx context.Context) (int, error) {
	start := time.Now()
	expired := 0

	for {
		recs, err := e.store.ListExpiring(ctx, e.clock(), e.sweepBatchSize)
		if err != nil {
			return expired, persistence("list expiring", err)
		}

		progressed := 0
		for _, rec := range recs {
			changed, err := e.validity.expire(ctx, rec)
			if err != nil {
				e.logger.Warn("validity expiry skipped",
					"reseller_id", rec.ResellerID.String(),
					"error", err,
				)
				continue
			}
			progressed++
			if changed != nil {
				expired++
			}
		}

		if len(recs) < e.sweepBatchSize || progressed == 0 {
			break
		}
	}

	elapsed := time.Since(start)
	e.plugins.EmitSweepCompleted(ctx, expired, elapsed)

	e.logger.Debug("validity sweep finished",
		"expired", expired,
		"elapsed_ms", elapsed.Milliseconds(),
	)

	return expired, nil
}
