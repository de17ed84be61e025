package extension

import (
	"time"

	"github.com/xraph/reseller"
	"github.com/xraph/reseller/observability"
	"github.com/xraph/reseller/plugin"
	"github.com/xraph/reseller/store"
)

// Option configures the reseller Forge extension.
type Option func(*Extension)

// WithStore sets the store for the reseller engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a reseller.Option through to the underlying engine.
func WithEngineOption(opt reseller.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an engine plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, reseller.WithPlugin(p))
	}
}

// WithMetrics registers the observability metrics plugin over factory.
func WithMetrics(factory observability.MetricFactory) Option {
	return WithPlugin(observability.NewMetricsExtension(factory))
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithCurrency sets the wallet currency.
func WithCurrency(currency string) Option {
	return func(e *Extension) { e.config.Currency = currency }
}

// WithDefaultValidityDays sets the length of a reset validity window.
func WithDefaultValidityDays(days int) Option {
	return func(e *Extension) { e.config.DefaultValidityDays = days }
}

// WithMaxWriteRetries bounds optimistic write retries per operation.
func WithMaxWriteRetries(n int) Option {
	return func(e *Extension) { e.config.MaxWriteRetries = n }
}

// WithSweepInterval sets how often ended validity windows are expired.
// A negative interval disables the background sweeper.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.SweepInterval = d }
}

// WithTimezone sets the zone in which explicit validity dates end.
func WithTimezone(name string) Option {
	return func(e *Extension) { e.config.Timezone = name }
}
