package extension

import "time"

// Config holds the reseller extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.reseller" or "reseller" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Currency is the wallet currency, ISO 4217 in any case (default: "inr").
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// DefaultValidityDays is the length of a validity window reset by a
	// recharge without an explicit date (default: 365).
	DefaultValidityDays int `json:"default_validity_days" mapstructure:"default_validity_days" yaml:"default_validity_days"`

	// MaxWriteRetries bounds optimistic write retries per operation (default: 5).
	MaxWriteRetries int `json:"max_write_retries" mapstructure:"max_write_retries" yaml:"max_write_retries"`

	// SweepInterval is how often ended validity windows are expired
	// (default: 1h). A negative value disables the background sweeper.
	SweepInterval time.Duration `json:"sweep_interval" mapstructure:"sweep_interval" yaml:"sweep_interval"`

	// SweepBatchSize is the number of records expired per store round trip
	// (default: 100).
	SweepBatchSize int `json:"sweep_batch_size" mapstructure:"sweep_batch_size" yaml:"sweep_batch_size"`

	// Timezone names the zone in which explicit validity dates end
	// (default: "UTC").
	Timezone string `json:"timezone" mapstructure:"timezone" yaml:"timezone"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Currency:            "inr",
		DefaultValidityDays: 365,
		MaxWriteRetries:     5,
		SweepInterval:       time.Hour,
		SweepBatchSize:      100,
		Timezone:            "UTC",
	}
}
