// Package extension provides the Forge extension adapter for the reseller
// engine.
//
// It implements the forge.Extension interface to integrate the engine into a
// Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.reseller" or "reseller" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/reseller"
	"github.com/xraph/reseller/admin"
	"github.com/xraph/reseller/store"
	"github.com/xraph/reseller/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "reseller"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Reseller wallet, validity and lifecycle core"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the reseller engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *reseller.Engine
	admin      *admin.Service
	store      store.Store
	engineOpts []reseller.Option
}

// New creates a new reseller Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine.
// This is nil until Register is called.
func (e *Extension) Engine() *reseller.Engine { return e.engine }

// Admin returns the admin service over the engine.
// This is nil until Register is called.
func (e *Extension) Admin() *admin.Service { return e.admin }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it and the admin service in the
// DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildEngineOpts()
	if err != nil {
		return err
	}

	e.engine = reseller.New(e.store, opts...)
	e.admin = admin.New(e.engine)

	if err := vessel.Provide(fapp.Container(), func() (*reseller.Engine, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}
	return vessel.Provide(fapp.Container(), func() (*admin.Service, error) {
		return e.admin, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("reseller: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("reseller: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs reseller.Option values from the resolved config.
func (e *Extension) buildEngineOpts() ([]reseller.Option, error) {
	opts := make([]reseller.Option, 0, len(e.engineOpts)+6)

	loc, err := time.LoadLocation(e.config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("reseller: invalid timezone %q: %w", e.config.Timezone, err)
	}

	interval := e.config.SweepInterval
	if interval < 0 {
		interval = 0
	}

	opts = append(opts,
		reseller.WithAutoMigrate(!e.config.DisableMigrate),
		reseller.WithCurrency(e.config.Currency),
		reseller.WithDefaultValidityDays(e.config.DefaultValidityDays),
		reseller.WithMaxWriteRetries(e.config.MaxWriteRetries),
		reseller.WithSweepConfig(interval, e.config.SweepBatchSize),
		reseller.WithLocation(loc),
	)

	// Pass-through engine options win over config.
	opts = append(opts, e.engineOpts...)

	return opts, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("reseller: configuration is required but not found in config files; " +
				"ensure 'extensions.reseller' or 'reseller' key exists in your config")
		}
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("reseller: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("currency", e.config.Currency),
		forge.F("default_validity_days", e.config.DefaultValidityDays),
		forge.F("max_write_retries", e.config.MaxWriteRetries),
		forge.F("sweep_interval", e.config.SweepInterval),
		forge.F("sweep_batch_size", e.config.SweepBatchSize),
		forge.F("timezone", e.config.Timezone),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.reseller", "reseller"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("reseller: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("reseller: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	if cfg.DefaultValidityDays == 0 {
		cfg.DefaultValidityDays = defaults.DefaultValidityDays
	}
	if cfg.MaxWriteRetries == 0 {
		cfg.MaxWriteRetries = defaults.MaxWriteRetries
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}
	if cfg.SweepBatchSize == 0 {
		cfg.SweepBatchSize = defaults.SweepBatchSize
	}
	if cfg.Timezone == "" {
		cfg.Timezone = defaults.Timezone
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	if yamlConfig.Currency == "" {
		yamlConfig.Currency = programmaticConfig.Currency
	}
	if yamlConfig.Timezone == "" {
		yamlConfig.Timezone = programmaticConfig.Timezone
	}
	if yamlConfig.DefaultValidityDays == 0 {
		yamlConfig.DefaultValidityDays = programmaticConfig.DefaultValidityDays
	}
	if yamlConfig.MaxWriteRetries == 0 {
		yamlConfig.MaxWriteRetries = programmaticConfig.MaxWriteRetries
	}
	if yamlConfig.SweepInterval == 0 {
		yamlConfig.SweepInterval = programmaticConfig.SweepInterval
	}
	if yamlConfig.SweepBatchSize == 0 {
		yamlConfig.SweepBatchSize = programmaticConfig.SweepBatchSize
	}

	return e.mergeWithDefaults(yamlConfig)
}
