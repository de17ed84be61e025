package extension

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeWithDefaults(t *testing.T) {
	e := New(WithCurrency("USD"), WithSweepInterval(-1))
	cfg := e.mergeWithDefaults(e.config)

	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, time.Duration(-1), cfg.SweepInterval, "a negative interval survives the merge")
	assert.Equal(t, 365, cfg.DefaultValidityDays)
	assert.Equal(t, 5, cfg.MaxWriteRetries)
	assert.Equal(t, 100, cfg.SweepBatchSize)
	assert.Equal(t, "UTC", cfg.Timezone)
}

func TestMergeConfigurationsPrefersFile(t *testing.T) {
	e := New(WithDisableMigrate(), WithDefaultValidityDays(30), WithTimezone("Asia/Kolkata"))
	file := Config{DefaultValidityDays: 90, Currency: "eur"}

	cfg := e.mergeConfigurations(file, e.config)

	assert.True(t, cfg.DisableMigrate)
	assert.Equal(t, 90, cfg.DefaultValidityDays)
	assert.Equal(t, "eur", cfg.Currency)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
}

func TestBuildEngineOptsRejectsUnknownZone(t *testing.T) {
	e := New(WithTimezone("Mars/Olympus_Mons"))
	e.config = e.mergeWithDefaults(e.config)

	_, err := e.buildEngineOpts()
	require.Error(t, err)

	e.config.Timezone = "UTC"
	opts, err := e.buildEngineOpts()
	require.NoError(t, err)
	assert.Len(t, opts, 6)
}
