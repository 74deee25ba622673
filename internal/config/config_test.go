package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.InDelta(t, 0.32, cfg.DefaultRate, 1e-9)
	assert.InDelta(t, 0.45, cfg.CO2Factor, 1e-9)
	assert.Equal(t, 17, cfg.PeakStartHour)
	assert.Equal(t, 21, cfg.PeakEndHour)
	assert.Equal(t, 12, cfg.DefaultHour)
	assert.Equal(t, 3, cfg.PeakWindowHours)
	assert.Equal(t, 5, cfg.TopDays)
	assert.InDelta(t, 0.3, cfg.ShiftFraction, 1e-9)
	assert.Equal(t, 200, cfg.SQLRowLimit)
	assert.Equal(t, 5*time.Second, cfg.SQLTimeout())
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "energyinsight", cfg.MQTT.TopicPrefix)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.CO2Factor = 0.2
	cfg.SQLRowLimit = 50
	cfg.MQTT.Broker = "localhost:1883"
	cfg.MQTT.Enabled = true
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, loaded.CO2Factor, 1e-9)
	assert.Equal(t, 50, loaded.SQLRowLimit)
	assert.Equal(t, "localhost:1883", loaded.MQTT.Broker)
	assert.True(t, loaded.MQTT.Enabled)

	// Unset fields still pick up defaults on load
	assert.Equal(t, 5, loaded.TopDays)
}

func TestLoadPartialFileAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(path, &Config{CO2Factor: 0.1}))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, cfg.CO2Factor, 1e-9)
	assert.InDelta(t, 0.32, cfg.DefaultRate, 1e-9)
	assert.Equal(t, 200, cfg.SQLRowLimit)
}
