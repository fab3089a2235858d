package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int           `env:"TEST_PORT" envDefault:"5000"`
	Name     string        `env:"TEST_NAME" envDefault:"favorit"`
	Timeout  time.Duration `env:"TEST_TIMEOUT" envDefault:"30s"`
	Brokers  []string      `env:"TEST_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	Disabled bool          `env:"TEST_DISABLED" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "favorit", cfg.Name)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.False(t, cfg.Disabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TEST_PORT", "9999")
	t.Setenv("TEST_TIMEOUT", "1m")
	t.Setenv("TEST_BROKERS", "a:9092,b:9092")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Brokers)
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("TEST_PORT", "not-a-number")

	var cfg testConfig
	assert.Error(t, Load(&cfg))
}
