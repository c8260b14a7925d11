package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/huefri/internal/hub"
)

const minimal = `
hue:
  address: 192.168.1.2
  secret: hue-user
  main: 1
  controlled: [1, 2, 3]
tradfri:
  address: 192.168.1.3
  secret: psk
  main: 0
  controlled: [0, 1, 2]
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Sync.Interval.Duration())
	assert.Equal(t, 5*time.Second, cfg.Sync.EchoWindow.Duration())
	assert.Equal(t, 8, cfg.Sync.BrightnessSteps)
	assert.Equal(t, 5*time.Second, cfg.Hue.Timeout.Duration())
	assert.Equal(t, 10.0, cfg.Hue.RateLimitRPS)
	assert.Equal(t, "Client_identity", cfg.Tradfri.Identity)
	assert.Equal(t, time.Second, cfg.Tradfri.ObserveTimeout.Duration())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Nil(t, cfg.Log.Colors)
	assert.Empty(t, cfg.Ledger.Path)
	assert.Equal(t, 30, cfg.Ledger.RetentionDays)
	assert.Equal(t, 24*time.Hour, cfg.Ledger.CleanupInterval.Duration())
	assert.False(t, cfg.HTTP.Enabled)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout.Duration())
}

func TestParse_IndicesPassThrough(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, hub.Config{Address: "192.168.1.2", Secret: "hue-user", Main: 1, Controlled: []int{1, 2, 3}}, cfg.Hue.Hub())
	assert.Equal(t, hub.Config{Address: "192.168.1.3", Secret: "psk", Main: 0, Controlled: []int{0, 1, 2}}, cfg.Tradfri.Hub())
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse([]byte(minimal + `
sync:
  interval: 250ms
  echo_window: 2s
  brightness_steps: 4
log:
  level: debug
  colors: false
`))
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Sync.Interval.Duration())
	assert.Equal(t, 2*time.Second, cfg.Sync.EchoWindow.Duration())
	assert.Equal(t, 4, cfg.Sync.BrightnessSteps)
	require.NotNil(t, cfg.Log.Colors)
	assert.False(t, *cfg.Log.Colors)
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("HUEFRI_TEST_SECRET", "from-env")

	cfg, err := Parse([]byte(`
hue:
  address: ${HUEFRI_TEST_ADDR:10.0.0.1}
  secret: ${HUEFRI_TEST_SECRET}
  controlled: [1]
tradfri:
  address: gw
  secret: psk
  controlled: [0]
`))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", cfg.Hue.Address)
	assert.Equal(t, "from-env", cfg.Hue.Secret)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte(`
hue:
  address: bridge
tradfri:
  secret: psk
  controlled: [0]
sync:
  brightness_steps: -1
log:
  level: loud
`))
	require.ErrorIs(t, err, ErrConfig)
	for _, want := range []string{
		"hue.secret is required",
		"hue.controlled needs at least one light",
		"tradfri.address is required",
		"sync.brightness_steps must be positive",
		`log.level "loud"`,
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestParse_NegativeDurations(t *testing.T) {
	_, err := Parse([]byte(minimal + `  observe_timeout: -1s
ledger:
  path: x.db
  cleanup_interval: -1h
shutdown_timeout: -5s
`))
	require.ErrorIs(t, err, ErrConfig)
	for _, want := range []string{
		"tradfri.observe_timeout must be positive",
		"ledger.cleanup_interval must be positive",
		"shutdown_timeout must be positive",
	} {
		assert.ErrorContains(t, err, want)
	}

	// cleanup only runs with a ledger
	cfg, err := Parse([]byte(minimal + "ledger:\n  cleanup_interval: -1h\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Ledger.Path)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("hue: [unclosed"))
	assert.ErrorIs(t, err, ErrConfig)

	_, err = Parse([]byte(minimal + "\nsync:\n  interval: soon\n"))
	assert.ErrorIs(t, err, ErrConfig)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.2", cfg.Hue.Address)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfig)
}
