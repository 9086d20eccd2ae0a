package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.Float64("latitude", 0, "")
	fs.Float64("longitude", 0, "")
	fs.String("date", "", "")
	fs.String("direction", "", "")
	fs.Float64("min-altitude", 0, "")
	fs.String("log-level", "", "")
	fs.Int("workers", 0, "")
	fs.Bool("no-prewarm", false, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, testLogger())
	require.NoError(t, err)

	assert.Equal(t, "Darmstadt", cfg.Location.Name)
	assert.InDelta(t, 49.878708, cfg.Location.Latitude, 1e-9)
	assert.InDelta(t, 8.646927, cfg.Location.Longitude, 1e-9)
	assert.InDelta(t, 144.0, cfg.Location.Elevation, 1e-9)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone.String())
	assert.True(t, cfg.Date.IsZero())
	assert.Equal(t, "S", cfg.Direction)
	assert.InDelta(t, 10.0, cfg.MinAltitude, 1e-9)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.ObjectTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 10, cfg.Stream.MaxConcurrentPerIP)
	assert.True(t, cfg.Cache.Prewarm)
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.Retention)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("DSOPLAN_LATITUDE", "52.52")
	t.Setenv("DSOPLAN_HTTP_ADDR", ":9090")
	t.Setenv("DSOPLAN_STREAM_KEEPALIVE", "15s")
	t.Setenv("DSOPLAN_DATE", "17.09.2023")

	cfg, err := Load(nil, testLogger())
	require.NoError(t, err)

	assert.InDelta(t, 52.52, cfg.Location.Latitude, 1e-9)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 15*time.Second, cfg.Stream.KeepaliveInterval)
	assert.Equal(t, time.Date(2023, 9, 17, 0, 0, 0, 0, time.UTC), cfg.Date)
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("DSOPLAN_LATITUDE", "52.52")
	t.Setenv("DSOPLAN_DIRECTION", "N")

	cfg, err := Load(testFlags(t, "--latitude=-33.9", "--direction=se", "--min-altitude=25", "--log-level=debug", "--no-prewarm"), testLogger())
	require.NoError(t, err)

	assert.InDelta(t, -33.9, cfg.Location.Latitude, 1e-9)
	assert.Equal(t, "SE", cfg.Direction)
	assert.InDelta(t, 25.0, cfg.MinAltitude, 1e-9)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.False(t, cfg.Cache.Prewarm)
}

// TestLoadUnchangedFlagsKeepDefaults checks that flags left unset do not
// override defaults with their zero values.
func TestLoadUnchangedFlagsKeepDefaults(t *testing.T) {
	cfg, err := Load(testFlags(t), testLogger())
	require.NoError(t, err)

	assert.InDelta(t, 49.878708, cfg.Location.Latitude, 1e-9)
	assert.Equal(t, "S", cfg.Direction)
	assert.Equal(t, 1, cfg.Workers)
	assert.True(t, cfg.Cache.Prewarm)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dsoplan.yaml")
	content := `
latitude: 48.1374
longitude: 11.5755
location: Munich
workers: 4
stream:
  max_concurrent: 3
cache:
  prewarm: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(testFlags(t, "--config="+path), testLogger())
	require.NoError(t, err)

	assert.Equal(t, "Munich", cfg.Location.Name)
	assert.InDelta(t, 48.1374, cfg.Location.Latitude, 1e-9)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 3, cfg.Stream.MaxConcurrentPerIP)
	assert.False(t, cfg.Cache.Prewarm)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(testFlags(t, "--config="+filepath.Join(t.TempDir(), "missing.yaml")), testLogger())
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"latitude out of range", map[string]string{"DSOPLAN_LATITUDE": "91"}},
		{"longitude out of range", map[string]string{"DSOPLAN_LONGITUDE": "-181"}},
		{"bad date", map[string]string{"DSOPLAN_DATE": "2023-09-17"}},
		{"bad direction", map[string]string{"DSOPLAN_DIRECTION": "up"}},
		{"bad log level", map[string]string{"DSOPLAN_LOG_LEVEL": "loud"}},
		{"bad timezone", map[string]string{"DSOPLAN_TIMEZONE": "Mars/Olympus"}},
		{"auth without token", map[string]string{"DSOPLAN_AUTH_ENABLED": "true"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(nil, testLogger())
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

// TestLoadTuningFallsBack checks that out-of-range tuning values warn and
// keep their defaults instead of failing.
func TestLoadTuningFallsBack(t *testing.T) {
	t.Setenv("DSOPLAN_WORKERS", "0")
	t.Setenv("DSOPLAN_OBJECT_TIMEOUT", "-5s")
	t.Setenv("DSOPLAN_STREAM_MAX_CONCURRENT", "-1")
	t.Setenv("DSOPLAN_CACHE_CHECK_INTERVAL", "0s")

	cfg, err := Load(nil, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.ObjectTimeout)
	assert.Equal(t, 10, cfg.Stream.MaxConcurrentPerIP)
	assert.Equal(t, time.Minute, cfg.Cache.CheckInterval)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 01.03.2024 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got)

	for _, bad := range []string{"", "1.3.2024x", "2024-03-01", "31.02.2024"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalid, "input %q", bad)
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"S", "S", false},
		{"s", "S", false},
		{" nnw ", "", true},
		{"WNW", "WNW", false},
		{"NWN", "NWN", false},
		{"", "", true},
		{"X", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalid, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestObservationDate(t *testing.T) {
	now := time.Date(2023, 9, 17, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2023, 9, 17, 0, 0, 0, 0, time.UTC), Config{}.ObservationDate(now))

	fixed := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, Config{Date: fixed}.ObservationDate(now))
}
