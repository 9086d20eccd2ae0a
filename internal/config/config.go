// Package config loads dsoplan settings from defaults, an optional YAML
// file, DSOPLAN_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve without a system zoneinfo

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/yetanothergithubaccount/ObsPi/internal/compass"
	"github.com/yetanothergithubaccount/ObsPi/internal/transform"
)

// DateLayout is the observation date format used on the command line, in
// file names and in API paths.
const DateLayout = "02.01.2006"

// EnvPrefix prefixes every environment variable, e.g. DSOPLAN_LATITUDE.
const EnvPrefix = "DSOPLAN"

// ErrInvalid marks configuration that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Config is the typed result of Load.
type Config struct {
	Location transform.Location
	Timezone *time.Location
	Date     time.Time // zero means "tonight"

	Direction   string
	MinAltitude float64

	DataDir       string
	CacheDir      string
	Workers       int
	ObjectTimeout time.Duration
	LogLevel      slog.Level

	HTTP     HTTPConfig
	Stream   StreamConfig
	Cache    CacheConfig
	Resolver ResolverConfig
}

// HTTPConfig holds API server settings.
type HTTPConfig struct {
	Addr        string
	AuthEnabled bool
	AuthToken   string
}

// StreamConfig holds progress stream settings.
type StreamConfig struct {
	MaxConcurrentPerIP int
	KeepaliveInterval  time.Duration
	TrustProxy         bool
}

// CacheConfig holds catalogue cache settings.
type CacheConfig struct {
	Retention     time.Duration
	Prewarm       bool
	CheckInterval time.Duration
}

// ResolverConfig holds name resolver settings.
type ResolverConfig struct {
	SourceURL string
	Timeout   time.Duration
	MemoTTL   time.Duration
	Offline   bool
}

// flagKeys maps flag names to config keys where they differ.
var flagKeys = map[string]string{
	"log-level":    "log_level",
	"min-altitude": "min_altitude",
	"data-dir":     "data_dir",
	"cache-dir":    "cache_dir",
	"addr":         "http.addr",
	"offline":      "resolver.offline",
	"no-prewarm":   "",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("latitude", 49.878708)
	v.SetDefault("longitude", 8.646927)
	v.SetDefault("elevation", 144.0)
	v.SetDefault("location", "Darmstadt")
	v.SetDefault("timezone", "Europe/Berlin")
	v.SetDefault("date", "")
	v.SetDefault("direction", "S")
	v.SetDefault("min_altitude", 10.0)

	v.SetDefault("data_dir", "data")
	v.SetDefault("cache_dir", "data")
	v.SetDefault("workers", 1)
	v.SetDefault("object_timeout", 30*time.Second)
	v.SetDefault("log_level", "info")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.token", "")

	v.SetDefault("stream.max_concurrent", 10)
	v.SetDefault("stream.keepalive", 30*time.Second)
	v.SetDefault("stream.trust_proxy", false)

	v.SetDefault("cache.retention", 7*24*time.Hour)
	v.SetDefault("cache.prewarm", true)
	v.SetDefault("cache.check_interval", time.Minute)

	v.SetDefault("resolver.url", "")
	v.SetDefault("resolver.timeout", 30*time.Second)
	v.SetDefault("resolver.memo_ttl", 24*time.Hour)
	v.SetDefault("resolver.offline", false)
}

// Load reads the configuration. flags may be nil. A "config" flag or the
// DSOPLAN_CONFIG variable names an optional YAML file.
func Load(flags *pflag.FlagSet, logger *slog.Logger) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return Config{}, err
		}
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %v", ErrInvalid, file, err)
		}
		logger.Info("config file loaded", "component", "config", "path", file)
	}

	return build(v, logger)
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		key, mapped := flagKeys[f.Name]
		if !mapped {
			key = f.Name
		}
		if key == "" || err != nil {
			return
		}
		if bindErr := v.BindPFlag(key, f); bindErr != nil {
			err = fmt.Errorf("bind flag %s: %w", f.Name, bindErr)
		}
	})
	if f := flags.Lookup("no-prewarm"); f != nil && f.Changed {
		v.Set("cache.prewarm", false)
	}
	return err
}

func build(v *viper.Viper, logger *slog.Logger) (Config, error) {
	cfg := Config{
		Location: transform.Location{
			Name:      v.GetString("location"),
			Latitude:  v.GetFloat64("latitude"),
			Longitude: v.GetFloat64("longitude"),
			Elevation: v.GetFloat64("elevation"),
		},
		MinAltitude: v.GetFloat64("min_altitude"),
		DataDir:     v.GetString("data_dir"),
		CacheDir:    v.GetString("cache_dir"),
		HTTP: HTTPConfig{
			Addr:        v.GetString("http.addr"),
			AuthEnabled: v.GetBool("auth.enabled"),
			AuthToken:   v.GetString("auth.token"),
		},
		Stream: StreamConfig{
			TrustProxy: v.GetBool("stream.trust_proxy"),
		},
		Cache: CacheConfig{
			Prewarm: v.GetBool("cache.prewarm"),
		},
		Resolver: ResolverConfig{
			SourceURL: v.GetString("resolver.url"),
			Offline:   v.GetBool("resolver.offline"),
		},
	}

	if !transform.ValidLocation(cfg.Location) {
		return Config{}, fmt.Errorf("%w: location lat=%g lon=%g out of range",
			ErrInvalid, cfg.Location.Latitude, cfg.Location.Longitude)
	}

	tz, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: timezone %q: %v", ErrInvalid, v.GetString("timezone"), err)
	}
	cfg.Timezone = tz

	if s := v.GetString("date"); s != "" {
		if cfg.Date, err = ParseDate(s); err != nil {
			return Config{}, err
		}
	}

	if cfg.Direction, err = ParseDirection(v.GetString("direction")); err != nil {
		return Config{}, err
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return Config{}, fmt.Errorf("%w: log level %q", ErrInvalid, v.GetString("log_level"))
	}

	if cfg.HTTP.AuthEnabled && cfg.HTTP.AuthToken == "" {
		return Config{}, fmt.Errorf("%w: auth.token is required when auth is enabled", ErrInvalid)
	}

	cfg.Workers = positiveInt(v, logger, "workers", 1)
	cfg.Stream.MaxConcurrentPerIP = positiveInt(v, logger, "stream.max_concurrent", 10)

	cfg.ObjectTimeout = positiveDuration(v, logger, "object_timeout", 30*time.Second)
	cfg.Stream.KeepaliveInterval = positiveDuration(v, logger, "stream.keepalive", 30*time.Second)
	cfg.Cache.Retention = positiveDuration(v, logger, "cache.retention", 7*24*time.Hour)
	cfg.Cache.CheckInterval = positiveDuration(v, logger, "cache.check_interval", time.Minute)
	cfg.Resolver.Timeout = positiveDuration(v, logger, "resolver.timeout", 30*time.Second)
	cfg.Resolver.MemoTTL = positiveDuration(v, logger, "resolver.memo_ttl", 24*time.Hour)

	return cfg, nil
}

func positiveInt(v *viper.Viper, logger *slog.Logger, key string, def int) int {
	n := v.GetInt(key)
	if n < 1 {
		logger.Warn("invalid config value, using default", "component", "config", "key", key, "value", v.Get(key), "default", def)
		return def
	}
	return n
}

func positiveDuration(v *viper.Viper, logger *slog.Logger, key string, def time.Duration) time.Duration {
	d := v.GetDuration(key)
	if d <= 0 {
		logger.Warn("invalid config value, using default", "component", "config", "key", key, "value", v.Get(key), "default", def.String())
		return def
	}
	return d
}

// ParseDate parses a DD.MM.YYYY observation date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q, expected DD.MM.YYYY", ErrInvalid, s)
	}
	return t, nil
}

// ParseDirection normalizes a compass direction such as "s" or "SE".
func ParseDirection(s string) (string, error) {
	d := strings.ToUpper(strings.TrimSpace(s))
	for _, l := range compass.Labels() {
		if string(l) == d {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: direction %q", ErrInvalid, s)
}

// ObservationDate returns the configured date, or the calendar day of now.
func (c Config) ObservationDate(now time.Time) time.Time {
	if !c.Date.IsZero() {
		return c.Date
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
