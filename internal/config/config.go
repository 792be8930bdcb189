// Package config loads server settings from GSYNC_* environment variables
// and an optional config file named by GSYNC_CONFIG (YAML, TOML or JSON).
// Environment variables win over file values. Malformed values are logged
// and replaced by their defaults; only inconsistent auth settings are fatal.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "GSYNC"

// Defaults.
const (
	DefaultHTTPAddr            = ":5000"
	DefaultEnvironment         = "development"
	DefaultProductionOrigin    = "https://tau-core.io"
	DefaultRateLimitRPS        = 5.0
	DefaultRateLimitBurst      = 20
	DefaultStreamMaxConcurrent = 10
	DefaultStreamKeepalive     = 30 * time.Second
	DefaultLogLevel            = "info"
	DefaultTLSCacheDir         = "certs"
	DefaultVersion             = "0.4.0"
)

// Config is the complete server configuration.
type Config struct {
	HTTPAddr    string
	Environment string
	CORSOrigin  string
	TrustProxy  bool

	AuthEnabled bool
	AuthToken   string

	RateLimitRPS   float64
	RateLimitBurst int

	StreamMaxConcurrent int
	StreamKeepalive     time.Duration

	LogLevel string
	LogFile  string

	TLSDomain   string
	TLSCacheDir string

	Version string
}

// Production reports whether the server runs in the production environment.
func (c Config) Production() bool {
	return c.Environment == "production"
}

// Load reads the configuration from the process environment.
func Load(logger *slog.Logger) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	// PORT is honored for platforms that only inject a port.
	if err := v.BindEnv("port", "PORT"); err != nil {
		return Config{}, err
	}
	return load(v, logger)
}

func load(v *viper.Viper, logger *slog.Logger) (Config, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		logger.Info("config file loaded", "path", v.ConfigFileUsed())
	}

	cfg := Config{
		HTTPAddr:    DefaultHTTPAddr,
		Environment: stringOr(v, "environment", DefaultEnvironment),
		LogLevel:    stringOr(v, "log_level", DefaultLogLevel),
		LogFile:     v.GetString("log_file"),
		TLSDomain:   v.GetString("tls_domain"),
		TLSCacheDir: stringOr(v, "tls_cache_dir", DefaultTLSCacheDir),
		Version:     stringOr(v, "version", DefaultVersion),
	}

	switch {
	case v.GetString("http_addr") != "":
		cfg.HTTPAddr = v.GetString("http_addr")
	case v.GetString("port") != "":
		cfg.HTTPAddr = ":" + v.GetString("port")
	}

	cfg.CORSOrigin = "*"
	if cfg.Production() {
		cfg.CORSOrigin = DefaultProductionOrigin
	}
	if origin := v.GetString("cors_origin"); origin != "" {
		cfg.CORSOrigin = origin
	}

	cfg.TrustProxy = boolOr(v, logger, "trust_proxy", false)

	cfg.RateLimitRPS = DefaultRateLimitRPS
	if s := v.GetString("rate_limit_rps"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 {
			warnDefault(logger, "rate_limit_rps", s, DefaultRateLimitRPS)
		} else {
			cfg.RateLimitRPS = f
		}
	}

	cfg.RateLimitBurst = positiveIntOr(v, logger, "rate_limit_burst", DefaultRateLimitBurst)
	cfg.StreamMaxConcurrent = positiveIntOr(v, logger, "stream_max_concurrent", DefaultStreamMaxConcurrent)

	cfg.StreamKeepalive = DefaultStreamKeepalive
	if s := v.GetString("stream_keepalive"); s != "" {
		d, err := parseDuration(s)
		if err != nil || d < time.Second {
			warnDefault(logger, "stream_keepalive", s, DefaultStreamKeepalive.String())
		} else {
			cfg.StreamKeepalive = d
		}
	}

	var err error
	if cfg.AuthEnabled, cfg.AuthToken, err = loadAuth(v); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func loadAuth(v *viper.Viper) (bool, string, error) {
	s := v.GetString("auth_enabled")
	if s == "" {
		return false, "", nil
	}
	enabled, err := strconv.ParseBool(s)
	if err != nil {
		return false, "", errors.New(envPrefix + "_AUTH_ENABLED must be a boolean value (true/false/1/0)")
	}
	if !enabled {
		return false, "", nil
	}
	token := v.GetString("auth_token")
	if token == "" {
		return true, "", errors.New(envPrefix + "_AUTH_TOKEN is required when auth is enabled")
	}
	return true, token, nil
}

// parseDuration accepts Go durations ("45s") and bare integer seconds ("45").
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func stringOr(v *viper.Viper, key, def string) string {
	if s := strings.TrimSpace(v.GetString(key)); s != "" {
		return s
	}
	return def
}

func boolOr(v *viper.Viper, logger *slog.Logger, key string, def bool) bool {
	s := v.GetString(key)
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		warnDefault(logger, key, s, def)
		return def
	}
	return b
}

func positiveIntOr(v *viper.Viper, logger *slog.Logger, key string, def int) int {
	s := v.GetString(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		warnDefault(logger, key, s, def)
		return def
	}
	return n
}

func warnDefault(logger *slog.Logger, key, value string, def any) {
	logger.Warn("invalid "+envPrefix+"_"+strings.ToUpper(key)+" value, using default",
		"value", value,
		"default", def,
	)
}
