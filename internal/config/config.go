// Package config defines the xchainarb configuration, its defaults and
// validation.
package config

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
)

// Modes.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Feed sources.
const (
	SourceSimulated = "simulated"
	SourceSocketIO  = "socketio"
	SourceRedis     = "redis"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by XCHAINARB_* environment variables.
type Config struct {
	Mode     string       `toml:"mode"`
	LogLevel string       `toml:"log_level"`
	Feed     FeedConfig   `toml:"feed"`
	View     ViewConfig   `toml:"view"`
	Redis    RedisConfig  `toml:"redis"`
	Server   ServerConfig `toml:"server"`
	Notify   NotifyConfig `toml:"notify"`
}

// FeedConfig selects and tunes the opportunity source.
type FeedConfig struct {
	// Source overrides the mode's default source when set.
	Source          string         `toml:"source"`
	Interval        duration       `toml:"interval"`
	ValidateInbound bool           `toml:"validate_inbound"`
	SocketIO        SocketIOConfig `toml:"socketio"`
	Retry           RetryConfig    `toml:"retry"`
}

// SocketIOConfig holds the live feed endpoint.
type SocketIOConfig struct {
	Endpoint         string   `toml:"endpoint"`
	Path             string   `toml:"path"`
	Event            string   `toml:"event"`
	HandshakeTimeout duration `toml:"handshake_timeout"`
}

// RetryConfig controls reconnection of network sources.
type RetryConfig struct {
	MinDelay    duration `toml:"min_delay"`
	MaxDelay    duration `toml:"max_delay"`
	Factor      float64  `toml:"factor"`
	Jitter      bool     `toml:"jitter"`
	MaxAttempts int      `toml:"max_attempts"`
}

// ViewConfig sizes the opportunity history.
type ViewConfig struct {
	Capacity int `toml:"capacity"`
}

// RedisConfig holds Redis connection parameters and the relay channel.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	Channel    string `toml:"channel"`
	// Publish mirrors opportunities from non-Redis sources onto Channel.
	Publish bool `toml:"publish"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "2s", "1m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials and filters.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
	MinProfitPct      float64  `toml:"min_profit_pct"`
}

// Defaults returns a Config populated with default values. These match
// config.example.toml.
func Defaults() Config {
	return Config{
		Mode:     ModeDevelopment,
		LogLevel: "info",
		Feed: FeedConfig{
			Interval:        duration{2 * time.Second},
			ValidateInbound: true,
			SocketIO: SocketIOConfig{
				Endpoint:         "ws://localhost:8080",
				Path:             "/socket.io/",
				Event:            "arbitrage_opportunity",
				HandshakeTimeout: duration{15 * time.Second},
			},
			Retry: RetryConfig{
				MinDelay:    duration{2 * time.Second},
				MaxDelay:    duration{60 * time.Second},
				Factor:      2,
				Jitter:      true,
				MaxAttempts: 0,
			},
		},
		View: ViewConfig{
			Capacity: 100,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			Channel:    "arb:opportunities",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events:       []string{"opportunity", "feed_failed"},
			MinProfitPct: 3,
		},
	}
}

// FeedSource resolves the source to run: the explicit feed.source, or the
// mode's default (simulated in development, socketio in production).
func (c *Config) FeedSource() string {
	if s := strings.ToLower(strings.TrimSpace(c.Feed.Source)); s != "" {
		return s
	}
	if strings.ToLower(c.Mode) == ModeProduction {
		return SourceSocketIO
	}
	return SourceSimulated
}

// UsesRedis reports whether a Redis client is needed.
func (c *Config) UsesRedis() bool {
	return c.FeedSource() == SourceRedis || c.Redis.Publish
}

var validModes = map[string]bool{
	ModeDevelopment: true,
	ModeProduction:  true,
}

var validSources = map[string]bool{
	SourceSimulated: true,
	SourceSocketIO:  true,
	SourceRedis:     true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validEvents = map[string]bool{
	"opportunity": true,
	"feed_failed": true,
}

// Validate checks Config for invalid or missing values and returns a combined
// error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: development, production)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Feed
	source := c.FeedSource()
	if !validSources[source] {
		errs = append(errs, fmt.Sprintf("feed: unknown source %q (valid: simulated, socketio, redis)", c.Feed.Source))
	}
	if c.Feed.Interval.Duration <= 0 {
		errs = append(errs, "feed: interval must be > 0")
	}
	if source == SourceSocketIO {
		if u, err := url.Parse(c.Feed.SocketIO.Endpoint); err != nil || u.Host == "" ||
			!(u.Scheme == "ws" || u.Scheme == "wss" || u.Scheme == "http" || u.Scheme == "https") {
			errs = append(errs, fmt.Sprintf("feed.socketio: endpoint %q must be a ws, wss, http or https URL", c.Feed.SocketIO.Endpoint))
		}
		if c.Feed.SocketIO.Event == "" {
			errs = append(errs, "feed.socketio: event must not be empty")
		}
		if c.Feed.SocketIO.HandshakeTimeout.Duration <= 0 {
			errs = append(errs, "feed.socketio: handshake_timeout must be > 0")
		}
	}

	// Retry
	r := c.Feed.Retry
	if r.MinDelay.Duration <= 0 {
		errs = append(errs, "feed.retry: min_delay must be > 0")
	}
	if r.MaxDelay.Duration < r.MinDelay.Duration {
		errs = append(errs, "feed.retry: max_delay must be >= min_delay")
	}
	if r.Factor < 1 {
		errs = append(errs, fmt.Sprintf("feed.retry: factor must be >= 1, got %g", r.Factor))
	}
	if r.MaxAttempts < 0 {
		errs = append(errs, "feed.retry: max_attempts must be >= 0 (0 retries forever)")
	}

	// View
	if c.View.Capacity < 1 {
		errs = append(errs, "view: capacity must be >= 1")
	}

	// Redis
	if c.UsesRedis() {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.Channel == "" {
			errs = append(errs, "redis: channel must not be empty")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}
	for _, e := range c.Notify.Events {
		if !validEvents[strings.TrimSpace(e)] {
			errs = append(errs, fmt.Sprintf("notify: unknown event %q (valid: opportunity, feed_failed)", e))
		}
	}
	if math.IsNaN(c.Notify.MinProfitPct) || math.IsInf(c.Notify.MinProfitPct, 0) {
		errs = append(errs, "notify: min_profit_pct must be a finite number")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
