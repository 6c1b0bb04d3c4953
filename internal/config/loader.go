package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "XCHAINARB_"

// Load builds the configuration from the defaults, the TOML file at path (if
// path is not empty), a .env file in the working directory (if present), and
// XCHAINARB_* environment variables, in that order. Unknown TOML keys are an
// error. The returned Config has NOT been validated; callers should invoke
// Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites Config fields from XCHAINARB_* variables that
// are set and parse cleanly.
func applyEnvOverrides(cfg *Config) {
	// ── Top-level ──
	setStr(&cfg.Mode, "MODE")
	setStr(&cfg.LogLevel, "LOG_LEVEL")

	// ── Feed ──
	setStr(&cfg.Feed.Source, "FEED_SOURCE")
	setDuration(&cfg.Feed.Interval, "FEED_INTERVAL")
	setBool(&cfg.Feed.ValidateInbound, "FEED_VALIDATE_INBOUND")
	setStr(&cfg.Feed.SocketIO.Endpoint, "FEED_SOCKETIO_ENDPOINT")
	setStr(&cfg.Feed.SocketIO.Path, "FEED_SOCKETIO_PATH")
	setStr(&cfg.Feed.SocketIO.Event, "FEED_SOCKETIO_EVENT")
	setDuration(&cfg.Feed.SocketIO.HandshakeTimeout, "FEED_SOCKETIO_HANDSHAKE_TIMEOUT")
	setDuration(&cfg.Feed.Retry.MinDelay, "FEED_RETRY_MIN_DELAY")
	setDuration(&cfg.Feed.Retry.MaxDelay, "FEED_RETRY_MAX_DELAY")
	setFloat64(&cfg.Feed.Retry.Factor, "FEED_RETRY_FACTOR")
	setBool(&cfg.Feed.Retry.Jitter, "FEED_RETRY_JITTER")
	setInt(&cfg.Feed.Retry.MaxAttempts, "FEED_RETRY_MAX_ATTEMPTS")

	// ── View ──
	setInt(&cfg.View.Capacity, "VIEW_CAPACITY")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.Channel, "REDIS_CHANNEL")
	setBool(&cfg.Redis.Publish, "REDIS_PUBLISH")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "NOTIFY_EVENTS")
	setFloat64(&cfg.Notify.MinProfitPct, "NOTIFY_MIN_PROFIT_PCT")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the prefixed
// environment variable is present and non-empty.
// ---------------------------------------------------------------------------

func lookup(key string) string {
	return os.Getenv(EnvPrefix + key)
}

func setStr(dst *string, key string) {
	if v := lookup(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := lookup(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := lookup(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := lookup(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := lookup(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := lookup(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
