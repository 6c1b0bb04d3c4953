package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/xchainarb/internal/config"
	"github.com/alanyoungcy/xchainarb/internal/domain"
	"github.com/alanyoungcy/xchainarb/internal/generator"
	"github.com/alanyoungcy/xchainarb/internal/notify"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopBus struct{}

func (nopBus) Publish(context.Context, string, []byte) error { return nil }
func (nopBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return make(chan []byte), nil
}

var _ domain.SignalBus = nopBus{}

func testDeps() *Dependencies {
	return &Dependencies{
		Generator: generator.New(),
		Notifier:  notify.NewNotifier(nil, nil, discardLogger()),
	}
}

func TestNewSourceFollowsMode(t *testing.T) {
	tests := []struct {
		name   string
		mode   string
		source string
		want   string
	}{
		{"development defaults to simulated", config.ModeDevelopment, "", "simulated"},
		{"production defaults to socketio", config.ModeProduction, "", "socketio"},
		{"explicit override wins", config.ModeProduction, config.SourceSimulated, "simulated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.Mode = tt.mode
			cfg.Feed.Source = tt.source

			src, err := newSource(&cfg, testDeps(), discardLogger())
			require.NoError(t, err)
			assert.Equal(t, tt.want, src.Name())
		})
	}
}

func TestNewSourceRedisNeedsBus(t *testing.T) {
	cfg := config.Defaults()
	cfg.Feed.Source = config.SourceRedis

	_, err := newSource(&cfg, testDeps(), discardLogger())
	require.Error(t, err)

	deps := testDeps()
	deps.SignalBus = nopBus{}
	src, err := newSource(&cfg, deps, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "redis", src.Name())
}

func TestRetryPolicyCopiesConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Feed.Retry.MaxAttempts = 7

	p := retryPolicy(cfg.Feed.Retry)
	assert.Equal(t, 2*time.Second, p.MinDelay)
	assert.Equal(t, 60*time.Second, p.MaxDelay)
	assert.Equal(t, 7, p.MaxAttempts)
	assert.True(t, p.Jitter)
}

func TestSendersFromCredentials(t *testing.T) {
	assert.Empty(t, senders(config.NotifyConfig{}))
	assert.Empty(t, senders(config.NotifyConfig{TelegramToken: "t"}))

	got := senders(config.NotifyConfig{
		TelegramToken:     "t",
		TelegramChatID:    "c",
		DiscordWebhookURL: "https://discord.example/webhook",
	})
	require.Len(t, got, 2)
	assert.Equal(t, "telegram", got[0].Name())
	assert.Equal(t, "discord", got[1].Name())
}

func TestRunSimulatedWithoutServer(t *testing.T) {
	cfg := config.Defaults()
	cfg.Server.Enabled = false
	cfg.Feed.Interval.Duration = 10 * time.Millisecond

	a := New(&cfg, discardLogger())
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, a.Run(ctx))
}
