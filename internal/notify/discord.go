package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Discord embed limits.
const (
	discordMaxTitle       = 256
	discordMaxDescription = 4096
	discordMaxFields      = 25
	discordMaxFieldName   = 256
	discordMaxFieldValue  = 1024
)

// Embed colours per alert level.
var discordColors = map[Level]int{
	LevelInfo:    0x3498db,
	LevelGain:    0x2ecc71,
	LevelLoss:    0xe67e22,
	LevelFailure: 0xe74c3c,
}

type discordWebhook struct {
	Username string         `json:"username"`
	Embeds   []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Footer      *discordFooter `json:"footer,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

// DiscordSender posts alerts as rich embeds to a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// embed converts alert into a single embed, clipped to Discord's limits.
func embed(alert Alert) discordEmbed {
	e := discordEmbed{
		Title:       clip(alert.Title, discordMaxTitle),
		Description: clip(alert.Message, discordMaxDescription),
		Color:       discordColors[alert.Level],
	}
	for i, f := range alert.Fields {
		if i == discordMaxFields {
			break
		}
		e.Fields = append(e.Fields, discordField{
			Name:   clip(f.Name, discordMaxFieldName),
			Value:  clip(f.Value, discordMaxFieldValue),
			Inline: true,
		})
	}
	if !alert.Time.IsZero() {
		e.Timestamp = alert.Time.UTC().Format(time.RFC3339)
	}
	if alert.Event != "" {
		e.Footer = &discordFooter{Text: alert.Event}
	}
	return e
}

// Send posts the alert. Discord answers 204 No Content on success.
func (d *DiscordSender) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(discordWebhook{
		Username: "xchainarb",
		Embeds:   []discordEmbed{embed(alert)},
	})
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}

// clip shortens s to at most limit runes.
func clip(s string, limit int) string {
	if r := []rune(s); len(r) > limit {
		return string(r[:limit])
	}
	return s
}
