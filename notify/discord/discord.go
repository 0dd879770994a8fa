package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/caasmo/regverify/config"
	"github.com/caasmo/regverify/notify"
)

type payload struct {
	Content string `json:"content"`
}

// discordMaxMessageLength is Discord's hard per-message character limit;
// longer payloads are truncated with an ellipsis.
const discordMaxMessageLength = 2000

// Notifier implements notify.Notifier by posting to a Discord webhook.
// Safe for concurrent use: all fields are immutable after construction or
// are themselves concurrency-safe (*slog.Logger, *http.Client,
// *rate.Limiter). Send is non-blocking; the HTTP round trip runs in its
// own goroutine so a slow or rate-limited webhook never stalls a caller.
type Notifier struct {
	webhookURL     string
	sendTimeout    time.Duration
	logger         *slog.Logger
	httpClient     *http.Client
	apiRateLimiter *rate.Limiter
}

// New creates a Notifier from the live config.Discord section.
func New(cfg config.Discord, logger *slog.Logger) (*Notifier, error) {
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("discord: WebhookURL is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("discord: logger is required")
	}

	rateLimit := rate.Limit(cfg.RateLimit)
	if rateLimit <= 0 {
		rateLimit = rate.Every(2 * time.Second)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	sendTimeout := cfg.SendTimeout.Duration
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}

	return &Notifier{
		webhookURL:     cfg.WebhookURL,
		sendTimeout:    sendTimeout,
		logger:         logger,
		apiRateLimiter: rate.NewLimiter(rateLimit, burst),
		httpClient:     &http.Client{},
	}, nil
}

func (dn *Notifier) formatMessage(n notify.Notification) string {
	mainMessage := fmt.Sprintf("[%s] from *%s*:\n> %s\n", n.Type.String(), n.Source, n.Message)

	var fieldsFormatted []string
	for k, v := range n.Fields {
		if v == nil {
			continue
		}
		valStr := fmt.Sprintf("%v", v)
		if k != "" && valStr != "" {
			fieldsFormatted = append(fieldsFormatted, fmt.Sprintf("> %s: `%s`\n", k, valStr))
		}
	}

	var fieldsSection string
	if len(fieldsFormatted) > 0 {
		fieldsSection = "\n**Fields**:\n" + strings.Join(fieldsFormatted, "")
	}

	content := mainMessage + fieldsSection
	if len(content) > discordMaxMessageLength {
		return content[:discordMaxMessageLength-3] + "..."
	}
	return content
}

// Send implements notify.Notifier. It is non-blocking: it only acquires a
// rate-limit token synchronously, then dispatches the HTTP POST in a
// goroutine. A dropped-for-rate-limit notification is not an error.
func (dn *Notifier) Send(_ context.Context, n notify.Notification) error {
	if !dn.apiRateLimiter.Allow() {
		dn.logger.Warn("discord: rate limit reached, dropping notification",
			"source", n.Source, "message", n.Message)
		return nil
	}

	go func(notif notify.Notification) {
		sendCtx, cancel := context.WithTimeout(context.Background(), dn.sendTimeout)
		defer cancel()

		jsonBody, err := json.Marshal(payload{Content: dn.formatMessage(notif)})
		if err != nil {
			dn.logger.Error("discord: failed to marshal payload",
				"source", notif.Source, "message", notif.Message, "error", err)
			return
		}

		req, err := http.NewRequestWithContext(sendCtx, http.MethodPost, dn.webhookURL, bytes.NewBuffer(jsonBody))
		if err != nil {
			dn.logger.Error("discord: failed to create request",
				"source", notif.Source, "message", notif.Message, "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := dn.httpClient.Do(req)
		if err != nil {
			dn.logger.Error("discord: failed to send to discord",
				"source", notif.Source, "message", notif.Message, "error", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			dn.logger.Error("discord: received non-2xx status from Discord",
				"status_code", resp.StatusCode, "source", notif.Source, "message", notif.Message)
			if resp.StatusCode == http.StatusTooManyRequests {
				dn.logger.Warn("discord: received 429 Too Many Requests, rate limit settings may need adjustment")
			}
			return
		}

		dn.logger.Debug("discord: notification sent", "source", notif.Source, "message", notif.Message)
	}(n)

	return nil
}
