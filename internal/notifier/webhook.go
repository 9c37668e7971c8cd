package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sensor-platform/alert-engine/internal/config"
	"github.com/sensor-platform/alert-engine/internal/models"
)

// WebhookChannel POSTs the notification request as JSON to a configured URL.
type WebhookChannel struct {
	config config.WebhookConfig
	client *http.Client
}

func NewWebhookChannel(cfg config.WebhookConfig) *WebhookChannel {
	return &WebhookChannel{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout()},
	}
}

func (wc *WebhookChannel) Name() string {
	return models.ChannelWebhook
}

func (wc *WebhookChannel) Send(ctx context.Context, req models.NotificationRequest) error {
	if wc.config.URL == "" {
		return fmt.Errorf("webhook url not configured")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, wc.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := wc.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
