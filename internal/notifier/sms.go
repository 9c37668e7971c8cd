package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sensor-platform/alert-engine/internal/config"
	"github.com/sensor-platform/alert-engine/internal/models"
)

// SMSChannel hands alerts to an external SMS gateway over HTTP.
type SMSChannel struct {
	config config.SMSConfig
	client *http.Client
}

func NewSMSChannel(cfg config.SMSConfig) *SMSChannel {
	return &SMSChannel{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (sc *SMSChannel) Name() string {
	return models.ChannelSMS
}

func (sc *SMSChannel) Send(ctx context.Context, req models.NotificationRequest) error {
	if sc.config.GatewayURL == "" {
		return fmt.Errorf("sms gateway not configured")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"from":    sc.config.From,
		"to":      sc.config.To,
		"message": fmt.Sprintf("[%s] %s", req.Severity, req.Message),
	})
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, sc.config.GatewayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if sc.config.APIKey != "" {
		httpReq.Header.Set("X-API-Key", sc.config.APIKey)
	}

	resp, err := sc.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sms gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}
