package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/sensor-platform/alert-engine/internal/config"
	"github.com/sensor-platform/alert-engine/internal/models"
)

// EmailChannel delivers alerts over SMTP.
type EmailChannel struct {
	config config.EmailConfig
}

func NewEmailChannel(cfg config.EmailConfig) *EmailChannel {
	return &EmailChannel{config: cfg}
}

func (ec *EmailChannel) Name() string {
	return models.ChannelEmail
}

func (ec *EmailChannel) Send(ctx context.Context, req models.NotificationRequest) error {
	if ec.config.SMTPHost == "" || ec.config.Username == "" {
		return fmt.Errorf("email configuration incomplete")
	}

	subject := fmt.Sprintf("Alert: %s - %s", req.Severity, req.RuleName)
	body := fmt.Sprintf(`
Sensor Alert

Severity: %s
Device: %s
Rule: %s
Message: %s
Fired at: %s

--
Sensor Platform
`, req.Severity, req.DeviceID, req.RuleName, req.Message, req.CreatedAt.Format(time.RFC3339))

	message := []byte(fmt.Sprintf("Subject: %s\r\n\r\n%s", subject, body))
	auth := smtp.PlainAuth("", ec.config.Username, ec.config.Password, ec.config.SMTPHost)
	addr := fmt.Sprintf("%s:%d", ec.config.SMTPHost, ec.config.SMTPPort)

	if err := smtp.SendMail(addr, auth, ec.config.From, ec.config.To, message); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
