package notifier

import (
	"context"
	"fmt"

	"github.com/sensor-platform/alert-engine/internal/models"
)

// InAppPublisher pushes a notification to connected dashboard clients. The
// WebSocket hub implements this.
type InAppPublisher interface {
	PublishNotification(req models.NotificationRequest) error
}

// InAppChannel delivers alerts to the in-app notification feed.
type InAppChannel struct {
	publisher InAppPublisher
}

func NewInAppChannel(publisher InAppPublisher) *InAppChannel {
	return &InAppChannel{publisher: publisher}
}

func (ic *InAppChannel) Name() string {
	return models.ChannelInApp
}

func (ic *InAppChannel) Send(ctx context.Context, req models.NotificationRequest) error {
	if ic.publisher == nil {
		return fmt.Errorf("in-app publisher not configured")
	}
	return ic.publisher.PublishNotification(req)
}
