package notifier

import (
	"context"
	"fmt"

	"github.com/sensor-platform/alert-engine/internal/models"
)

// Channel is one notification delivery mechanism. Implementations produce a
// well-formed outbound request for their transport; retries and idempotency
// are the dispatcher's job, not the channel's.
type Channel interface {
	Name() string
	Send(ctx context.Context, req models.NotificationRequest) error
}

// DispatchError reports a channel send that failed after all retry attempts.
type DispatchError struct {
	Channel  string
	Attempts int
	Err      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to %s failed after %d attempts: %v", e.Channel, e.Attempts, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
