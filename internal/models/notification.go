package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationRequest asks one channel to deliver one fire of an alert.
// (AlertInstanceID, FireSequence, Channel) is the dispatch idempotency key:
// redelivering the same key must not produce a second user-visible message.
type NotificationRequest struct {
	AlertInstanceID uuid.UUID `json:"alert_instance_id"`
	FireSequence    int64     `json:"fire_sequence"`
	Channel         string    `json:"channel"`
	Severity        string    `json:"severity"`
	Message         string    `json:"message"`
	DeviceID        string    `json:"device_id"`
	RuleName        string    `json:"rule_name"`
	CreatedAt       time.Time `json:"created_at"`
}

// IdempotencyKey identifies this delivery attempt across retries and replays.
func (r NotificationRequest) IdempotencyKey() string {
	return fmt.Sprintf("%s:%d:%s", r.AlertInstanceID, r.FireSequence, r.Channel)
}

// Delivery outcome states recorded per channel.
const (
	DeliveryPending   = "pending"
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

// NotificationRecord is the persisted per-channel delivery outcome.
type NotificationRecord struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AlertInstanceID uuid.UUID `gorm:"type:uuid;not null;index" json:"alert_instance_id"`
	FireSequence    int64     `gorm:"not null" json:"fire_sequence"`
	Channel         string    `gorm:"type:varchar(20);not null" json:"channel"`
	Status          string    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Attempts        int       `gorm:"not null;default:0" json:"attempts"`
	LastError       string    `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (NotificationRecord) TableName() string {
	return "notifications"
}
