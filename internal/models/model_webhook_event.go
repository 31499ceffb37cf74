package models

import (
	"time"

	"gorm.io/datatypes"
)

type WebhookEventStatus string

const (
	WebhookEventStatusReceived     WebhookEventStatus = "received"
	WebhookEventStatusHandled      WebhookEventStatus = "handled"
	WebhookEventStatusHandleFailed WebhookEventStatus = "handle_failed"
)

// WebhookEvent stores every delivered gateway event together with its
// processing outcome. The unique (provider, provider_event_id) index doubles
// as the idempotency key: an insert conflict means the event was already
// delivered and must not be applied again.
type WebhookEvent struct {
	ID              string             `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Provider        string             `gorm:"column:provider;type:varchar(16);not null;uniqueIndex:unique_provider_event,priority:1" json:"provider"`
	ProviderEventID string             `gorm:"column:provider_event_id;type:varchar(191);not null;uniqueIndex:unique_provider_event,priority:2" json:"provider_event_id"`
	EventType       string             `gorm:"column:event_type;type:varchar(100);not null;index" json:"event_type"`
	UserID          *string            `gorm:"column:user_id;type:varchar(64);index" json:"user_id"`
	TraceID         string             `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	Data            datatypes.JSON     `gorm:"column:data;type:jsonb" json:"data"`
	Result          *datatypes.JSON    `gorm:"column:result;type:jsonb" json:"result"`
	Status          WebhookEventStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func (WebhookEvent) TableName() string { return "webhook_event" }
