package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEvent deduplicates inbound gateway events. The unique event_id index
// is the idempotency boundary for at-least-once webhook delivery.
type PaymentEvent struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID   string    `gorm:"column:event_id;not null;uniqueIndex:uq_payment_events_event_id"`
	Reference string    `gorm:"column:reference;not null;index"`
	Payload   string    `gorm:"column:payload;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
