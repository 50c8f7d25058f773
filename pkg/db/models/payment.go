package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
)

// Payment ties a gateway transaction reference to the purpose it was raised
// for. The reference is globally unique and the status moves from created to
// verified exactly once.
type Payment struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Reference  string              `gorm:"column:reference;not null;uniqueIndex"`
	Type       enums.PaymentType   `gorm:"column:type;type:text;not null"`
	AmountGhs  decimal.Decimal     `gorm:"column:amount_ghs;type:numeric(12,2);not null"`
	Status     enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'created'"`
	OrderID    *uuid.UUID          `gorm:"column:order_id;type:uuid;index"`
	PlanID     *uuid.UUID          `gorm:"column:plan_id;type:uuid"`
	AgentID    *uuid.UUID          `gorm:"column:agent_id;type:uuid;index"`
	VerifiedAt *time.Time          `gorm:"column:verified_at"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
