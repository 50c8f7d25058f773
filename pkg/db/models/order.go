package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
)

// Order is a purchase of one or more bundle items by an agent on behalf of a
// customer phone number. Status only advances forward; provider_reference is
// written at most once (first successful dispatch wins).
type Order struct {
	ID                    uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgentID               uuid.UUID            `gorm:"column:agent_id;type:uuid;not null;index"`
	CustomerPhone         string               `gorm:"column:customer_phone;not null"`
	TotalAmountGhs        decimal.Decimal      `gorm:"column:total_amount_ghs;type:numeric(12,2);not null"`
	Status                enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'created'"`
	PaymentRef            *string              `gorm:"column:payment_ref"`
	ProviderKey           *enums.Provider      `gorm:"column:provider_key;type:text"`
	ProviderReference     *string              `gorm:"column:provider_reference;uniqueIndex"`
	ProviderStatus        *enums.ProviderStatus `gorm:"column:provider_status;type:text"`
	ProviderResponse      *string              `gorm:"column:provider_response"`
	ProviderLastCheckedAt *time.Time           `gorm:"column:provider_last_checked_at"`
	Items                 []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
