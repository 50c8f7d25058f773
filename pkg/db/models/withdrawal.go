package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
)

// Withdrawal is a payout request against the wallet. The amount is pre-debited
// at creation and refunded through a reversal transaction when rejected.
type Withdrawal struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgentID    uuid.UUID              `gorm:"column:agent_id;type:uuid;not null;index"`
	AmountGhs  decimal.Decimal        `gorm:"column:amount_ghs;type:numeric(12,2);not null"`
	Status     enums.WithdrawalStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Note       *string                `gorm:"column:note"`
	ResolvedAt *time.Time             `gorm:"column:resolved_at"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
