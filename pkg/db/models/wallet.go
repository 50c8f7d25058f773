package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet caches an agent's spendable balance. The balance equals the signed
// sum of the agent's wallet transactions and is only mutated through the
// ledger's atomic credit/debit primitives.
type Wallet struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgentID    uuid.UUID       `gorm:"column:agent_id;type:uuid;not null;uniqueIndex"`
	BalanceGhs decimal.Decimal `gorm:"column:balance_ghs;type:numeric(12,2);not null;default:0"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
