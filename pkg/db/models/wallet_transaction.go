package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
)

// WalletTransaction is one immutable ledger entry. Amounts are signed:
// negative for debits.
type WalletTransaction struct {
	ID        uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID  uuid.UUID                   `gorm:"column:wallet_id;type:uuid;not null;index"`
	AgentID   uuid.UUID                   `gorm:"column:agent_id;type:uuid;not null;index"`
	Type      enums.WalletTransactionType `gorm:"column:type;type:text;not null"`
	AmountGhs decimal.Decimal             `gorm:"column:amount_ghs;type:numeric(12,2);not null"`
	Reference string                      `gorm:"column:reference;not null;index"`
	Metadata  json.RawMessage             `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
