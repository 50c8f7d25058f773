package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is one line of an order.
// unit_price_ghs = base_price_ghs + markup_ghs; total = unit price x quantity.
type OrderItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	BasePriceGhs  decimal.Decimal `gorm:"column:base_price_ghs;type:numeric(12,2);not null"`
	MarkupGhs     decimal.Decimal `gorm:"column:markup_ghs;type:numeric(12,2);not null"`
	Quantity      int             `gorm:"column:quantity;not null"`
	UnitPriceGhs  decimal.Decimal `gorm:"column:unit_price_ghs;type:numeric(12,2);not null"`
	TotalPriceGhs decimal.Decimal `gorm:"column:total_price_ghs;type:numeric(12,2);not null"`
	Product       *Product        `gorm:"foreignKey:ProductID"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
