package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups products by upstream network (MTN, Telecel, AirtelTigo).
// The slug is the primary key for resolving a provider-side network identifier.
type Category struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Slug      string    `gorm:"column:slug;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
