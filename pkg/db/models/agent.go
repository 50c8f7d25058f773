package models

import (
	"time"

	"github.com/google/uuid"
)

// Agent is a reseller account. An agent may sit under another agent in the
// referral graph and may hold the admin role for back-office operations.
type Agent struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	Email        string    `gorm:"column:email;not null;uniqueIndex"`
	Phone        string    `gorm:"column:phone;not null"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Role         string    `gorm:"column:role;not null;default:'agent'"`
	ReferralCode string    `gorm:"column:referral_code;not null;uniqueIndex"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

const (
	AgentRoleAgent = "agent"
	AgentRoleAdmin = "admin"
)
