package agents

import (
	"time"

	"github.com/google/uuid"

	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
)

// AgentDTO is the transport shape that omits the credential hash.
type AgentDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Role         string    `json:"role"`
	ReferralCode string    `json:"referral_code"`
	CreatedAt    time.Time `json:"created_at"`
}

// FromModel converts a persisted agent into its transport shape.
func FromModel(agent *models.Agent) *AgentDTO {
	if agent == nil {
		return nil
	}
	return &AgentDTO{
		ID:           agent.ID,
		Name:         agent.Name,
		Email:        agent.Email,
		Phone:        agent.Phone,
		Role:         agent.Role,
		ReferralCode: agent.ReferralCode,
		CreatedAt:    agent.CreatedAt,
	}
}
