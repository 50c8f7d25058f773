package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
)

// Store adapts the repository to the narrow view the subscription gate needs.
type Store struct {
	repo Repository
}

// NewStore wraps a repository for limit enforcement callers.
func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

func (s *Store) ListActiveByAgent(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) ([]models.AgentProduct, error) {
	return s.repo.WithTx(tx).ListActiveByAgent(ctx, agentID)
}

func (s *Store) DeactivateByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	return s.repo.WithTx(tx).DeactivateByIDs(ctx, ids)
}
