package referrals

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
)

// MaxCommissionLevels caps the materialized ancestor edges used for payouts.
// The ancestor chain walk used by affiliate pricing is not bounded by it.
const MaxCommissionLevels = 3

// Service exposes the read-mostly referral graph.
type Service interface {
	// RecordRecruitment writes the level-1 edge for a new recruit and
	// materializes level-2/3 edges from the recruiter's own ancestry.
	RecordRecruitment(ctx context.Context, parentID, childID uuid.UUID) error
	// Ancestors returns the commission-eligible edges for an agent, ordered by
	// level ascending. At most MaxCommissionLevels rows by construction.
	Ancestors(ctx context.Context, childID uuid.UUID) ([]models.Referral, error)
	// AncestorChain walks level-1 edges upward without a depth cap, nearest
	// recruiter first, stopping on a cycle or when no parent exists.
	AncestorChain(ctx context.Context, agentID uuid.UUID) ([]uuid.UUID, error)
}

type service struct {
	repo Repository
}

// NewService wires the referral graph service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("referrals repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordRecruitment(ctx context.Context, parentID, childID uuid.UUID) error {
	if parentID == uuid.Nil || childID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "parent and child ids required")
	}
	if parentID == childID {
		return pkgerrors.New(pkgerrors.CodeValidation, "agent cannot recruit itself")
	}

	existing, err := s.repo.FindDirectParent(ctx, childID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing recruiter")
	}
	if existing != nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "agent already has a recruiter")
	}

	edges := []models.Referral{{ParentID: parentID, ChildID: childID, Level: 1}}

	parentAncestors, err := s.repo.ListByChildID(ctx, parentID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recruiter ancestry")
	}
	for _, ancestor := range parentAncestors {
		level := ancestor.Level + 1
		if level > MaxCommissionLevels {
			continue
		}
		edges = append(edges, models.Referral{ParentID: ancestor.ParentID, ChildID: childID, Level: level})
	}

	if err := s.repo.CreateEdges(ctx, edges); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write referral edges")
	}
	return nil
}

func (s *service) Ancestors(ctx context.Context, childID uuid.UUID) ([]models.Referral, error) {
	if childID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "child id required")
	}
	return s.repo.ListByChildID(ctx, childID)
}

func (s *service) AncestorChain(ctx context.Context, agentID uuid.UUID) ([]uuid.UUID, error) {
	if agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}

	var chain []uuid.UUID
	visited := map[uuid.UUID]bool{agentID: true}
	current := agentID
	for {
		edge, err := s.repo.FindDirectParent(ctx, current)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "walk referral chain")
		}
		if edge == nil {
			return chain, nil
		}
		if visited[edge.ParentID] {
			// Cycle guard: a malformed graph must not loop the walk forever.
			return chain, nil
		}
		visited[edge.ParentID] = true
		chain = append(chain, edge.ParentID)
		current = edge.ParentID
	}
}
