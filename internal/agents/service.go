package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kwesidadzie/bundlehub-backend/pkg/auth"
	"github.com/kwesidadzie/bundlehub-backend/pkg/config"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
	"github.com/kwesidadzie/bundlehub-backend/pkg/security"
)

const (
	referralCodeLength   = 8
	referralCodeAttempts = 5
)

// recruiter records the referral edges for a freshly registered agent.
type recruiter interface {
	RecordRecruitment(ctx context.Context, parentID, childID uuid.UUID) error
}

type RegisterInput struct {
	Name         string
	Email        string
	Phone        string
	Password     string
	ReferralCode string
}

// Session is an issued access token plus the agent it belongs to.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Agent     *models.Agent
}

type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Agent, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Find(ctx context.Context, id uuid.UUID) (*models.Agent, error)
}

type service struct {
	repo      Repository
	referrals recruiter
	jwt       config.JWTConfig
	password  config.PasswordConfig
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the agent account service.
func NewService(repo Repository, referrals recruiter, jwt config.JWTConfig, password config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("agents repository required")
	}
	if referrals == nil {
		return nil, fmt.Errorf("referrals service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		referrals: referrals,
		jwt:       jwt,
		password:  password,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Agent, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	var referrer *models.Agent
	if code := strings.TrimSpace(input.ReferralCode); code != "" {
		found, err := s.repo.FindByReferralCode(ctx, strings.ToUpper(code))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up referral code")
		}
		if found == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown referral code")
		}
		referrer = found
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	agent := &models.Agent{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: hash,
		Role:         models.AgentRoleAgent,
	}

	if err := s.createWithFreshCode(ctx, agent); err != nil {
		return nil, err
	}

	if referrer != nil {
		if err := s.referrals.RecordRecruitment(ctx, referrer.ID, agent.ID); err != nil {
			// The account exists either way; the missing edges are repairable.
			lctx := s.logg.WithAgentID(ctx, agent.ID.String())
			s.logg.Error(lctx, "failed to record recruitment for new agent", err)
		}
	}
	return agent, nil
}

// createWithFreshCode retries on referral code collisions, which are the only
// unique conflicts left once the email has been normalized.
func (s *service) createWithFreshCode(ctx context.Context, agent *models.Agent) error {
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code, err := security.GenerateReferralCode(referralCodeLength)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate referral code")
		}
		agent.ReferralCode = code

		err = s.repo.Create(ctx, agent)
		if err == nil {
			return nil
		}
		if db.IsUniqueViolation(err, "idx_agents_email") &&
			strings.Contains(err.Error(), "email") {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		if !db.IsUniqueViolation(err, "idx_agents_referral_code") {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create agent")
		}
	}
	return pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a referral code")
}

func (s *service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password required")
	}

	agent, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up agent")
	}
	if agent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	ok, err := security.VerifyPassword(password, agent.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	token, err := auth.IssueAccessToken(s.jwt, agent.ID, agent.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue access token")
	}
	return &Session{
		Token:     token,
		ExpiresAt: s.now().Add(time.Duration(s.jwt.ExpirationMinutes) * time.Minute),
		Agent:     agent,
	}, nil
}

func (s *service) Find(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	agent, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find agent")
	}
	if agent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
	}
	return agent, nil
}
