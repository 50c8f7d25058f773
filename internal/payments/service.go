package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwesidadzie/bundlehub-backend/pkg/db"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
	"github.com/kwesidadzie/bundlehub-backend/pkg/paystack"
)

// gateway is the slice of the Paystack client the service calls.
type gateway interface {
	Initialize(ctx context.Context, input paystack.InitializeInput) (*paystack.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}

// InitiateInput opens a checkout for one purpose. Exactly one of OrderID and
// PlanID is set for order and subscription payments; both stay nil for topups.
type InitiateInput struct {
	AgentID   uuid.UUID
	Email     string
	Type      enums.PaymentType
	AmountGhs decimal.Decimal
	OrderID   *uuid.UUID
	PlanID    *uuid.UUID
}

// Checkout is the hosted payment handle returned to the client.
type Checkout struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

// Service is the payment intake: it opens gateway transactions, deduplicates
// webhook deliveries, and drives the created-to-verified transition.
type Service interface {
	Initiate(ctx context.Context, input InitiateInput) (*Checkout, error)
	// RecordEvent persists a webhook delivery keyed by its event id. It
	// returns false for a replayed event id, which the caller treats as an
	// acknowledged no-op.
	RecordEvent(ctx context.Context, eventID, reference, payload string) (bool, error)
	// DiscardEvent removes a recorded event id so a retry of the same delivery
	// is treated as fresh. Callers use it when a side effect failed after the
	// event was recorded.
	DiscardEvent(ctx context.Context, eventID string) error
	// Confirm verifies the reference against the gateway and marks the
	// payment verified. The bool reports whether this call performed the
	// transition; a later call on the same reference returns false.
	Confirm(ctx context.Context, reference string) (*models.Payment, bool, error)
	FindByReference(ctx context.Context, reference string) (*models.Payment, error)
}

type service struct {
	repo    Repository
	gateway gateway
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the payment intake.
func NewService(repo Repository, gw gateway, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, gateway: gw, logg: logg, now: time.Now}, nil
}

func (s *service) Initiate(ctx context.Context, input InitiateInput) (*Checkout, error) {
	if input.AgentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	if input.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment type %q", input.Type))
	}
	if input.AmountGhs.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	reference := fmt.Sprintf("bh-%s", uuid.NewString())
	payment := &models.Payment{
		Reference: reference,
		Type:      input.Type,
		AmountGhs: input.AmountGhs,
		Status:    enums.PaymentStatusCreated,
		OrderID:   input.OrderID,
		PlanID:    input.PlanID,
		AgentID:   &input.AgentID,
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}

	result, err := s.gateway.Initialize(ctx, paystack.InitializeInput{
		Email:     input.Email,
		AmountGhs: input.AmountGhs,
		Reference: reference,
		Metadata: map[string]any{
			"agent_id": input.AgentID.String(),
			"type":     input.Type.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	return &Checkout{
		Reference:        reference,
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
	}, nil
}

func (s *service) RecordEvent(ctx context.Context, eventID, reference, payload string) (bool, error) {
	if eventID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}

	event := &models.PaymentEvent{
		EventID:   eventID,
		Reference: reference,
		Payload:   payload,
	}
	if err := s.repo.InsertEvent(ctx, event); err != nil {
		if db.IsUniqueViolation(err, "uq_payment_events_event_id") {
			lctx := s.logg.WithField(ctx, "event_id", eventID)
			s.logg.Info(lctx, "ignoring replayed payment event")
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment event")
	}
	return true, nil
}

func (s *service) DiscardEvent(ctx context.Context, eventID string) error {
	if eventID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	if err := s.repo.DeleteEvent(ctx, eventID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discard payment event")
	}
	return nil
}

func (s *service) Confirm(ctx context.Context, reference string) (*models.Payment, bool, error) {
	payment, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment == nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, "unknown payment reference")
	}
	if payment.Status == enums.PaymentStatusVerified {
		return payment, false, nil
	}

	result, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, false, err
	}
	if !result.Success() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("gateway reports transaction status %q", result.Status))
	}

	// Gateway amounts come back in pesewas.
	expected := payment.AmountGhs.Mul(decimal.NewFromInt(100)).IntPart()
	if result.Amount != expected {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("amount mismatch: gateway settled %d, expected %d", result.Amount, expected))
	}

	transitioned, err := s.repo.MarkVerified(ctx, payment.ID, s.now())
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment verified")
	}
	if transitioned {
		now := s.now()
		payment.Status = enums.PaymentStatusVerified
		payment.VerifiedAt = &now
	}
	return payment, transitioned, nil
}

func (s *service) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference required")
	}
	payment, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown payment reference")
	}
	return payment, nil
}
