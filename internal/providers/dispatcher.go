package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kwesidadzie/bundlehub-backend/pkg/bundles"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
)

// orderStore is the slice of the order repository the dispatcher writes
// through. ClaimProviderReference is conditional on the reference still being
// unset; a false return means another dispatch won the race.
type orderStore interface {
	FindWithItems(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ClaimProviderReference(ctx context.Context, orderID uuid.UUID, provider enums.Provider, reference string, status enums.ProviderStatus, response string) (bool, error)
	UpdateProviderStatus(ctx context.Context, orderID uuid.UUID, status enums.ProviderStatus, response *string, checkedAt time.Time) error
	RecordDispatchError(ctx context.Context, orderID uuid.UUID, response string, checkedAt time.Time) error
	MarkDispatchFailed(ctx context.Context, orderID uuid.UUID, reason string) error
	AdvanceToFulfilled(ctx context.Context, orderID uuid.UUID) error
}

// Dispatcher submits paid orders upstream. First successful dispatch wins on
// provider_reference; everything after a claimed reference is a no-op.
type Dispatcher interface {
	// Dispatch submits the order to the currently routed provider. Calls on
	// orders that are not dispatchable return nil without touching upstream.
	Dispatch(ctx context.Context, orderID uuid.UUID) error
	// RefreshStatus polls the upstream for a dispatched order and advances it
	// to fulfilled when the upstream confirms delivery.
	RefreshStatus(ctx context.Context, orderID uuid.UUID) error
}

type dispatcher struct {
	orders   orderStore
	router   Router
	registry map[enums.Provider]bundles.Provider
	logg     *logger.Logger
	now      func() time.Time
}

// NewDispatcher wires the dispatcher with the routed upstream clients.
func NewDispatcher(orders orderStore, router Router, upstreams []bundles.Provider, logg *logger.Logger) (Dispatcher, error) {
	if orders == nil {
		return nil, fmt.Errorf("order store required")
	}
	if router == nil {
		return nil, fmt.Errorf("router required")
	}
	if len(upstreams) == 0 {
		return nil, fmt.Errorf("at least one upstream provider required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	registry := make(map[enums.Provider]bundles.Provider, len(upstreams))
	for _, upstream := range upstreams {
		registry[upstream.Key()] = upstream
	}
	return &dispatcher{
		orders:   orders,
		router:   router,
		registry: registry,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (d *dispatcher) Dispatch(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := d.orders.FindWithItems(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.ProviderReference != nil {
		return nil
	}
	if order.Status != enums.OrderStatusPaid {
		return nil
	}

	input, err := d.buildPurchase(order)
	if err != nil {
		// Mapping failures are permanent: the order can never dispatch as-is.
		if markErr := d.orders.MarkDispatchFailed(ctx, orderID, err.Error()); markErr != nil {
			lctx := d.logg.WithOrderID(ctx, orderID.String())
			d.logg.Error(lctx, "failed to mark order dispatch failure", markErr)
		}
		return err
	}

	providerKey, reason, err := d.router.Resolve(ctx)
	if err != nil {
		return err
	}
	upstream, ok := d.registry[providerKey]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("no client registered for provider %q", providerKey))
	}

	lctx := d.logg.WithFields(ctx, map[string]any{
		"order_id":  orderID.String(),
		"provider":  providerKey.String(),
		"route_via": reason,
	})

	result, err := upstream.Purchase(ctx, *input)
	if err != nil {
		// Upstream errors are retryable. Record the failure on the order for
		// ops visibility; the reference stays unset so the reconciliation loop
		// picks it up again.
		d.logg.Error(lctx, "upstream purchase failed", err)
		if recordErr := d.orders.RecordDispatchError(ctx, orderID, err.Error(), d.now()); recordErr != nil {
			d.logg.Error(lctx, "failed to record upstream dispatch error", recordErr)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit bundle purchase")
	}

	status := bundles.NormalizeStatus(result.Status)
	claimed, err := d.orders.ClaimProviderReference(ctx, orderID, providerKey, result.Reference, status, result.Raw)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim provider reference")
	}
	if !claimed {
		d.logg.Warn(lctx, "lost dispatch race, keeping first provider reference")
		return nil
	}

	d.logg.Info(lctx, "order dispatched upstream")
	if status.IsDelivered() {
		if err := d.orders.AdvanceToFulfilled(ctx, orderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order to fulfilled")
		}
	}
	return nil
}

func (d *dispatcher) RefreshStatus(ctx context.Context, orderID uuid.UUID) error {
	order, err := d.orders.FindWithItems(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.ProviderReference == nil || order.ProviderKey == nil {
		return nil
	}
	if order.ProviderStatus != nil && order.ProviderStatus.IsTerminal() {
		return nil
	}

	upstream, ok := d.registry[*order.ProviderKey]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("no client registered for provider %q", *order.ProviderKey))
	}

	raw, err := upstream.QueryStatus(ctx, *order.ProviderReference)
	if err != nil {
		// Still record the poll so the throttle window moves forward.
		if updateErr := d.orders.UpdateProviderStatus(ctx, orderID, valueOrPending(order.ProviderStatus), order.ProviderResponse, d.now()); updateErr != nil {
			lctx := d.logg.WithOrderID(ctx, orderID.String())
			d.logg.Error(lctx, "failed to stamp status poll", updateErr)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query upstream status")
	}

	status := bundles.NormalizeStatus(raw)
	if err := d.orders.UpdateProviderStatus(ctx, orderID, status, &raw, d.now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update provider status")
	}
	if status.IsDelivered() && order.Status != enums.OrderStatusFulfilled {
		if err := d.orders.AdvanceToFulfilled(ctx, orderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order to fulfilled")
		}
	}
	return nil
}

// buildPurchase flattens the order into one upstream submission. All items
// must resolve to the same network; capacities accumulate across items.
func (d *dispatcher) buildPurchase(order *models.Order) (*bundles.PurchaseInput, error) {
	if len(order.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}

	networkKey := ""
	totalCapacity := 0.0
	for _, item := range order.Items {
		if item.Product == nil || item.Product.Category == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "order item missing product category")
		}
		key, err := resolveNetworkKey(item.Product.Category.Slug)
		if err != nil {
			return nil, err
		}
		if networkKey == "" {
			networkKey = key
		} else if networkKey != key {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "order mixes bundle networks")
		}
		capacity, err := parseCapacityGb(item.Product.Size)
		if err != nil {
			return nil, err
		}
		totalCapacity += capacity * float64(item.Quantity)
	}

	return &bundles.PurchaseInput{
		NetworkKey: networkKey,
		Recipient:  order.CustomerPhone,
		CapacityGb: totalCapacity,
	}, nil
}

func valueOrPending(status *enums.ProviderStatus) enums.ProviderStatus {
	if status == nil {
		return enums.ProviderStatusPending
	}
	return *status
}
