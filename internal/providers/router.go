package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/kwesidadzie/bundlehub-backend/pkg/config"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
)

// Routing reasons reported alongside the resolved provider.
const (
	ReasonAdminOverride = "admin_override"
	ReasonTimeSchedule  = "time_schedule"
)

// Router picks the active upstream provider. A persisted admin override wins;
// otherwise the daily time window decides: swiftlink inside the window,
// datanet outside it.
type Router interface {
	Resolve(ctx context.Context) (enums.Provider, string, error)
	SetOverride(ctx context.Context, override *enums.Provider, updatedBy string) error
	Setting(ctx context.Context) (*enums.Provider, error)
}

type router struct {
	settings    SettingsRepository
	location    *time.Location
	windowStart time.Duration
	windowEnd   time.Duration
	now         func() time.Time
}

// NewRouter wires the provider router from the schedule configuration.
func NewRouter(settings SettingsRepository, cfg config.ProvidersConfig) (Router, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	location, err := time.LoadLocation(cfg.ScheduleTimezone)
	if err != nil {
		return nil, fmt.Errorf("load schedule timezone: %w", err)
	}
	start, err := parseClock(cfg.ScheduleWindowStart)
	if err != nil {
		return nil, err
	}
	end, err := parseClock(cfg.ScheduleWindowEnd)
	if err != nil {
		return nil, err
	}
	return &router{
		settings:    settings,
		location:    location,
		windowStart: start,
		windowEnd:   end,
		now:         time.Now,
	}, nil
}

func (r *router) Resolve(ctx context.Context) (enums.Provider, string, error) {
	setting, err := r.settings.Find(ctx)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load provider settings")
	}
	if setting.Override != nil && setting.Override.IsValid() {
		return *setting.Override, ReasonAdminOverride, nil
	}

	local := r.now().In(r.location)
	sinceMidnight := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second
	if r.inWindow(sinceMidnight) {
		return enums.ProviderSwiftlink, ReasonTimeSchedule, nil
	}
	return enums.ProviderDatanet, ReasonTimeSchedule, nil
}

// inWindow handles windows that wrap past midnight, e.g. 22:00 to 06:00.
func (r *router) inWindow(sinceMidnight time.Duration) bool {
	if r.windowStart <= r.windowEnd {
		return sinceMidnight >= r.windowStart && sinceMidnight < r.windowEnd
	}
	return sinceMidnight >= r.windowStart || sinceMidnight < r.windowEnd
}

func (r *router) SetOverride(ctx context.Context, override *enums.Provider, updatedBy string) error {
	if override != nil && !override.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid provider %q", *override))
	}
	if err := r.settings.SaveOverride(ctx, override, updatedBy); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save provider override")
	}
	return nil
}

func (r *router) Setting(ctx context.Context) (*enums.Provider, error) {
	setting, err := r.settings.Find(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load provider settings")
	}
	return setting.Override, nil
}

func parseClock(raw string) (time.Duration, error) {
	parsed, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, fmt.Errorf("invalid window boundary %q: %w", raw, err)
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
}
