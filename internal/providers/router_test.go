package providers

import (
	"context"
	"testing"
	"time"

	"github.com/kwesidadzie/bundlehub-backend/pkg/config"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
)

type fakeSettings struct {
	setting *models.ProviderSetting
	saved   []*enums.Provider
}

func (f *fakeSettings) Find(ctx context.Context) (*models.ProviderSetting, error) {
	if f.setting == nil {
		return &models.ProviderSetting{ID: models.ProviderSettingID}, nil
	}
	return f.setting, nil
}

func (f *fakeSettings) SaveOverride(ctx context.Context, override *enums.Provider, updatedBy string) error {
	f.saved = append(f.saved, override)
	f.setting = &models.ProviderSetting{ID: models.ProviderSettingID, Override: override}
	return nil
}

func scheduleConfig() config.ProvidersConfig {
	return config.ProvidersConfig{
		ScheduleTimezone:    "Africa/Accra",
		ScheduleWindowStart: "08:00",
		ScheduleWindowEnd:   "20:00",
	}
}

func newTestRouter(t *testing.T, settings SettingsRepository, at time.Time) Router {
	t.Helper()
	rt, err := NewRouter(settings, scheduleConfig())
	if err != nil {
		t.Fatalf("unexpected router error: %v", err)
	}
	rt.(*router).now = func() time.Time { return at }
	return rt
}

// Accra runs on UTC, which keeps the wall-clock fixtures readable.
func accraTime(hour, minute int) time.Time {
	return time.Date(2026, 6, 15, hour, minute, 0, 0, time.UTC)
}

func TestRouter_OverrideBeatsSchedule(t *testing.T) {
	override := enums.ProviderDatanet
	settings := &fakeSettings{setting: &models.ProviderSetting{
		ID:       models.ProviderSettingID,
		Override: &override,
	}}
	// Noon would route to swiftlink without the override.
	rt := newTestRouter(t, settings, accraTime(12, 0))

	provider, reason, err := rt.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if provider != enums.ProviderDatanet {
		t.Fatalf("provider = %s, want datanet", provider)
	}
	if reason != ReasonAdminOverride {
		t.Fatalf("reason = %s, want %s", reason, ReasonAdminOverride)
	}
}

func TestRouter_ScheduleWindow(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want enums.Provider
	}{
		{"inside window", accraTime(12, 0), enums.ProviderSwiftlink},
		{"window start is inclusive", accraTime(8, 0), enums.ProviderSwiftlink},
		{"window end is exclusive", accraTime(20, 0), enums.ProviderDatanet},
		{"early morning", accraTime(3, 30), enums.ProviderDatanet},
		{"late night", accraTime(23, 59), enums.ProviderDatanet},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rt := newTestRouter(t, &fakeSettings{}, tc.at)
			provider, reason, err := rt.Resolve(context.Background())
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if provider != tc.want {
				t.Fatalf("provider = %s, want %s", provider, tc.want)
			}
			if reason != ReasonTimeSchedule {
				t.Fatalf("reason = %s, want %s", reason, ReasonTimeSchedule)
			}
		})
	}
}

func TestRouter_OvernightScheduleWindowWrapsMidnight(t *testing.T) {
	cfg := scheduleConfig()
	cfg.ScheduleWindowStart = "22:00"
	cfg.ScheduleWindowEnd = "06:00"

	cases := []struct {
		name string
		at   time.Time
		want enums.Provider
	}{
		{"before midnight", accraTime(23, 0), enums.ProviderSwiftlink},
		{"after midnight", accraTime(3, 0), enums.ProviderSwiftlink},
		{"window start is inclusive", accraTime(22, 0), enums.ProviderSwiftlink},
		{"window end is exclusive", accraTime(6, 0), enums.ProviderDatanet},
		{"midday is outside", accraTime(12, 0), enums.ProviderDatanet},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rt, err := NewRouter(&fakeSettings{}, cfg)
			if err != nil {
				t.Fatalf("unexpected router error: %v", err)
			}
			rt.(*router).now = func() time.Time { return tc.at }

			provider, _, err := rt.Resolve(context.Background())
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if provider != tc.want {
				t.Fatalf("provider = %s, want %s", provider, tc.want)
			}
		})
	}
}

func TestRouter_ClearingOverrideRestoresSchedule(t *testing.T) {
	settings := &fakeSettings{}
	rt := newTestRouter(t, settings, accraTime(12, 0))

	override := enums.ProviderDatanet
	if err := rt.SetOverride(context.Background(), &override, "admin"); err != nil {
		t.Fatalf("set override: %v", err)
	}
	provider, _, err := rt.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if provider != enums.ProviderDatanet {
		t.Fatalf("provider = %s, want the override", provider)
	}

	if err := rt.SetOverride(context.Background(), nil, "admin"); err != nil {
		t.Fatalf("clear override: %v", err)
	}
	provider, reason, err := rt.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if provider != enums.ProviderSwiftlink || reason != ReasonTimeSchedule {
		t.Fatalf("after clearing, provider = %s via %s, want swiftlink via schedule", provider, reason)
	}
}

func TestResolveNetworkKey(t *testing.T) {
	cases := []struct {
		slug    string
		want    string
		wantErr bool
	}{
		{"mtn", "mtn", false},
		{"mtn-ghana", "mtn", false},
		{"telecel", "telecel", false},
		{"airteltigo", "at", false},
		{"AT", "at", false},
		{"starlink", "", true},
	}
	for _, tc := range cases {
		key, err := resolveNetworkKey(tc.slug)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("slug %q: expected error", tc.slug)
			}
			continue
		}
		if err != nil {
			t.Fatalf("slug %q: %v", tc.slug, err)
		}
		if key != tc.want {
			t.Fatalf("slug %q = %q, want %q", tc.slug, key, tc.want)
		}
	}
}

func TestParseCapacityGb(t *testing.T) {
	cases := []struct {
		size    string
		want    float64
		wantErr bool
	}{
		{"5GB", 5, false},
		{"1.5 GB", 1.5, false},
		{"512MB", 0.5, false},
		{"10", 10, false},
		{"unlimited", 0, true},
		{"0GB", 0, true},
	}
	for _, tc := range cases {
		got, err := parseCapacityGb(tc.size)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("size %q: expected error", tc.size)
			}
			continue
		}
		if err != nil {
			t.Fatalf("size %q: %v", tc.size, err)
		}
		if got != tc.want {
			t.Fatalf("size %q = %v, want %v", tc.size, got, tc.want)
		}
	}
}
