package usecases_test

import (
	"context"
	"testing"
	"time"

	"github.com/sophialabs/scopecore/internal/domain/events"
	"github.com/sophialabs/scopecore/internal/domain/packet"
	"github.com/sophialabs/scopecore/internal/domain/scope"
	"github.com/sophialabs/scopecore/internal/domain/settings"
	"github.com/sophialabs/scopecore/internal/infrastructure/outbound/template"
	"github.com/sophialabs/scopecore/internal/infrastructure/services"
	"github.com/sophialabs/scopecore/internal/infrastructure/usecases"
	"github.com/sophialabs/scopecore/internal/testutil"
)

type fixture struct {
	scope  *scope.Scope
	store  *services.ProfileStore
	events *events.Log
	sink   *testutil.RecordingSink
	repo   *testutil.MemoryRepository
	logger *testutil.CountingLogger
	clock  *testutil.FixedClock
	apply  *usecases.ApplySettingsUseCase
}

// smallSettings shrinks the buffer so tests can fill it.
func smallSettings() settings.Settings {
	s := settings.Default()
	s.Display.PointsToDisplay = 8
	return s
}

func newFixture(t *testing.T, s settings.Settings) *fixture {
	t.Helper()
	sc, err := scope.New(settings.Default().ScopeConfig())
	if err != nil {
		t.Fatalf("scope.New failed: %v", err)
	}
	f := &fixture{
		scope:  sc,
		store:  services.NewProfileStore(nil),
		events: events.NewLog(64),
		sink:   &testutil.RecordingSink{},
		repo:   testutil.NewMemoryRepository(nil),
		logger: &testutil.CountingLogger{},
		clock:  &testutil.FixedClock{T: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	compiler := services.NewCompiler(template.ScalerFactory{}, template.NewRegistry())
	f.apply = usecases.NewApplySettingsUseCase(sc, compiler, f.store, f.repo, f.sink, testutil.NoopMetrics{}, f.clock, f.logger, f.events)
	if _, err := f.apply.Execute(context.Background(), s, false); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	return f
}

func (f *fixture) acquire() *usecases.AcquireUseCase {
	return usecases.NewAcquireUseCase(f.scope, f.store, testutil.NoopMetrics{}, f.clock, f.logger, f.events)
}

// stream encodes one packet per value, the same raw count on every channel.
func stream(raws ...uint16) []byte {
	var out []byte
	for _, r := range raws {
		b := packet.EncodeValues(packet.Values{r, r, r, r})
		out = append(out, b[:]...)
	}
	return out
}

func kinds(evs []events.Event) []events.Kind {
	out := make([]events.Kind, len(evs))
	for i, e := range evs {
		out[i] = e.Kind
	}
	return out
}
