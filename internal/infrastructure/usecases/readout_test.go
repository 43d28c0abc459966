package usecases_test

import (
	"context"
	"strings"
	"testing"

	"github.com/sophialabs/scopecore/internal/domain/scope"
	"github.com/sophialabs/scopecore/internal/infrastructure/services"
	"github.com/sophialabs/scopecore/internal/infrastructure/usecases"
)

func TestReadout_DefaultTemplate(t *testing.T) {
	f := newFixture(t, smallSettings())
	f.acquire().Execute(context.Background(), stream(0, 4095))
	uc := usecases.NewReadoutUseCase(f.scope, f.store)

	out, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(out, "Ch1: 200\n") {
		t.Errorf("expected Ch1 label, got %q", out)
	}
	if !strings.Contains(out, "Ch3: 200 T") {
		t.Errorf("expected triggered Ch3 label, got %q", out)
	}
}

func TestReadout_Channels(t *testing.T) {
	f := newFixture(t, smallSettings())
	uc := usecases.NewReadoutUseCase(f.scope, f.store)

	chans := uc.Channels()
	if len(chans) != 4 {
		t.Fatalf("expected 4 channels, got %d", len(chans))
	}
	if chans[0].HasValue {
		t.Error("expected no value before data")
	}
	if chans[3].Name != "Ch4" {
		t.Errorf("unexpected name %q", chans[3].Name)
	}
}

func TestReadout_NoProfile(t *testing.T) {
	sc, err := scope.New(scope.DefaultConfig())
	if err != nil {
		t.Fatalf("scope.New failed: %v", err)
	}
	out, err := usecases.NewReadoutUseCase(sc, services.NewProfileStore(nil)).Execute(context.Background())
	if err != nil || out != "" {
		t.Errorf("expected empty readout, got %q, %v", out, err)
	}
}
