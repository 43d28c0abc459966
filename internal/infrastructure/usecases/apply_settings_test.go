package usecases_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/sophialabs/scopecore/internal/domain/events"
	"github.com/sophialabs/scopecore/internal/domain/scope"
	"github.com/sophialabs/scopecore/internal/domain/trigger"
)

func TestApplySettings_InitialCommands(t *testing.T) {
	f := newFixture(t, smallSettings())

	want := []string{"Rate:20", "Test signal:0"}
	if got := f.sink.Sent(); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if st := f.scope.Status(); st.HistorySize != 8 {
		t.Errorf("expected history size 8, got %d", st.HistorySize)
	}
	if f.store.Load() == nil {
		t.Error("expected a profile")
	}
}

func TestApplySettings_CommandsOnChange(t *testing.T) {
	f := newFixture(t, smallSettings())

	s := smallSettings()
	s.Acquisition.RefreshMs = 23
	s.Acquisition.TestSignal = true
	s.Channels[2].TriggerEdge = trigger.Falling

	res, err := f.apply.Execute(context.Background(), s, false)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	want := []string{"Rate:25", "Test signal:1", "TriggerEdge:1"}
	if !slices.Equal(res.Commands, want) {
		t.Errorf("expected %v, got %v", want, res.Commands)
	}

	// Same document again: nothing to tell the device.
	res, err = f.apply.Execute(context.Background(), s, false)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(res.Commands) != 0 {
		t.Errorf("expected no commands, got %v", res.Commands)
	}
}

func TestApplySettings_Resize(t *testing.T) {
	f := newFixture(t, smallSettings())

	s := smallSettings()
	s.Display.PointsToDisplay = 16
	res, err := f.apply.Execute(context.Background(), s, false)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !res.Resized {
		t.Error("expected a resize")
	}
	if st := f.scope.Status(); st.HistorySize != 16 {
		t.Errorf("expected history size 16, got %d", st.HistorySize)
	}
	if !slices.Contains(kinds(f.events.Recent(64)), events.KindResize) {
		t.Error("expected a resize event")
	}

	// Moving the trigger offset does not touch the buffers.
	s.Display.TriggerOffsetX = 40
	res, err = f.apply.Execute(context.Background(), s, false)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Resized {
		t.Error("unexpected resize")
	}
}

func TestApplySettings_InvalidLeavesStateAlone(t *testing.T) {
	f := newFixture(t, smallSettings())
	before := f.store.Load()

	s := smallSettings()
	s.Display.PointsToDisplay = 0
	s.Channels[0].OffsetY = 42

	_, err := f.apply.Execute(context.Background(), s, true)
	if !errors.Is(err, scope.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if f.store.Load() != before {
		t.Error("profile replaced by an invalid document")
	}
	if cs, _ := f.scope.Channel(0); cs.OffsetY == 42 {
		t.Error("channel settings applied from an invalid document")
	}
	if f.repo.Saves != 0 {
		t.Error("invalid document persisted")
	}
}

func TestApplySettings_FewerChannelsDeactivatesRest(t *testing.T) {
	f := newFixture(t, smallSettings())

	s := smallSettings()
	s.Channels = s.Channels[:2]
	if _, err := f.apply.Execute(context.Background(), s, false); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	for i := range f.scope.ChannelCount() {
		cs, err := f.scope.Channel(i)
		if err != nil {
			t.Fatalf("Channel(%d) failed: %v", i, err)
		}
		if cs.Active != (i < 2) {
			t.Errorf("channel %d active = %v", i, cs.Active)
		}
	}
}

func TestApplySettings_Persist(t *testing.T) {
	f := newFixture(t, smallSettings())

	s := smallSettings()
	s.Channels[1].Name = "Pressure"
	if _, err := f.apply.Execute(context.Background(), s, true); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if f.repo.Saves != 1 {
		t.Fatalf("expected one save, got %d", f.repo.Saves)
	}
	got, err := f.repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Channels[1].Name != "Pressure" {
		t.Errorf("unexpected saved name %q", got.Channels[1].Name)
	}
}

func TestApplySettings_PersistError(t *testing.T) {
	f := newFixture(t, smallSettings())
	f.repo.SaveErr = errors.New("disk full")

	s := smallSettings()
	s.Channels[0].OffsetY = 42
	if _, err := f.apply.Execute(context.Background(), s, true); err == nil {
		t.Fatal("expected persist error")
	}
	if cs, _ := f.scope.Channel(0); cs.OffsetY != 42 {
		t.Error("settings should stay applied when saving fails")
	}
}

func TestApplySettings_DeviceErrorIsLogged(t *testing.T) {
	f := newFixture(t, smallSettings())
	f.sink.Err = errors.New("link down")

	s := smallSettings()
	s.Acquisition.RefreshMs = 40
	res, err := f.apply.Execute(context.Background(), s, false)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(res.Commands) != 0 {
		t.Errorf("expected no sent commands, got %v", res.Commands)
	}
	if f.logger.WarnCount() != 1 {
		t.Errorf("expected one warning, got %d", f.logger.WarnCount())
	}
}
