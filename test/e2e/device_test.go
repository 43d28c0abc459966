//go:build e2e

package e2e_test

import (
	"encoding/json"
	"net/http"
	"slices"
	"testing"

	"github.com/sophialabs/scopecore/internal/domain/settings"
	"github.com/sophialabs/scopecore/internal/domain/trigger"
	"github.com/sophialabs/scopecore/internal/infrastructure/usecases"
)

const (
	low  = 0    // -300 after linear scaling
	high = 4095 // +200
)

func TestE2E_InitialCommands(t *testing.T) {
	h := setupE2E(t)

	got := h.device.waitCommands(t, 2)
	want := []string{"Rate:20", "Test signal:0"}
	if !slices.Equal(got[:2], want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestE2E_TriggerLocksOnStreamedEdge(t *testing.T) {
	h := setupE2E(t)

	raws := make([]uint16, 0, 80)
	for range 40 {
		raws = append(raws, low)
	}
	for range 40 {
		raws = append(raws, high)
	}
	h.device.stream(t, 2, raws...)
	h.acquireUntil(t, 80)

	var view usecases.WindowView
	h.getJSON(t, "/api/window?width=650", &view)
	if view.ValidPoints != 80 {
		t.Errorf("expected 80 valid points, got %d", view.ValidPoints)
	}
	var ch3 *usecases.ChannelView
	for i := range view.Channels {
		if view.Channels[i].Channel == 2 {
			ch3 = &view.Channels[i]
		}
	}
	if ch3 == nil {
		t.Fatal("channel 3 missing from frame")
	}
	if !ch3.Trigger.Found || ch3.Trigger.Index != 40 {
		t.Errorf("expected trigger at 40, got %+v", ch3.Trigger)
	}
	if len(ch3.Lines) == 0 {
		t.Error("expected trace segments")
	}

	var evs []struct {
		Kind    string `json:"kind"`
		Channel int    `json:"channel"`
		Index   int    `json:"index"`
	}
	h.getJSON(t, "/__admin/events", &evs)
	found := false
	for _, e := range evs {
		if e.Kind == "trigger_locked" && e.Channel == 2 && e.Index == 40 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected trigger_locked event at 40, got %+v", evs)
	}
}

func TestE2E_NoiseBeforeFirstPacket(t *testing.T) {
	h := setupE2E(t)

	h.device.waitCommands(t, 2)
	c := <-h.device.conn
	h.device.conn <- c
	if _, err := c.Write([]byte{0x01, 0x02, 0x03}); err != nil {
		t.Fatal(err)
	}
	h.device.stream(t, 0, 100, 200, 300)
	h.acquireUntil(t, 3)

	var status struct {
		ValidPoints int `json:"valid_points"`
		Framer      struct {
			Skipped int `json:"skipped"`
		} `json:"framer"`
	}
	h.getJSON(t, "/__admin/status", &status)
	if status.ValidPoints != 3 {
		t.Errorf("expected 3 valid points, got %d", status.ValidPoints)
	}
	if status.Framer.Skipped != 3 {
		t.Errorf("expected 3 skipped bytes, got %d", status.Framer.Skipped)
	}
}

func TestE2E_SettingsChangeReachesDevice(t *testing.T) {
	h := setupE2E(t)
	h.device.waitCommands(t, 2)

	s := settings.Default()
	s.Acquisition.RefreshMs = 35
	s.Channels[2].TriggerEdge = trigger.Falling
	s.Display.PointsToDisplay = 100
	body, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}

	resp := h.putJSON(t, "/api/settings", string(body))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	got := h.device.waitCommands(t, 4)
	want := []string{"Rate:20", "Test signal:0", "Rate:35", "TriggerEdge:1"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if size := h.c.Scope().Status().HistorySize; size != 100 {
		t.Errorf("expected history size 100, got %d", size)
	}
}

func TestE2E_InvalidSettingsRejected(t *testing.T) {
	h := setupE2E(t)

	resp := h.putJSON(t, "/api/settings", `{"channels":[],"display":{"points_to_display":10}}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}
