package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sophialabs/scopecore/internal/domain/events"
	"github.com/sophialabs/scopecore/internal/domain/packet"
	"github.com/sophialabs/scopecore/internal/domain/scope"
	"github.com/sophialabs/scopecore/internal/domain/settings"
	inboundhttp "github.com/sophialabs/scopecore/internal/infrastructure/inbound/http"
	"github.com/sophialabs/scopecore/internal/infrastructure/outbound/template"
	"github.com/sophialabs/scopecore/internal/infrastructure/services"
	"github.com/sophialabs/scopecore/internal/infrastructure/usecases"
	"github.com/sophialabs/scopecore/internal/testutil"
)

type testEnv struct {
	srv     *inboundhttp.Server
	scope   *scope.Scope
	acquire *usecases.AcquireUseCase
	repo    *testutil.MemoryRepository
	sink    *testutil.RecordingSink
}

func buildTestServer(t *testing.T, allow bool) *testEnv {
	t.Helper()
	sc, err := scope.New(settings.Default().ScopeConfig())
	if err != nil {
		t.Fatalf("scope.New failed: %v", err)
	}
	clk := &testutil.FixedClock{T: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	logger := &testutil.NoopLogger{}
	metrics := testutil.NoopMetrics{}
	evLog := events.NewLog(50)
	store := services.NewProfileStore(nil)
	repo := testutil.NewMemoryRepository(nil)
	sink := &testutil.RecordingSink{}

	compiler := services.NewCompiler(template.ScalerFactory{}, template.NewRegistry())
	apply := usecases.NewApplySettingsUseCase(sc, compiler, store, repo, sink, metrics, clk, logger, evLog)
	s := settings.Default()
	s.Display.PointsToDisplay = 8
	if _, err := apply.Execute(context.Background(), s, false); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	acquire := usecases.NewAcquireUseCase(sc, store, metrics, clk, logger, evLog)
	srv := inboundhttp.NewServer(inboundhttp.ServerDeps{
		Scope:   sc,
		Store:   store,
		Events:  evLog,
		Acquire: acquire,
		Window:  usecases.NewRenderWindowUseCase(sc, store, &testutil.StubRateLimiter{AllowAll: allow}, 10, 5),
		Readout: usecases.NewReadoutUseCase(sc, store),
		Apply:   apply,
		Resize:  usecases.NewResizeUseCase(sc, metrics, clk, logger, evLog),
		Reload:  usecases.NewLoadSettingsUseCase(repo, apply, logger),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("# metrics\n")) }),
		Logger:  logger,
	})
	return &testEnv{srv: srv, scope: sc, acquire: acquire, repo: repo, sink: sink}
}

func (e *testEnv) feed(raws ...uint16) {
	var data []byte
	for _, r := range raws {
		b := packet.EncodeValues(packet.Values{r, r, r, r})
		data = append(data, b[:]...)
	}
	e.acquire.Execute(context.Background(), data)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	env := buildTestServer(t, true)
	rec := do(t, env.srv, "GET", "/__admin/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestStatus(t *testing.T) {
	env := buildTestServer(t, true)
	env.feed(0, 4095, 10)

	rec := do(t, env.srv, "GET", "/__admin/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		HistorySize int          `json:"history_size"`
		ValidPoints int          `json:"valid_points"`
		WriteCursor int          `json:"write_cursor"`
		Framer      packet.Stats `json:"framer"`
		Channels    []struct {
			Locked  bool `json:"locked"`
			Trigger struct {
				Found bool `json:"found"`
				Index int  `json:"index"`
			} `json:"trigger"`
		} `json:"channels"`
	}
	decode(t, rec, &body)
	if body.HistorySize != 8 || body.ValidPoints != 3 || body.WriteCursor != 3 {
		t.Errorf("unexpected bookkeeping: %+v", body)
	}
	if body.Framer.Decoded != 3 {
		t.Errorf("expected 3 decoded, got %d", body.Framer.Decoded)
	}
	if len(body.Channels) != 4 || !body.Channels[2].Trigger.Found || body.Channels[2].Trigger.Index != 1 {
		t.Errorf("expected channel 2 trigger at 1, got %+v", body.Channels)
	}
}

func TestEvents(t *testing.T) {
	env := buildTestServer(t, true)
	env.feed(0, 4095)

	rec := do(t, env.srv, "GET", "/__admin/events?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var evs []events.Event
	decode(t, rec, &evs)
	if len(evs) != 1 || evs[0].Kind != events.KindTriggerLocked {
		t.Errorf("expected the lock event, got %+v", evs)
	}

	rec = do(t, env.srv, "GET", "/__admin/events?limit=x", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestWindow(t *testing.T) {
	env := buildTestServer(t, true)
	env.feed(0, 0, 0, 0, 0, 0, 0, 0)

	rec := do(t, env.srv, "GET", "/api/window?width=400&segments=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var v usecases.WindowView
	decode(t, rec, &v)
	if v.Width != 400 || len(v.Channels) != 4 {
		t.Fatalf("unexpected view: width %v, %d channels", v.Width, len(v.Channels))
	}
	for _, cv := range v.Channels {
		if len(cv.Lines) == 0 || len(cv.Lines) > 3 {
			t.Errorf("channel %d: expected 1..3 lines, got %d", cv.Channel, len(cv.Lines))
		}
	}
}

func TestWindow_BadQuery(t *testing.T) {
	env := buildTestServer(t, true)
	for _, q := range []string{"width=wide", "width=NaN", "width=Inf", "width=-Inf", "segments=-1", "segments=x"} {
		rec := do(t, env.srv, "GET", "/api/window?"+q, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestWindow_RateLimited(t *testing.T) {
	env := buildTestServer(t, false)
	rec := do(t, env.srv, "GET", "/api/window", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestReadout(t *testing.T) {
	env := buildTestServer(t, true)
	env.feed(4095)

	rec := do(t, env.srv, "GET", "/api/readout", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Text     string `json:"text"`
		Channels []any  `json:"channels"`
	}
	decode(t, rec, &body)
	if !strings.Contains(body.Text, "Ch1: 200") {
		t.Errorf("unexpected readout %q", body.Text)
	}
	if len(body.Channels) != 4 {
		t.Errorf("expected 4 channels, got %d", len(body.Channels))
	}
}

func TestSettings_GetPut(t *testing.T) {
	env := buildTestServer(t, true)

	rec := do(t, env.srv, "GET", "/api/settings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc settings.Settings
	decode(t, rec, &doc)
	if doc.Display.PointsToDisplay != 8 || len(doc.Channels) != 4 {
		t.Fatalf("unexpected document: %+v", doc.Display)
	}

	doc.Display.PointsToDisplay = 20
	doc.Acquisition.RefreshMs = 30
	body, _ := json.Marshal(doc)
	rec = do(t, env.srv, "PUT", "/api/settings", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Resized  bool     `json:"resized"`
		Commands []string `json:"commands"`
	}
	decode(t, rec, &resp)
	if !resp.Resized {
		t.Error("expected resize")
	}
	if len(resp.Commands) != 1 || resp.Commands[0] != "Rate:30" {
		t.Errorf("unexpected commands %v", resp.Commands)
	}
	if env.scope.Status().HistorySize != 20 {
		t.Errorf("expected history size 20, got %d", env.scope.Status().HistorySize)
	}
	if env.repo.Saves != 1 {
		t.Errorf("expected settings persisted, got %d saves", env.repo.Saves)
	}
}

func TestSettings_PutInvalid(t *testing.T) {
	env := buildTestServer(t, true)
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"channels":`},
		{"no channels", `{"channels":[],"display":{"points_to_display":10}}`},
		{"bad edge", `{"channels":[{"trigger_edge":"sideways"}],"display":{"points_to_display":10}}`},
		{"bad points", `{"channels":[{"active":true}],"display":{"points_to_display":0}}`},
		{"huge dynamic buffer", `{"channels":[{"active":true}],"display":{"points_to_display":1000000000,"dynamic_buffer":true}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, env.srv, "PUT", "/api/settings", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
	if env.repo.Saves != 0 {
		t.Error("invalid documents must not be persisted")
	}
}

func TestResize(t *testing.T) {
	env := buildTestServer(t, true)

	rec := do(t, env.srv, "POST", "/api/resize", `{"size":64}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var st scope.Status
	decode(t, rec, &st)
	if st.HistorySize != 64 || st.ValidPoints != 0 {
		t.Errorf("unexpected status %+v", st)
	}

	for _, body := range []string{`{"size":0}`, `{"size":-3}`, `{"size":4611686018427387904}`, `{"size":1000000000}`, `nope`} {
		rec = do(t, env.srv, "POST", "/api/resize", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestReload(t *testing.T) {
	env := buildTestServer(t, true)
	stored := settings.Default()
	stored.Display.PointsToDisplay = 12
	if err := env.repo.Save(context.Background(), stored); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rec := do(t, env.srv, "POST", "/__admin/reload", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.scope.Status().HistorySize != 12 {
		t.Errorf("expected history size 12, got %d", env.scope.Status().HistorySize)
	}
}

func TestMetricsAndNotFound(t *testing.T) {
	env := buildTestServer(t, true)
	if rec := do(t, env.srv, "GET", "/metrics", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200 from /metrics, got %d", rec.Code)
	}
	rec := do(t, env.srv, "GET", "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] != "not_found" {
		t.Errorf("unexpected body %v", body)
	}
}
