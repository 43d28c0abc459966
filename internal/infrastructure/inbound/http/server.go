package http

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sophialabs/scopecore/internal/domain/events"
	"github.com/sophialabs/scopecore/internal/domain/packet"
	"github.com/sophialabs/scopecore/internal/domain/scope"
	"github.com/sophialabs/scopecore/internal/domain/settings"
	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
	"github.com/sophialabs/scopecore/internal/infrastructure/services"
	"github.com/sophialabs/scopecore/internal/infrastructure/usecases"
)

const (
	maxBodySize   = 1 << 20
	defaultEvents = 50
)

// ServerDeps are the collaborators of the API server. Metrics and Reload
// are optional.
type ServerDeps struct {
	Scope   *scope.Scope
	Store   *services.ProfileStore
	Events  *events.Log
	Acquire *usecases.AcquireUseCase
	Window  *usecases.RenderWindowUseCase
	Readout *usecases.ReadoutUseCase
	Apply   *usecases.ApplySettingsUseCase
	Resize  *usecases.ResizeUseCase
	Reload  *usecases.LoadSettingsUseCase
	Metrics http.Handler
	Logger  ports.Logger
}

// Server is the HTTP API of the scope.
type Server struct {
	deps   ServerDeps
	router *chi.Mux
}

// NewServer creates a Server and builds its routes.
func NewServer(deps ServerDeps) *Server {
	s := &Server{deps: deps}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/__admin", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Get("/events", s.handleEvents)
		r.Post("/reload", s.handleReload)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/window", s.handleWindow)
		r.Get("/readout", s.handleReadout)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
		r.Post("/resize", s.handleResize)
	})

	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.Method+" "+r.URL.Path)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	scope.Status
	Framer packet.Stats `json:"framer"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Status: s.deps.Scope.Status()}
	if s.deps.Acquire != nil {
		resp.Framer = s.deps.Acquire.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultEvents)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "limit must be a non-negative integer")
		return
	}
	out := s.deps.Events.Recent(limit)
	if out == nil {
		out = []events.Event{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reload == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "no settings repository")
		return
	}
	res, err := s.deps.Reload.Execute(r.Context())
	if err != nil {
		s.deps.Logger.Error("reload failed", "error", err)
		writeError(w, statusFor(err), "reload_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "resized": res.Resized})
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	width, err := queryFloat(r, "width", 0)
	if err != nil || math.IsNaN(width) || math.IsInf(width, 0) {
		writeError(w, http.StatusBadRequest, "bad_request", "width must be a finite number")
		return
	}
	segments, err := queryInt(r, "segments", 0)
	if err != nil || segments < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "segments must be a non-negative integer")
		return
	}

	v, err := s.deps.Window.Execute(r.Context(), usecases.WindowRequest{
		Width:       width,
		MaxSegments: segments,
		Client:      clientKey(r),
	})
	if errors.Is(err, usecases.ErrRateLimited) {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleReadout(w http.ResponseWriter, r *http.Request) {
	text, err := s.deps.Readout.Execute(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "render_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"text":     text,
		"channels": s.deps.Readout.Channels(),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	p := s.deps.Store.Load()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "settings not loaded")
		return
	}
	writeJSON(w, http.StatusOK, p.Settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var doc settings.Settings
	if err := decodeBody(r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	res, err := s.deps.Apply.Execute(r.Context(), doc, true)
	if err != nil {
		s.deps.Logger.Warn("settings rejected", "error", err)
		writeError(w, statusFor(err), "apply_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"settings": res.Settings,
		"resized":  res.Resized,
		"commands": res.Commands,
	})
}

type resizeRequest struct {
	Size int `json:"size"`
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	st, err := s.deps.Resize.Execute(r.Context(), req.Size)
	if err != nil {
		writeError(w, statusFor(err), "resize_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// statusFor maps domain validation errors to 400 and everything else to 500.
func statusFor(err error) int {
	if errors.Is(err, scope.ErrInvalidConfig) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func queryFloat(r *http.Request, key string, def float64) (float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
