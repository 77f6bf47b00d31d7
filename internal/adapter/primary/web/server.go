package web

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"maclock/internal/domain"
	"maclock/internal/logging"
	"maclock/internal/usecase"
)

// requestTimeout bounds how long a handler waits for the lock loop. Lock
// may wait on the administrator password dialog.
const requestTimeout = 2 * time.Minute

// Server is a primary adapter that exposes the lock over HTTP.
// It depends on the use case (primary port).
type Server struct {
	usecase usecase.LockUseCase
	server  *http.Server
}

// NewServer creates the HTTP server bound to addr.
func NewServer(uc usecase.LockUseCase, addr string) *Server {
	srv := &Server{usecase: uc}
	srv.server = &http.Server{
		Addr:              addr,
		Handler:           loggingMiddleware(srv.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.Handle("POST /api/lock", guardMutation(s.handleLock))
	mux.Handle("POST /api/unlock", guardMutation(s.handleUnlock))
	mux.Handle("POST /api/audio/{action}", guardMutation(s.handleAudio))
	mux.HandleFunc("GET /api/devices", s.handleDevices)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	return mux
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks and serves HTTP traffic.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type statusView struct {
	Status  domain.Status               `json:"status"`
	Output  *domain.OutputConfiguration `json:"output,omitempty"`
	History historyView                 `json:"history"`
}

type historyView struct {
	LastLocked   *time.Time `json:"lastLocked,omitempty"`
	LastUnlocked *time.Time `json:"lastUnlocked,omitempty"`
	LastAlarm    *time.Time `json:"lastAlarm,omitempty"`
	LastError    string     `json:"lastError,omitempty"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *Server) view(ctx context.Context) statusView {
	h := s.usecase.History()
	v := statusView{
		Status: s.usecase.Status(),
		History: historyView{
			LastLocked:   optionalTime(h.LastLocked),
			LastUnlocked: optionalTime(h.LastUnlocked),
			LastAlarm:    optionalTime(h.LastAlarm),
			LastError:    h.LastError,
		},
	}
	if cfg, ok, err := s.usecase.OutputConfiguration(ctx); err == nil && ok {
		v.Output = &cfg
	}
	return v
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.view(r.Context()))
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := s.usecase.Lock(ctx); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.view(ctx))
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	restored, err := s.usecase.Unlock(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"restored": restored,
		"status":   s.usecase.Status(),
	})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	action := usecase.AudioAction(r.PathValue("action"))
	switch action {
	case usecase.AudioMute, usecase.AudioUnmute, usecase.AudioMaximize, usecase.AudioInternal, usecase.AudioSwitch:
	default:
		http.Error(w, "unknown audio action", http.StatusNotFound)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := s.usecase.Audio(ctx, action); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.view(ctx))
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.usecase.Devices(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if devices == nil {
		devices = []usecase.DeviceInfo{}
	}
	respondJSON(w, http.StatusOK, devices)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	events, err := s.usecase.Events(limit)
	if err != nil {
		respondError(w, err)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	respondJSON(w, http.StatusOK, events)
}

// statusCode maps use case errors onto HTTP statuses.
func statusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrACPowerNotConnected):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInternalOutputUnavailable), errors.Is(err, domain.ErrStereoUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, usecase.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		logging.Warnf("request failed: %v", err)
	}
	http.Error(w, err.Error(), code)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Warnf("encode JSON: %v", err)
	}
}

// guardMutation admits state changing requests only from same-origin or
// loopback pages, and only with a JSON content type.
func guardMutation(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "cross-origin request rejected", http.StatusForbidden)
			return
		}
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			http.Error(w, "content type must be application/json", http.StatusUnsupportedMediaType)
			return
		}
		next(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.Debugf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
