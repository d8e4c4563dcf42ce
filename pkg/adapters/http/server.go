package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/inkwell"
	"github.com/aretw0/inkwell/internal/presentation/graph"
	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/aretw0/inkwell/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes stored playthroughs of one story over HTTP.
type Server struct {
	Engine   *inkwell.Engine
	Sessions *session.Manager
	Streams  *StreamManager

	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger. Defaults to the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics serves the gatherer on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewHandler creates a new HTTP handler for the engine and its sessions.
func NewHandler(engine *inkwell.Engine, sessions *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Engine:   engine,
		Sessions: sessions,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = engine.Logger()
	}
	s.Streams = NewStreamManager(s.logger)

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)
	r.Get("/events", s.SubscribeEvents)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/advance", s.Advance)
			r.Post("/continue", s.Continue)
			r.Post("/select", s.Select)
			r.Get("/graph", s.GetSessionGraph)
		})
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateRequest is the body of POST /sessions. Both fields are optional.
type CreateRequest struct {
	Knot      string         `json:"knot,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
}

// SessionResponse carries a session and its current state.
type SessionResponse struct {
	ID    string        `json:"id"`
	State *domain.State `json:"state"`
}

// StepResponse is returned by POST /sessions/{id}/advance.
type StepResponse struct {
	Step  domain.Step   `json:"step"`
	State *domain.State `json:"state"`
}

// ContinueResponse is returned by POST /sessions/{id}/continue.
type ContinueResponse struct {
	Lines []domain.Line `json:"lines"`
	Text  string        `json:"text"`
	Step  domain.Step   `json:"step"`
	State *domain.State `json:"state"`
}

// SelectRequest is the body of POST /sessions/{id}/select.
type SelectRequest struct {
	Index *int `json:"index"`
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body CreateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			s.logger.Warn("CreateSession: Invalid request body", "err", err)
			return
		}
	}

	vars := make(map[string]domain.Value, len(body.Variables))
	for name, raw := range body.Variables {
		v, err := domain.ValueOf(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid variable %q: %v", name, err), http.StatusBadRequest)
			return
		}
		vars[name] = v
	}

	id, state, err := s.Sessions.Create(r.Context(), body.Knot, vars)
	if err != nil {
		s.fail(w, "CreateSession", id, err)
		return
	}
	s.logger.Info("Session created", "session_id", id, "knot", state.Knot)
	s.respond(w, http.StatusCreated, SessionResponse{ID: id, State: state})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, "ListSessions", "", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.respond(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := s.Sessions.Load(r.Context(), id)
	if err != nil {
		s.fail(w, "GetSession", id, err)
		return
	}
	s.respond(w, http.StatusOK, SessionResponse{ID: id, State: state})
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Sessions.Delete(r.Context(), id); err != nil {
		s.fail(w, "DeleteSession", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Advance handles POST /sessions/{id}/advance.
func (s *Server) Advance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	step, state, err := s.Sessions.Advance(r.Context(), id)
	if err != nil {
		s.fail(w, "Advance", id, err)
		return
	}
	s.broadcast(id, step)
	s.respond(w, http.StatusOK, StepResponse{Step: step, State: state})
}

// Continue handles POST /sessions/{id}/continue.
func (s *Server) Continue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lines, step, state, err := s.Sessions.Continue(r.Context(), id)
	if err != nil {
		s.fail(w, "Continue", id, err)
		return
	}
	for _, l := range lines {
		s.broadcast(id, domain.Step{Kind: domain.StepLine, Line: &l})
	}
	s.broadcast(id, step)
	if lines == nil {
		lines = []domain.Line{}
	}
	s.respond(w, http.StatusOK, ContinueResponse{
		Lines: lines,
		Text:  domain.JoinLines(lines),
		Step:  step,
		State: state,
	})
}

// Select handles POST /sessions/{id}/select.
func (s *Server) Select(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Index == nil {
		http.Error(w, "Invalid request body: expected {\"index\": n}", http.StatusBadRequest)
		s.logger.Warn("Select: Invalid request body", "err", err)
		return
	}

	state, err := s.Sessions.Select(r.Context(), id, *body.Index)
	if err != nil {
		s.fail(w, "Select", id, err)
		return
	}
	s.respond(w, http.StatusOK, SessionResponse{ID: id, State: state})
}

// GetGraph handles GET /graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(s.Engine.Story(), nil))
}

// GetSessionGraph handles GET /sessions/{id}/graph: the story graph with the playthrough overlaid.
func (s *Server) GetSessionGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := s.Sessions.Load(r.Context(), id)
	if err != nil {
		s.fail(w, "GetSessionGraph", id, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(s.Engine.Story(), graph.OverlayFromState(state)))
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	story := s.Engine.Story()
	s.respond(w, http.StatusOK, map[string]any{
		"app":       "inkwell-http",
		"version":   strings.TrimSpace(inkwell.Version),
		"story":     s.Engine.Name,
		"knots":     story.Order,
		"variables": len(story.Variables),
	})
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, op, sessionID string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "session_id", sessionID, "err", err)
	} else {
		s.logger.Warn(op+" rejected", "session_id", sessionID, "err", err)
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	var (
		resolution *domain.ResolutionError
		selection  *domain.SelectionError
	)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotAwaitingChoice), errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownKnot), errors.As(err, &resolution), errors.As(err, &selection):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) broadcast(sessionID string, step domain.Step) {
	data, err := json.Marshal(step)
	if err != nil {
		s.logger.Error("Step encode failed", "session_id", sessionID, "err", err)
		return
	}
	s.Streams.Broadcast(sessionID, string(step.Kind), string(data))
}

// Event is a step published to the subscribers of a session.
type Event struct {
	Kind string
	Data string
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- Event]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager reports dropped events to logger. A nil logger discards them.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- Event]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe(sessionID string) (chan Event, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Event, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- Event]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(sessionID, kind, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- Event{Kind: kind, Data: msg}:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// SubscribeEvents handles GET /events?session_id=...&kinds=line,choices (SSE).
// Every step a session produces is sent as an event named after the step kind.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	var kinds map[string]bool
	if raw := r.URL.Query().Get("kinds"); raw != "" {
		kinds = make(map[string]bool)
		for _, k := range strings.Split(raw, ",") {
			kinds[strings.TrimSpace(k)] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()
	s.logger.Info("SSE: Subscribing to Session Updates", "session_id", sessionID)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "session_id", sessionID)
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if kinds != nil && !kinds[ev.Kind] {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, ev.Data)
			flusher.Flush()
		}
	}
}
