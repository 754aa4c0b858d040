package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/berth-dev/interview/internal/log"
	"github.com/berth-dev/interview/internal/protocol"
	"github.com/berth-dev/interview/internal/session"
)

// maxEventBytes bounds a request body; resumes are the largest payload.
const maxEventBytes = 1 << 20

// Server exposes a Coordinator over HTTP. Each POST /events carries one
// client event and is answered with one coordinator event.
type Server struct {
	coord    *Coordinator
	logger   *log.Logger
	listener net.Listener
	server   *http.Server
}

// NewServer binds addr. An empty addr selects a random port on localhost.
func NewServer(coord *Coordinator, addr string, logger *log.Logger) (*Server, error) {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("coordinator: binding listener: %w", err)
	}

	s := &Server{
		coord:    coord,
		logger:   logger,
		listener: ln,
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// NewHandler returns the coordinator routes without binding a listener.
func NewHandler(coord *Coordinator, logger *log.Logger) http.Handler {
	s := &Server{coord: coord, logger: logger}
	return s.Handler()
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /events", s.handleEvent)
	mux.HandleFunc("GET /sessions/{id}", s.handleSession)
	return mux
}

// Addr returns the address the server is listening on (e.g. "127.0.0.1:12345").
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// URL returns the base URL clients should use.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

// Start begins serving HTTP requests and blocks until the server stops.
// A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Log(log.LogEvent{Event: log.EventServerStarted, Data: map[string]interface{}{"addr": s.Addr()}})
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("coordinator: serving: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Stop closes the server immediately.
func (s *Server) Stop() error {
	return s.server.Close()
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.coord.Store().Len(),
	})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev protocol.Event
	if !readJSON(w, r, &ev) {
		return
	}

	reply, err := s.coord.HandleEvent(r.Context(), ev)
	if err != nil {
		writeJSON(w, statusFor(err), reply)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, err := s.coord.Snapshot(id)
	if err != nil {
		writeJSON(w, statusFor(err), protocol.NewError(id, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// statusFor maps coordinator errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrFinished):
		return http.StatusConflict
	case errors.Is(err, session.ErrUnknownQuestion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrRoleRequired), errors.Is(err, ErrUnsupportedEvent):
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}

// --- Helpers ---

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		writeJSON(w, http.StatusBadRequest, protocol.NewError("", "empty request body"))
		return false
	}
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.NewError("", fmt.Sprintf("invalid JSON: %v", err)))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("encoding response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
