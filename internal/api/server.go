// Package api serves the read-only HTTP surface: health, the live room and
// the poll archive.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"

	"pollroom/internal/hub"
	"pollroom/pkg/interfaces"
	"pollroom/pkg/types"
)

// Room is the live state the API reads.
type Room interface {
	Snapshot(ctx context.Context) (hub.Snapshot, error)
}

// Server routes API requests. archive may be nil when archiving is off.
type Server struct {
	room    Room
	archive interfaces.PollArchive
	logger  *slog.Logger
	router  *mux.Router
	started time.Time
}

func NewServer(room Room, archive interfaces.PollArchive, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		room:    room,
		archive: archive,
		logger:  logger.With("component", "api"),
		router:  mux.NewRouter(),
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.corsMiddleware, s.jsonMiddleware)

	s.router.HandleFunc("/health", s.healthCheck).Methods(http.MethodGet, http.MethodOptions)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/poll", s.currentPoll).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/participants", s.participants).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/polls", s.listPolls).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/polls/{id}", s.getPoll).Methods(http.MethodGet, http.MethodOptions)

	s.router.NotFoundHandler = s.jsonMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.sendError(w, "Not found", http.StatusNotFound)
	}))
	s.router.MethodNotAllowedHandler = s.jsonMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}))
}

// Router exposes the mux so the application can mount more routes on it.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type CurrentPollResponse struct {
	Active bool            `json:"active"`
	Poll   *types.PollView `json:"poll,omitempty"`
	Tally  *types.Tally    `json:"tally,omitempty"`
}

type ParticipantsResponse struct {
	Names       []string `json:"names"`
	Connections int      `json:"connections"`
}

type ListPollsResponse struct {
	Polls []*types.PollRecord `json:"polls"`
}

type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Room      map[string]interface{} `json:"room"`
	Archive   string                 `json:"archive"`
	System    map[string]interface{} `json:"system"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// GET /api/poll
func (s *Server) currentPoll(w http.ResponseWriter, r *http.Request) {
	snap, err := s.room.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("room snapshot failed", "error", err)
		s.sendError(w, "Room unavailable", http.StatusServiceUnavailable)
		return
	}
	s.sendJSON(w, http.StatusOK, CurrentPollResponse{
		Active: snap.Poll != nil,
		Poll:   snap.Poll,
		Tally:  snap.Tally,
	})
}

// GET /api/participants
func (s *Server) participants(w http.ResponseWriter, r *http.Request) {
	snap, err := s.room.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("room snapshot failed", "error", err)
		s.sendError(w, "Room unavailable", http.StatusServiceUnavailable)
		return
	}
	names := snap.Participants
	if names == nil {
		names = []string{}
	}
	s.sendJSON(w, http.StatusOK, ParticipantsResponse{Names: names, Connections: snap.Connections})
}

// GET /api/polls?limit=N
func (s *Server) listPolls(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.sendError(w, interfaces.ErrArchiveDisabled.Error(), http.StatusNotFound)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.sendError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	polls, err := s.archive.ListPolls(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing archived polls failed", "error", err)
		s.sendError(w, "Failed to list polls", http.StatusInternalServerError)
		return
	}
	s.sendJSON(w, http.StatusOK, ListPollsResponse{Polls: polls})
}

// GET /api/polls/{id}
func (s *Server) getPoll(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.sendError(w, interfaces.ErrArchiveDisabled.Error(), http.StatusNotFound)
		return
	}

	pollID := mux.Vars(r)["id"]
	record, err := s.archive.GetPoll(r.Context(), pollID)
	if err != nil {
		if errors.Is(err, interfaces.ErrPollNotFound) {
			s.sendError(w, "Poll not found", http.StatusNotFound)
			return
		}
		s.logger.Error("reading archived poll failed", "poll_id", pollID, "error", err)
		s.sendError(w, "Failed to get poll", http.StatusInternalServerError)
		return
	}
	s.sendJSON(w, http.StatusOK, record)
}

// GET /health
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	room := map[string]interface{}{}
	if snap, err := s.room.Snapshot(ctx); err != nil {
		status = "unhealthy"
		room["error"] = err.Error()
	} else {
		room["connections"] = snap.Connections
		room["participants"] = len(snap.Participants)
		room["poll_active"] = snap.Poll != nil
		room["poll_state"] = snap.State
	}

	archiveStatus := "disabled"
	if s.archive != nil {
		archiveStatus = "healthy"
		if err := s.archive.HealthCheck(ctx); err != nil {
			status = "unhealthy"
			archiveStatus = fmt.Sprintf("error: %v", err)
		}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	s.sendJSON(w, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Room:      room,
		Archive:   archiveStatus,
		System:    s.systemInfo(),
	})
}

func (s *Server) systemInfo() map[string]interface{} {
	info := map[string]interface{}{
		"goroutines": runtime.NumGoroutine(),
		"uptime":     time.Since(s.started).Round(time.Second).String(),
	}

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		s.logger.Debug("process stats unavailable", "error", err)
		return info
	}
	if mem, err := p.MemoryInfo(); err == nil {
		info["rss_bytes"] = mem.RSS
	}
	if cpu, err := p.CPUPercent(); err == nil {
		info["cpu_percent"] = cpu
	}
	return info
}

func (s *Server) sendJSON(w http.ResponseWriter, code int, v interface{}) {
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("writing response failed", "error", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	s.sendJSON(w, code, ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
