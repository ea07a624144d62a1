package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"amp-whale-tracker/internal/domain/entity"
	"amp-whale-tracker/internal/domain/service"
	"amp-whale-tracker/internal/infrastructure/config"
	"amp-whale-tracker/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// Server exposes the dashboard page, the JSON API and the websocket feed
type Server struct {
	tracker service.TrackerService
	hub     *Hub
	logger  *logger.Logger
	mux     *http.ServeMux
	server  *http.Server
}

// NewServer creates a new HTTP server with configured routes
func NewServer(cfg *config.Config, tracker service.TrackerService, hub *Hub, logger *logger.Logger) *Server {
	mux := http.NewServeMux()

	server := &Server{
		tracker: tracker,
		hub:     hub,
		logger:  logger.WithComponent("web-server"),
		mux:     mux,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.App.HTTPPort),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	server.registerRoutes()

	return server
}

// registerRoutes configures all HTTP routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("/api/transfers", s.handleTransfers)
	s.mux.HandleFunc("/api/leaderboard", s.handleLeaderboard)
	s.mux.HandleFunc("/api/params", s.handleParams)
	s.mux.HandleFunc("/api/refresh", s.handleRefresh)
	s.mux.HandleFunc("/api/autorefresh", s.handleAutoRefresh)
	s.mux.HandleFunc("/ws", s.handleWS)
	s.mux.HandleFunc("/health", s.handleHealth)
}

// Handler returns the route multiplexer
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start begins listening for HTTP requests
func (s *Server) Start() {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Web server stopped", zap.Error(err))
		}
	}()
}

// Stop disconnects websocket clients and shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Close()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHTML))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.tracker.Snapshot())
}

func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snapshot := s.tracker.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"transfers":  snapshot.Transfers,
		"updated_at": snapshot.UpdatedAt,
		"stale":      snapshot.Stale,
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snapshot := s.tracker.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"leaderboard": snapshot.Leaderboard,
		"updated_at":  snapshot.UpdatedAt,
		"stale":       snapshot.Stale,
	})
}

// paramsRequest carries a partial parameter update. Absent fields keep
// their current values.
type paramsRequest struct {
	MinEth      *float64 `json:"min_eth"`
	WindowHours *int     `json:"window_hours"`
	Limit       *int     `json:"limit"`
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req paramsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, entity.NewInvalidParameter(fmt.Sprintf("request body is not valid JSON: %v", err)))
		return
	}

	params := s.tracker.Snapshot().Params
	if req.MinEth != nil {
		params.MinEth = *req.MinEth
	}
	if req.WindowHours != nil {
		params.WindowHours = *req.WindowHours
	}
	if req.Limit != nil {
		params.Limit = *req.Limit
	}

	if err := s.tracker.SetParams(r.Context(), params); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "accepted",
		"params": params,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.tracker.ForceRefresh()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

type autoRefreshRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleAutoRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req autoRefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, entity.NewInvalidParameter(fmt.Sprintf("request body is not valid JSON: %v", err)))
		return
	}

	s.tracker.SetAutoRefresh(req.Enabled)
	s.writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.hub.HandleWS(w, r, s.tracker.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snapshot := s.tracker.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"state":   snapshot.State,
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError maps a query error onto the wire. Invalid parameters are the
// caller's fault; everything else reads as an upstream failure.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	payload := map[string]string{
		"kind":    string(entity.ErrKindServer),
		"message": err.Error(),
	}

	if qe, ok := entity.AsQueryError(err); ok {
		payload["kind"] = string(qe.Kind)
		payload["message"] = qe.Message
		if qe.Kind == entity.ErrKindInvalidParameter {
			status = http.StatusBadRequest
		}
	}

	s.writeJSON(w, status, payload)
}
