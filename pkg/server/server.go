// Package server exposes the interview engine over HTTP: session
// creation, the per-turn message endpoint, transcripts, health, and
// Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"interviewd/pkg/interview"
	"interviewd/pkg/logx"
	"interviewd/pkg/metrics"
	"interviewd/pkg/session"
)

// Server is the HTTP surface over the session manager.
type Server struct {
	manager *session.Manager
	metrics *metrics.QueryService
	httpSrv *http.Server
	logger  *logx.Logger
}

// New creates the server. metricsQuery may be nil when no Prometheus
// instance is configured.
func New(addr string, manager *session.Manager, metricsQuery *metrics.QueryService) *Server {
	s := &Server{
		manager: manager,
		metrics: metricsQuery,
		logger:  logx.NewLogger("server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions", s.handleCreateSession)
	mux.HandleFunc("/api/sessions/", s.handleSession)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe starts serving and blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening on %s", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// createSessionRequest is the session creation payload.
type createSessionRequest struct {
	Variant         string            `json:"variant"`
	ParticipantName string            `json:"participantName"`
	ParticipantRole string            `json:"participantRole,omitempty"`
	Module          string            `json:"module,omitempty"`
	Context         map[string]string `json:"context,omitempty"`
}

// createSessionResponse returns the new session id plus the greeting.
type createSessionResponse struct {
	Success   bool                        `json:"success"`
	SessionID string                      `json:"sessionId"`
	Response  string                      `json:"response"`
	State     interview.ConversationState `json:"conversationState"`
}

// turnRequest is the per-turn payload. The module is fixed at session
// creation; unknown keys in the body are ignored.
type turnRequest struct {
	Message string `json:"message"`
}

// turnResponse is the per-turn reply envelope.
type turnResponse struct {
	Success              bool                        `json:"success"`
	Response             string                      `json:"response"`
	State                interview.ConversationState `json:"conversationState"`
	IsComplete           bool                        `json:"isComplete"`
	SafeguardingDetected bool                        `json:"safeguardingDetected"`
}

// errorResponse is the failure envelope.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request", err.Error())
		return
	}

	variant, err := interview.ParseVariant(req.Variant)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid variant", err.Error())
		return
	}

	sc := interview.SessionContext{
		Variant:         variant,
		ParticipantName: strings.TrimSpace(req.ParticipantName),
		ParticipantRole: strings.TrimSpace(req.ParticipantRole),
		Module:          strings.TrimSpace(req.Module),
		Extra:           req.Context,
	}

	sessionID, result, err := s.manager.CreateSession(r.Context(), sc)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, createSessionResponse{
		Success:   true,
		SessionID: sessionID,
		Response:  result.Reply,
		State:     result.State,
	})
}

// handleSession routes /api/sessions/{id}/... subresources.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.SplitN(path, "/", 2)
	sessionID := parts[0]
	if sessionID == "" {
		s.writeError(w, http.StatusBadRequest, "missing session id", "session id is required in the path")
		return
	}

	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}

	switch {
	case sub == "messages" && r.Method == http.MethodPost:
		s.handleTurn(w, r, sessionID)
	case sub == "messages" && r.Method == http.MethodGet:
		s.handleTranscript(w, r, sessionID)
	case sub == "state" && r.Method == http.MethodGet:
		s.handleState(w, r, sessionID)
	case sub == "metrics" && r.Method == http.MethodGet:
		s.handleSessionMetrics(w, r, sessionID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request", err.Error())
		return
	}

	result, err := s.manager.HandleTurn(r.Context(), sessionID, req.Message)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, turnResponse{
		Success:              true,
		Response:             result.Reply,
		State:                result.State,
		IsComplete:           result.IsComplete,
		SafeguardingDetected: result.SafeguardingDetected,
	})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request, sessionID string) {
	msgs, err := s.manager.GetTranscript(r.Context(), sessionID)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"messages": msgs,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request, sessionID string) {
	state, err := s.manager.GetState(r.Context(), sessionID)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"conversationState": state,
	})
}

func (s *Server) handleSessionMetrics(w http.ResponseWriter, r *http.Request, sessionID string) {
	if s.metrics == nil {
		s.writeError(w, http.StatusNotFound, "metrics unavailable", "no metrics backend is configured")
		return
	}
	m, err := s.metrics.GetSessionMetrics(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "metrics query failed", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeMappedError converts engine errors to the HTTP error contract:
// 400 malformed input, 404 unknown session, 409 concurrent turn,
// 410 completed or deactivated session, 500 upstream failure.
func (s *Server) writeMappedError(w http.ResponseWriter, err error) {
	switch {
	case interview.IsValidation(err):
		s.writeError(w, http.StatusBadRequest, "invalid request", err.Error())
	case errors.Is(err, interview.ErrSessionNotFound):
		s.writeError(w, http.StatusNotFound, "session not found", err.Error())
	case errors.Is(err, interview.ErrTurnInProgress):
		s.writeError(w, http.StatusConflict, "turn in progress", err.Error())
	case errors.Is(err, interview.ErrSessionInactive):
		s.writeError(w, http.StatusGone, "session inactive", err.Error())
	case interview.IsModelCall(err):
		s.writeError(w, http.StatusInternalServerError, "model call failed", err.Error())
	default:
		s.logger.Error("internal error: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal error", "an unexpected error occurred")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg, details string) {
	s.writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response: %v", err)
	}
}
