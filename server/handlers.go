package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gokul-gopan-k/agent-recommender/auth"
	"github.com/gokul-gopan-k/agent-recommender/recommend"
)

type ctxKey string

// ctxKeyUserID carries the authenticated user ID through the request context.
const ctxKeyUserID ctxKey = "user_id"

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type recommendRequest struct {
	UserInput string `json:"user_input" validate:"required,max=2000"`
}

// getStateRequest accepts either a run ID (preferred) or fresh preferences
// text, which executes a new run and returns its snapshots.
type getStateRequest struct {
	RunID     string `json:"run_id"`
	UserInput string `json:"user_input"`
}

type errorBody struct {
	Kind    recommend.Kind `json:"kind"`
	Message string         `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
	RunID string    `json:"run_id,omitempty"`
}

// handleHealth reports engine readiness. model_configured means a provider
// API key is present; the model service itself is not probed, so a healthy
// status does not guarantee the provider is currently reachable.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	nodes, ok := s.svc.Ready()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"graph_loaded":     ok,
		"nodes":            nodes,
		"model_configured": s.modelConfigured,
	})
}

func (s *Server) handleVisualize(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Topology())
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}

	user, err := s.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "user registered successfully",
		"user_id": user.ID,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}

	token, err := s.auth.IssueToken(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if !s.decode(w, r, &req) {
		return
	}

	final, err := s.svc.Execute(r.Context(), req.UserInput)
	if err != nil {
		s.writeError(w, err, final.RunID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":   final.RunID,
		"response": final.Response,
	})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	var req getStateRequest
	if !s.decode(w, r, &req) {
		return
	}

	runID := req.RunID
	if runID == "" {
		if req.UserInput == "" {
			s.writeError(w, &recommend.ValidationError{Message: "run_id or user_input is required"}, "")
			return
		}
		final, err := s.svc.Execute(r.Context(), req.UserInput)
		if err != nil && final.RunID == "" {
			s.writeError(w, err, "")
			return
		}
		// Failed runs still have inspectable snapshots.
		runID = final.RunID
	}

	states, err := s.svc.GetStates(r.Context(), runID)
	if err != nil {
		s.writeError(w, err, runID)
		return
	}

	writeJSON(w, http.StatusOK, states)
}

// requireAuth validates the bearer token and stashes the user ID in the
// request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: errorBody{Kind: "auth", Message: "missing bearer token"}})
			return
		}

		userID, err := s.auth.ValidateToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: errorBody{Kind: "auth", Message: err.Error()}})
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// decode parses and validates a JSON request body. On failure it writes a
// validation error response and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, &recommend.ValidationError{Message: "invalid JSON body"}, "")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeError(w, &recommend.ValidationError{Message: "invalid request: " + err.Error()}, "")
		return false
	}
	return true
}

// writeError maps domain errors to HTTP status codes and a structured
// {kind, message} payload. Raw internals are never exposed.
func (s *Server) writeError(w http.ResponseWriter, err error, runID string) {
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Kind: "auth", Message: authErr.Message}})
		return
	}

	kind := recommend.KindOf(err)
	status := http.StatusInternalServerError
	message := err.Error()

	switch kind {
	case recommend.KindValidation:
		status = http.StatusBadRequest
	case recommend.KindUpstream:
		status = http.StatusBadGateway
	case recommend.KindNotFound:
		status = http.StatusNotFound
	case recommend.KindCancelled:
		// Client went away; 499 convention from nginx.
		status = 499
	default:
		s.log.Error().Err(err).Msg("internal error")
		message = "internal error"
	}

	writeJSON(w, status, errorResponse{Error: errorBody{Kind: kind, Message: message}, RunID: runID})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
