package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"robot-training-hub/core/models"
	"robot-training-hub/core/repository"
)

// ValidationHandler handles remote validation sessions
type ValidationHandler struct {
	store repository.Store
}

// NewValidationHandler creates a new validation session handler
func NewValidationHandler(store repository.Store) *ValidationHandler {
	return &ValidationHandler{store: store}
}

// CreateSessionRequest is the body of POST /api/validation-sessions
type CreateSessionRequest struct {
	UserID    json.Number          `json:"userId"`
	ModelID   json.Number          `json:"modelId"`
	RobotType string               `json:"robotType"`
	Status    models.SessionStatus `json:"status"`
}

// ListSessions handles GET /api/validation-sessions
func (h *ValidationHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil {
		respondError(w, r, "Validation session", err)
		return
	}

	sessions, err := h.store.ListSessions(r.Context(), userID)
	if err != nil {
		respondError(w, r, "Validation session", err)
		return
	}
	respondJSON(w, http.StatusOK, sessions)
}

// CreateSession handles POST /api/validation-sessions
func (h *ValidationHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, "Validation session", err)
		return
	}

	session, err := h.sessionFromRequest(r, req)
	if err != nil {
		respondError(w, r, "Validation session", err)
		return
	}
	if err := h.store.CreateSession(r.Context(), session); err != nil {
		respondError(w, r, "Validation session", err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

func (h *ValidationHandler) sessionFromRequest(r *http.Request, req CreateSessionRequest) (*models.ValidationSession, error) {
	robotType := strings.TrimSpace(req.RobotType)
	if robotType == "" {
		return nil, invalid("robotType is required")
	}

	status := req.Status
	if status == "" {
		status = models.SessionStatusPending
	}
	if !status.Valid() {
		return nil, invalid("Unknown status %q", status)
	}

	userID, err := parseRequiredInt("userId", req.UserID.String())
	if err != nil {
		return nil, err
	}
	if err := requireUser(r, h.store, userID); err != nil {
		return nil, err
	}

	modelID, err := parseRequiredInt("modelId", req.ModelID.String())
	if err != nil {
		return nil, err
	}
	if err := requireModel(r, h.store, modelID); err != nil {
		return nil, err
	}

	return &models.ValidationSession{
		UserID:    userID,
		ModelID:   modelID,
		RobotType: robotType,
		Status:    status,
	}, nil
}

// UpdateSession handles PATCH /api/validation-sessions/{id}
func (h *ValidationHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, "Validation session", err)
		return
	}

	var patch models.SessionPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, r, "Validation session", err)
		return
	}
	if patch.Status != nil && !patch.Status.Valid() {
		respondError(w, r, "Validation session", invalid("Unknown status %q", *patch.Status))
		return
	}
	if patch.Duration != nil && *patch.Duration < 0 {
		respondError(w, r, "Validation session", invalid("duration cannot be negative"))
		return
	}

	session, err := h.store.UpdateSession(r.Context(), id, patch)
	if err != nil {
		respondError(w, r, "Validation session", err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}
