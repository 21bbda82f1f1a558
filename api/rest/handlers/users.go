package handlers

import (
	"net/http"

	"robot-training-hub/core/repository"
)

// UserHandler serves user profiles
type UserHandler struct {
	store repository.UserRepository
}

func NewUserHandler(store repository.UserRepository) *UserHandler {
	return &UserHandler{store: store}
}

// GetUser handles GET /api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, "User", err)
		return
	}
	user, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		respondError(w, r, "User", err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
