package handlers

import (
	"net/http"

	"robot-training-hub/core/models"
	"robot-training-hub/core/repository"
)

// MarketplaceHandler handles the shared model catalog
type MarketplaceHandler struct {
	store repository.MarketplaceRepository
}

// NewMarketplaceHandler creates a new marketplace handler
func NewMarketplaceHandler(store repository.MarketplaceRepository) *MarketplaceHandler {
	return &MarketplaceHandler{store: store}
}

// ListModels handles GET /api/marketplace/models
func (h *MarketplaceHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListMarketplaceModels(r.Context())
	if err != nil {
		respondError(w, r, "Model", err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GetModel handles GET /api/marketplace/models/{id}
func (h *MarketplaceHandler) GetModel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, "Model", err)
		return
	}
	m, err := h.store.GetMarketplaceModel(r.Context(), id)
	if err != nil {
		respondError(w, r, "Model", err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

// Like handles POST /api/marketplace/models/{id}/like
func (h *MarketplaceHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.increment(w, r, models.CounterLikes)
}

// Download handles POST /api/marketplace/models/{id}/download
func (h *MarketplaceHandler) Download(w http.ResponseWriter, r *http.Request) {
	h.increment(w, r, models.CounterDownloads)
}

func (h *MarketplaceHandler) increment(w http.ResponseWriter, r *http.Request, counter models.Counter) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, "Model", err)
		return
	}
	m, err := h.store.IncrementMarketplaceCounter(r.Context(), id, counter)
	if err != nil {
		respondError(w, r, "Model", err)
		return
	}

	value := m.Likes
	if counter == models.CounterDownloads {
		value = m.Downloads
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		string(counter): value,
	})
}
