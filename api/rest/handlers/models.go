package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"robot-training-hub/core/models"
	"robot-training-hub/core/repository"
	"robot-training-hub/storage"
)

// ModelHandler handles the user model library
type ModelHandler struct {
	store   repository.Store
	uploads *Uploads
}

// NewModelHandler creates a new model handler
func NewModelHandler(store repository.Store, uploads *Uploads) *ModelHandler {
	return &ModelHandler{store: store, uploads: uploads}
}

// ListModels handles GET /api/models
func (h *ModelHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil {
		respondError(w, r, "Model", err)
		return
	}

	list, err := h.store.ListModels(r.Context(), userID)
	if err != nil {
		respondError(w, r, "Model", err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// CreateModel handles POST /api/models
func (h *ModelHandler) CreateModel(w http.ResponseWriter, r *http.Request) {
	if err := h.uploads.parseForm(w, r); err != nil {
		respondError(w, r, "Model", err)
		return
	}
	defer cleanupForm(r)

	model, err := h.modelFromForm(r)
	if err != nil {
		respondError(w, r, "Model", err)
		return
	}

	file, err := h.uploads.save(r, "modelFile", storage.KindModel, true)
	if err != nil {
		respondError(w, r, "Model", err)
		return
	}
	model.FilePath = &file.Ref
	model.Size = &file.Size

	if err := h.store.CreateModel(r.Context(), model); err != nil {
		respondError(w, r, "Model", err)
		return
	}
	respondJSON(w, http.StatusCreated, model)
}

func (h *ModelHandler) modelFromForm(r *http.Request) (*models.Model, error) {
	form := r.MultipartForm.Value
	get := func(key string) string {
		if v := form[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	userID, err := parseRequiredInt("userId", get("userId"))
	if err != nil {
		return nil, err
	}
	if err := requireUser(r, h.store, userID); err != nil {
		return nil, err
	}

	model := &models.Model{
		UserID:    userID,
		Name:      get("name"),
		ModelType: get("modelType"),
		IsPublic:  get("isPublic") == "true",
	}
	if model.Name == "" {
		return nil, invalid("name is required")
	}
	if model.ModelType == "" {
		return nil, invalid("modelType is required")
	}
	if d := get("description"); d != "" {
		model.Description = &d
	}
	if raw := get("accuracy"); raw != "" {
		acc, err := strconv.ParseFloat(raw, 64)
		if err != nil || acc < 0 || acc > 100 {
			return nil, invalid("accuracy must be a number between 0 and 100")
		}
		model.Accuracy = &acc
	}
	hours, err := parseOptionalInt("trainingTime", get("trainingTime"))
	if err != nil {
		return nil, err
	}
	if hours != nil {
		if *hours < 0 {
			return nil, invalid("trainingTime cannot be negative")
		}
		t := int(*hours)
		model.TrainingTime = &t
	}
	return model, nil
}

// UpdateModel handles PATCH /api/models/{id}
func (h *ModelHandler) UpdateModel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, "Model", err)
		return
	}

	var patch models.ModelPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, r, "Model", err)
		return
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		respondError(w, r, "Model", invalid("name cannot be empty"))
		return
	}
	if patch.ModelType != nil && strings.TrimSpace(*patch.ModelType) == "" {
		respondError(w, r, "Model", invalid("modelType cannot be empty"))
		return
	}

	model, err := h.store.UpdateModel(r.Context(), id, patch)
	if err != nil {
		respondError(w, r, "Model", err)
		return
	}
	respondJSON(w, http.StatusOK, model)
}

// DeleteModel handles DELETE /api/models/{id}
func (h *ModelHandler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, "Model", err)
		return
	}
	if err := h.store.DeleteModel(r.Context(), id); err != nil {
		respondError(w, r, "Model", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Download handles POST /api/models/{id}/download
func (h *ModelHandler) Download(w http.ResponseWriter, r *http.Request) {
	h.increment(w, r, models.CounterDownloads)
}

// Like handles POST /api/models/{id}/like
func (h *ModelHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.increment(w, r, models.CounterLikes)
}

func (h *ModelHandler) increment(w http.ResponseWriter, r *http.Request, counter models.Counter) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, "Model", err)
		return
	}
	model, err := h.store.IncrementModelCounter(r.Context(), id, counter)
	if err != nil {
		respondError(w, r, "Model", err)
		return
	}
	respondJSON(w, http.StatusOK, model)
}
