package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"robot-training-hub/core/models"
	"robot-training-hub/core/repository"
)

// CommunityHandler handles community posts
type CommunityHandler struct {
	store repository.Store
}

// NewCommunityHandler creates a new community handler
func NewCommunityHandler(store repository.Store) *CommunityHandler {
	return &CommunityHandler{store: store}
}

// CreatePostRequest is the body of POST /api/community/posts. Ids may be numbers or numeric strings.
type CreatePostRequest struct {
	UserID  json.Number `json:"userId"`
	Content string      `json:"content"`
	ModelID json.Number `json:"modelId"`
}

// ListPosts handles GET /api/community/posts
func (h *CommunityHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.ListPosts(r.Context())
	if err != nil {
		respondError(w, r, "Post", err)
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

// CreatePost handles POST /api/community/posts
func (h *CommunityHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, "Post", err)
		return
	}

	post, err := h.postFromRequest(r, req)
	if err != nil {
		respondError(w, r, "Post", err)
		return
	}
	if err := h.store.CreatePost(r.Context(), post); err != nil {
		respondError(w, r, "Post", err)
		return
	}
	respondJSON(w, http.StatusCreated, post)
}

func (h *CommunityHandler) postFromRequest(r *http.Request, req CreatePostRequest) (*models.CommunityPost, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, invalid("content is required")
	}

	userID, err := parseRequiredInt("userId", req.UserID.String())
	if err != nil {
		return nil, err
	}
	if err := requireUser(r, h.store, userID); err != nil {
		return nil, err
	}

	modelID, err := parseOptionalInt("modelId", req.ModelID.String())
	if err != nil {
		return nil, err
	}
	if modelID != nil {
		if err := requireModel(r, h.store, *modelID); err != nil {
			return nil, err
		}
	}

	return &models.CommunityPost{UserID: userID, Content: content, ModelID: modelID}, nil
}

// UpdatePost handles PATCH /api/community/posts/{id}
func (h *CommunityHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, "Post", err)
		return
	}

	var patch models.PostPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, r, "Post", err)
		return
	}
	if patch.Content != nil && strings.TrimSpace(*patch.Content) == "" {
		respondError(w, r, "Post", invalid("content cannot be empty"))
		return
	}
	if (patch.Likes != nil && *patch.Likes < 0) || (patch.Comments != nil && *patch.Comments < 0) {
		respondError(w, r, "Post", invalid("counters cannot be negative"))
		return
	}

	post, err := h.store.UpdatePost(r.Context(), id, patch)
	if err != nil {
		respondError(w, r, "Post", err)
		return
	}
	respondJSON(w, http.StatusOK, post)
}
