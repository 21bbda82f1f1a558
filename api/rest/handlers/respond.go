package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"robot-training-hub/core/models"
	"robot-training-hub/core/repository"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Publisher pushes events to websocket listeners
type Publisher interface {
	Publish(event models.Event)
}

// ValidationError reports a malformed or incomplete request
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type errorResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

// respondError maps err onto the HTTP error taxonomy. resource names the record for 404s.
func respondError(w http.ResponseWriter, r *http.Request, resource string, err error) {
	var verr *ValidationError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, errorResponse{Message: verr.Message})
	case errors.As(err, &maxErr):
		respondJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
			Message: fmt.Sprintf("Upload exceeds %d bytes", maxErr.Limit),
		})
	case errors.Is(err, repository.ErrCounterDecrease):
		respondJSON(w, http.StatusBadRequest, errorResponse{Message: "Counters cannot decrease"})
	case errors.Is(err, repository.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Message: resource + " not found"})
	default:
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("request failed")
		respondJSON(w, http.StatusInternalServerError, errorResponse{Message: "Internal server error"})
	}
}

// decodeJSON strictly decodes the request body into v
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return invalid("Request body is required")
		}
		return invalid("Invalid request body: %v", err)
	}
	return nil
}

// pathID parses a positive integer route variable
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("Invalid %s %q", name, raw)
	}
	return id, nil
}

// queryUserID parses the optional userId query parameter
func queryUserID(r *http.Request) (*int64, error) {
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, invalid("Invalid userId %q", raw)
	}
	return &id, nil
}

// parseRequiredInt coerces a numeric form or JSON value
func parseRequiredInt(field, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalid("%s is required", field)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, invalid("%s must be an integer", field)
	}
	return n, nil
}

func parseOptionalInt(field, raw string) (*int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	n, err := parseRequiredInt(field, raw)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// requireUser turns an unknown owner into a validation failure
func requireUser(r *http.Request, users repository.UserRepository, id int64) error {
	if _, err := users.GetUser(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("Unknown user %d", id)
		}
		return err
	}
	return nil
}

func requireModel(r *http.Request, store repository.ModelRepository, id int64) error {
	if _, err := store.GetModel(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("Unknown model %d", id)
		}
		return err
	}
	return nil
}
