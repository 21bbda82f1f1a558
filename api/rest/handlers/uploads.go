package handlers

import (
	"errors"
	"net/http"

	"robot-training-hub/storage"
)

// multipart parts above this size spill to temporary files
const formMemory = 32 << 20

// Uploads stores multipart file fields through an artifact store
type Uploads struct {
	store    storage.ArtifactStore
	maxBytes int64
}

// NewUploads creates an upload helper limiting request bodies to maxBytes
func NewUploads(store storage.ArtifactStore, maxBytes int64) *Uploads {
	return &Uploads{store: store, maxBytes: maxBytes}
}

func (u *Uploads) parseForm(w http.ResponseWriter, r *http.Request) error {
	if r.ContentLength > u.maxBytes {
		return &http.MaxBytesError{Limit: u.maxBytes}
	}
	r.Body = http.MaxBytesReader(w, r.Body, u.maxBytes)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return maxErr
		}
		return invalid("Expected a multipart form")
	}
	return nil
}

type storedFile struct {
	Ref  string
	Size int64
}

// save stores the file in field; a missing optional file yields nil
func (u *Uploads) save(r *http.Request, field string, kind storage.ArtifactKind, required bool) (*storedFile, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		if required {
			return nil, invalid("%s is required", field)
		}
		return nil, nil
	}
	if err != nil {
		return nil, invalid("Invalid %s upload", field)
	}
	defer file.Close()

	ref, err := u.store.Save(r.Context(), kind, header.Filename, file)
	if err != nil {
		return nil, err
	}
	return &storedFile{Ref: ref, Size: header.Size}, nil
}

func cleanupForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}
