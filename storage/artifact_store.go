package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ArtifactKind groups uploaded files by what they hold
type ArtifactKind string

const (
	KindModel  ArtifactKind = "models"
	KindReward ArtifactKind = "rewards"
)

// ArtifactStore persists uploaded model and reward files
type ArtifactStore interface {
	// Save stores body under a fresh name and returns the reference to record
	Save(ctx context.Context, kind ArtifactKind, filename string, body io.Reader) (string, error)
}

// objectName builds a collision-free name that keeps the uploaded file's extension
func objectName(kind ArtifactKind, filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 16 {
		ext = ""
	}
	return path.Join(string(kind), uuid.NewString()+ext)
}

// LocalStore writes artifacts below a directory on disk
type LocalStore struct {
	dir string
}

// NewLocalStore creates the directory if needed
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save implements ArtifactStore
func (s *LocalStore) Save(ctx context.Context, kind ArtifactKind, filename string, body io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dest := filepath.Join(s.dir, filepath.FromSlash(objectName(kind, filename)))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("close artifact: %w", err)
	}
	return dest, nil
}
