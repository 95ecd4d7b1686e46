package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DefaultLocalBaseURL prefixes URLs issued by a LocalStore. The URLs are
// not fetchable; consumers resolve the id through Path.
const DefaultLocalBaseURL = "https://localhost.localdomain/temp"

// LocalStore keeps temporary files in a directory. It is meant for
// development and tests where no presign service is available.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates the directory if needed and returns a store over
// it. An empty baseURL selects DefaultLocalBaseURL.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory required")
	}

	if baseURL == "" {
		baseURL = DefaultLocalBaseURL
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating storage directory %s: %w", dir, err)
	}

	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Store copies the file into the store under a fresh id and returns its
// issued URL and id.
func (s *LocalStore) Store(_ context.Context, localPath string) (string, string, error) {
	id := uuid.NewString() + strings.ToLower(filepath.Ext(localPath))

	if err := copyFile(localPath, filepath.Join(s.dir, id)); err != nil {
		return "", "", err
	}

	return s.baseURL + "/" + id, id, nil
}

// Remove deletes the stored file; a missing file is not an error.
func (s *LocalStore) Remove(_ context.Context, id string) error {
	if id == "" {
		return nil
	}

	err := os.Remove(s.Path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return err
}

// Path resolves an issued id to its file in the store.
func (s *LocalStore) Path(id string) string {
	return filepath.Join(s.dir, filepath.Base(id))
}
