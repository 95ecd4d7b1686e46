package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// HTTPConfig wires an HTTPStore.
type HTTPConfig struct {
	// Endpoint is the presign service base URL (required).
	Endpoint string
	// Token is sent as a bearer token on service calls.
	Token string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// HTTPStore stores temporary files through a presign service: the service
// grants an upload URL and a download URL per file, the store PUTs the
// bytes to the former and hands the latter to the engine.
type HTTPStore struct {
	endpoint string
	token    string
	http     *http.Client
}

// NewHTTPStore validates the config and returns the adapter.
func NewHTTPStore(cfg HTTPConfig) (*HTTPStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("presign service endpoint required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &HTTPStore{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		token:    cfg.Token,
		http:     client,
	}, nil
}

type presignRequest struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

type presignGrant struct {
	ID          string `json:"id"`
	UploadURL   string `json:"uploadUrl"`
	DownloadURL string `json:"downloadUrl"`
}

// Store presigns, uploads, and returns the granted download URL and id.
func (s *HTTPStore) Store(ctx context.Context, localPath string) (string, string, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return "", "", fmt.Errorf("stat %s: %w", localPath, err)
	}

	grant, err := s.presign(ctx, filepath.Base(localPath), info.Size())
	if err != nil {
		return "", "", err
	}

	if err := s.put(ctx, grant.UploadURL, localPath, info.Size()); err != nil {
		return "", "", err
	}

	return grant.DownloadURL, grant.ID, nil
}

// Remove releases the stored file; an already-released id is not an error.
func (s *HTTPStore) Remove(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.endpoint+"/files/"+id, nil)
	if err != nil {
		return err
	}

	s.authorize(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("releasing temporary file %s: status %d", id, resp.StatusCode)
	}

	return nil
}

func (s *HTTPStore) presign(ctx context.Context, filename string, size int64) (*presignGrant, error) {
	body, err := json.Marshal(presignRequest{Filename: filename, Size: size})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/presign", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	s.authorize(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("presign request failed: status %d", resp.StatusCode)
	}

	var grant presignGrant
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return nil, fmt.Errorf("decoding presign response: %w", err)
	}

	if grant.ID == "" || grant.UploadURL == "" || grant.DownloadURL == "" {
		return nil, fmt.Errorf("presign response missing id or urls")
	}

	return &grant, nil
}

func (s *HTTPStore) put(ctx context.Context, uploadURL, localPath string, size int64) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, f)
	if err != nil {
		return err
	}

	req.ContentLength = size

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("uploading temporary file: status %d", resp.StatusCode)
	}

	return nil
}

func (s *HTTPStore) authorize(req *http.Request) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}
