package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(filepath.Join(t.TempDir(), "temp"), "")
	require.NoError(t, err)

	src := writeTempFile(t, "asset.png", "png bytes")

	url, id, err := store.Store(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, DefaultLocalBaseURL+"/"))
	assert.True(t, strings.HasSuffix(id, ".png"))

	data, err := os.ReadFile(store.Path(id))
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))

	require.NoError(t, store.Remove(context.Background(), id))
	_, err = os.Stat(store.Path(id))
	assert.True(t, os.IsNotExist(err))

	// Removing twice is fine.
	assert.NoError(t, store.Remove(context.Background(), id))
}

func TestLocalStoreRequiresDirectory(t *testing.T) {
	_, err := NewLocalStore("", "")
	require.Error(t, err)
}

func TestHTTPStoreRoundTrip(t *testing.T) {
	var (
		uploaded []byte
		deleted  string
	)

	mux := http.NewServeMux()

	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/presign", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req presignRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "asset.png", req.Filename)
		assert.Equal(t, int64(len("png bytes")), req.Size)

		_ = json.NewEncoder(w).Encode(presignGrant{
			ID:          "file-1",
			UploadURL:   srv.URL + "/upload/file-1",
			DownloadURL: srv.URL + "/download/file-1",
		})
	})

	mux.HandleFunc("/upload/file-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		uploaded, _ = io.ReadAll(r.Body)
	})

	mux.HandleFunc("/files/file-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		deleted = "file-1"
		w.WriteHeader(http.StatusNoContent)
	})

	store, err := NewHTTPStore(HTTPConfig{Endpoint: srv.URL, Token: "secret"})
	require.NoError(t, err)

	url, id, err := store.Store(context.Background(), writeTempFile(t, "asset.png", "png bytes"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/download/file-1", url)
	assert.Equal(t, "file-1", id)
	assert.Equal(t, "png bytes", string(uploaded))

	require.NoError(t, store.Remove(context.Background(), id))
	assert.Equal(t, "file-1", deleted)
}

func TestHTTPStorePresignFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	store, err := NewHTTPStore(HTTPConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	_, _, err = store.Store(context.Background(), writeTempFile(t, "asset.png", "png bytes"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestHTTPStoreRequiresEndpoint(t *testing.T) {
	_, err := NewHTTPStore(HTTPConfig{})
	require.Error(t, err)
}
