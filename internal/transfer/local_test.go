package transfer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

func localRendition(t *testing.T, target interface{}) *pipeline.Rendition {
	t.Helper()

	src := filepath.Join(t.TempDir(), "rendition.png")
	require.NoError(t, os.WriteFile(src, []byte("png bytes"), 0o600))

	r := pipeline.NewRendition(map[string]interface{}{
		"type":   "image/png",
		"target": target,
	}, 0)
	r.Path = src

	return r
}

func TestLocalDeliveryCopiesToPath(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out", "thumb.png")
	r := localRendition(t, dest)

	d := &LocalDelivery{Client: testClient(Config{})}
	require.NoError(t, d.Upload(context.Background(), r))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))
}

func TestLocalDeliveryStripsFileScheme(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "thumb.png")
	r := localRendition(t, "file://"+dest)

	d := &LocalDelivery{Client: testClient(Config{})}
	require.NoError(t, d.Upload(context.Background(), r))

	assert.FileExists(t, dest)
}

func TestLocalDeliveryMultipleTargets(t *testing.T) {
	dir := t.TempDir()
	targets := map[string]interface{}{
		"urls": []interface{}{
			filepath.Join(dir, "a.png"),
			filepath.Join(dir, "b.png"),
		},
	}
	r := localRendition(t, targets)

	d := &LocalDelivery{Client: testClient(Config{})}
	require.NoError(t, d.Upload(context.Background(), r))

	assert.FileExists(t, filepath.Join(dir, "a.png"))
	assert.FileExists(t, filepath.Join(dir, "b.png"))
}

func TestLocalDeliveryDelegatesRemoteTargets(t *testing.T) {
	var body []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := localRendition(t, srv.URL+"/renditions/thumb.png")

	d := &LocalDelivery{Client: testClient(Config{})}
	require.NoError(t, d.Upload(context.Background(), r))

	assert.Equal(t, "png bytes", string(body))
}

func TestLocalDeliveryNoTarget(t *testing.T) {
	r := pipeline.NewRendition(map[string]interface{}{"type": "image/png"}, 0)

	d := &LocalDelivery{Client: testClient(Config{})}
	err := d.Upload(context.Background(), r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no target")
}

func TestLocalDeliveryMissingArtifact(t *testing.T) {
	r := pipeline.NewRendition(map[string]interface{}{
		"type":   "image/png",
		"target": filepath.Join(t.TempDir(), "thumb.png"),
	}, 0)

	d := &LocalDelivery{Client: testClient(Config{})}
	err := d.Upload(context.Background(), r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no local artifact")
}

func TestHasRemoteTarget(t *testing.T) {
	assert.False(t, hasRemoteTarget([]string{"renditions/a.png", "file:///tmp/b.png"}))
	assert.True(t, hasRemoteTarget([]string{"renditions/a.png", "https://bucket/b.png"}))
}
