package output_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/output"
)

func TestStdoutWriter(t *testing.T) {
	var buf bytes.Buffer

	w := output.NewStdoutWriter(&buf)
	require.NoError(t, w.Write([]byte("name: resize\n")))

	assert.Equal(t, "name: resize\n", buf.String())
}

func TestFileWriter(t *testing.T) {
	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "deep", "plan.yaml")

		w := output.NewFileWriter(path)
		require.NoError(t, w.Write([]byte("data")))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "data", string(content))
		assert.Equal(t, path, w.Path())
	})

	t.Run("warns when overwriting", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plan.yaml")

		var logs bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&logs, nil))

		w := output.NewFileWriter(path, output.WithLogger(logger))
		require.NoError(t, w.Write([]byte("first")))
		require.NoError(t, w.Write([]byte("second")))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "second", string(content))
		assert.Contains(t, logs.String(), "overwriting existing file")
	})

	t.Run("custom permissions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plan.yaml")

		w := output.NewFileWriter(path, output.WithPermissions(0o600))
		require.NoError(t, w.Write([]byte("data")))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})
}
