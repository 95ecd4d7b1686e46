package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

func newTestTransformer(name string) pipeline.Transformer {
	m := &manifest.Manifest{
		Inputs:  manifest.Attributes{"type": manifest.NewValue("image/png")},
		Outputs: manifest.Attributes{"type": manifest.NewValue("image/jpeg")},
	}

	return pipeline.NewCallback(name, m, func(context.Context, *pipeline.TransformerContext) error {
		return nil
	})
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := pipeline.NewRegistry()
	r.Register(newTestTransformer("resize"))

	got, ok := r.Get("resize")
	require.True(t, ok)
	assert.Equal(t, "resize", got.Name())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistryLastWriterWins(t *testing.T) {
	r := pipeline.NewRegistry()

	first := newTestTransformer("resize")
	second := newTestTransformer("resize")

	r.Register(first)
	r.Register(second)

	got, ok := r.Get("resize")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryNamesSorted(t *testing.T) {
	r := pipeline.NewRegistry()
	r.Register(newTestTransformer("zeta"))
	r.Register(newTestTransformer("alpha"))
	r.Register(newTestTransformer("mid"))

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())
}
