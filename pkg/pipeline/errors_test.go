package pipeline_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

func TestErrorRendering(t *testing.T) {
	err := pipeline.NewGenericError("resize_executeTransformer", "boom")
	assert.Equal(t, "GenericError [resize_executeTransformer]: boom", err.Error())

	err = pipeline.NewSourceUnsupported(`url "x" must be a valid https url or datauri`)
	assert.Contains(t, err.Error(), "must be a valid https url or datauri")
	assert.Equal(t, pipeline.ReasonSourceUnsupported, err.Reason)
}

func TestWrapUnknown(t *testing.T) {
	plain := errors.New("disk full")

	wrapped := pipeline.WrapUnknown(plain, "test_executeTransformer")
	assert.Equal(t, pipeline.ReasonGeneric, wrapped.Reason)
	assert.Equal(t, "test_executeTransformer", wrapped.Location)
	assert.ErrorIs(t, wrapped, plain)
}

func TestWrapUnknown_KnownKindPassesThrough(t *testing.T) {
	known := pipeline.NewRenditionTooLarge("413 from target")

	wrapped := pipeline.WrapUnknown(known, "upload")
	assert.Same(t, known, wrapped)
	assert.Equal(t, pipeline.ReasonRenditionTooLarge, wrapped.Reason)

	// Also through a %w chain.
	chained := fmt.Errorf("uploading: %w", known)
	wrapped = pipeline.WrapUnknown(chained, "upload")
	assert.Equal(t, pipeline.ReasonRenditionTooLarge, wrapped.Reason)
}

func TestWrapUnknown_Nil(t *testing.T) {
	assert.Nil(t, pipeline.WrapUnknown(nil, "anywhere"))
}

func TestReasonOf(t *testing.T) {
	assert.Equal(t, pipeline.ReasonGeneric, pipeline.ReasonOf(errors.New("x")))
	assert.Equal(t, pipeline.ReasonSourceCorrupt, pipeline.ReasonOf(pipeline.NewSourceCorrupt("bad bytes")))
	assert.Equal(t, pipeline.ReasonSourceFormatUnsupported,
		pipeline.ReasonOf(fmt.Errorf("probing: %w", pipeline.NewSourceFormatUnsupported("nope"))))
}
