package plan

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attrs(inType, outType string) map[string]interface{} {
	return map[string]interface{}{
		KeyInput:  map[string]interface{}{"type": inType},
		KeyOutput: map[string]interface{}{"type": outType},
	}
}

func TestNewPlan(t *testing.T) {
	p := New()

	assert.Equal(t, StateInitial, p.State())
	assert.True(t, p.Current().IsStart())
	assert.True(t, p.Empty())
	assert.Equal(t, "*[start]", p.String())
}

func TestAddNestsGroups(t *testing.T) {
	p := New()

	_, err := p.Add("transformerPNG", attrs("image/tiff", "image/png"))
	require.NoError(t, err)
	assert.Equal(t, "*[start] -> { transformerPNG }", p.String())

	_, err = p.Add("transformerGIF", attrs("image/png", "image/gif"))
	require.NoError(t, err)
	assert.Equal(t, "*[start] -> { transformerPNG -> { transformerGIF } }", p.String())

	assert.Equal(t, 2, p.Size())
}

func TestAdvanceWalksSteps(t *testing.T) {
	p := New()
	_, err := p.Add("a", nil)
	require.NoError(t, err)
	_, err = p.Add("b", nil)
	require.NoError(t, err)

	step := p.Advance()
	require.NotNil(t, step)
	assert.Equal(t, "a", step.Name())
	assert.Equal(t, StateInProgress, p.State())

	step = p.Advance()
	require.NotNil(t, step)
	assert.Equal(t, "b", step.Name())

	step = p.Advance()
	assert.Nil(t, step)
	assert.Equal(t, StateSucceeded, p.State())
	assert.Nil(t, p.Current())
}

func TestAdvanceClearsGroupTail(t *testing.T) {
	p := New()
	_, err := p.Add("a", nil)
	require.NoError(t, err)
	_, err = p.Add("b", nil)
	require.NoError(t, err)

	// Move onto "a", then insert: the new step joins "a"'s open group as a
	// sibling of "b" instead of nesting deeper.
	p.Advance()
	_, err = p.Add("c", nil)
	require.NoError(t, err)

	assert.Equal(t, "[start] -> { *a -> { c -> b } }", p.String())
}

func TestAdvanceAfterTerminalStateIsNoop(t *testing.T) {
	p := New()
	_, err := p.Add("a", nil)
	require.NoError(t, err)

	p.Advance()
	p.Fail()
	assert.Equal(t, StateFailed, p.State())

	got := p.Advance()
	assert.Equal(t, "a", got.Name())
	assert.Equal(t, StateFailed, p.State())

	// Fail after success does not rewrite the state.
	q := New()
	_, err = q.Add("a", nil)
	require.NoError(t, err)
	q.Advance()
	q.Advance()
	require.Equal(t, StateSucceeded, q.State())

	q.Fail()
	assert.Equal(t, StateSucceeded, q.State())
	assert.Nil(t, q.Advance())
}

func TestAddOverflow(t *testing.T) {
	p := New()

	for i := 0; i < MaxSteps; i++ {
		_, err := p.Add(fmt.Sprintf("step-%d", i), nil)
		require.NoError(t, err)
	}

	_, err := p.Add("one-too-many", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"one-too-many"`)
	assert.Contains(t, err.Error(), "100")
}

func TestUpdateOriginalInputOnlyOnce(t *testing.T) {
	p := New()

	p.UpdateOriginalInput(map[string]interface{}{"type": "image/png"})
	p.UpdateOriginalInput(map[string]interface{}{"type": "image/tiff"})

	assert.Equal(t, "image/png", p.OriginalInput()["type"])
}

func TestStringMarksCurrent(t *testing.T) {
	p := New()
	_, err := p.Add("a", nil)
	require.NoError(t, err)
	_, err = p.Add("b", nil)
	require.NoError(t, err)

	p.Advance()
	assert.Equal(t, "[start] -> { *a -> { b } }", p.String())

	p.Advance()
	assert.Equal(t, "[start] -> { a -> { *b } }", p.String())

	p.Advance()
	assert.Equal(t, "[start] -> { a -> { b } }", p.String())
}

func TestStepInputOutputBags(t *testing.T) {
	p := New()
	step, err := p.Add("a", attrs("image/png", "image/jpeg"))
	require.NoError(t, err)

	assert.Equal(t, "image/png", step.Input()["type"])
	assert.Equal(t, "image/jpeg", step.Output()["type"])

	// Bags are live; threading results mutates in place.
	step.Input()["path"] = "/tmp/in.png"
	assert.Equal(t, "/tmp/in.png", step.Input()["path"])

	// A step added without attributes still yields usable bags.
	bare, err := p.Add("b", nil)
	require.NoError(t, err)
	bare.Output()["type"] = "image/gif"
	assert.Equal(t, "image/gif", bare.Output()["type"])
}
