package manifest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
)

func TestIntersect_RangeRange(t *testing.T) {
	got := manifest.Intersect(manifest.NewRange(0, 100), manifest.NewRange(50, 200))

	min, max := got.Bounds()
	assert.Equal(t, manifest.KindRange, got.Kind())
	assert.Equal(t, 50.0, min)
	assert.Equal(t, 100.0, max)

	// Disjoint ranges intersect to absent.
	assert.True(t, manifest.Intersect(manifest.NewRange(0, 10), manifest.NewRange(20, 30)).IsAbsent())
}

func TestIntersect_RangeList(t *testing.T) {
	rng := manifest.NewRange(100, 500)
	list := manifest.NewList(50, 150, 450, 900)

	got := manifest.Intersect(rng, list)
	assert.Equal(t, []interface{}{150.0, 450.0}, got.Values())

	// Symmetric.
	got = manifest.Intersect(list, rng)
	assert.Equal(t, []interface{}{150.0, 450.0}, got.Values())

	// Nothing inside the range.
	assert.True(t, manifest.Intersect(manifest.NewRange(1000, 2000), list).IsAbsent())
}

func TestIntersect_RangeValue(t *testing.T) {
	rng := manifest.NewRange(1, 319)

	got := manifest.Intersect(rng, manifest.NewValue(200))
	assert.Equal(t, manifest.KindValue, got.Kind())
	assert.Equal(t, 200.0, got.Value())

	assert.True(t, manifest.Intersect(rng, manifest.NewValue(500)).IsAbsent())
	assert.True(t, manifest.Intersect(manifest.NewValue(500), rng).IsAbsent())
}

func TestIntersect_ListList(t *testing.T) {
	a := manifest.NewList("image/png", "image/jpeg", "image/gif")
	b := manifest.NewList("image/gif", "image/png")

	// First operand's order wins.
	got := manifest.Intersect(a, b)
	assert.Equal(t, []interface{}{"image/png", "image/gif"}, got.Values())

	got = manifest.Intersect(b, a)
	assert.Equal(t, []interface{}{"image/gif", "image/png"}, got.Values())

	assert.True(t, manifest.Intersect(a, manifest.NewList("image/tiff")).IsAbsent())

	// Empty list supports nothing.
	assert.True(t, manifest.Intersect(a, manifest.NewList()).IsAbsent())
}

func TestIntersect_ListValue(t *testing.T) {
	list := manifest.NewList("image/png", "image/jpeg")

	got := manifest.Intersect(list, manifest.NewValue("image/jpeg"))
	assert.Equal(t, "image/jpeg", got.Value())

	assert.True(t, manifest.Intersect(list, manifest.NewValue("image/tiff")).IsAbsent())
	assert.Equal(t, "image/jpeg", manifest.Intersect(manifest.NewValue("image/jpeg"), list).Value())
}

func TestIntersect_ValueValue(t *testing.T) {
	assert.Equal(t, "image/png",
		manifest.Intersect(manifest.NewValue("image/png"), manifest.NewValue("image/png")).Value())

	assert.True(t,
		manifest.Intersect(manifest.NewValue("image/png"), manifest.NewValue("image/jpeg")).IsAbsent())
}

func TestIntersect_Absent(t *testing.T) {
	assert.True(t, manifest.Intersect(manifest.Expression{}, manifest.NewValue("x")).IsAbsent())
	assert.True(t, manifest.Intersect(manifest.NewValue("x"), manifest.Expression{}).IsAbsent())
}

func TestIntersect_CommutativeContent(t *testing.T) {
	pairs := []struct{ a, b manifest.Expression }{
		{manifest.NewRange(0, 10), manifest.NewRange(5, 20)},
		{manifest.NewList(1, 2, 3), manifest.NewRange(2, 9)},
		{manifest.NewList("a", "b"), manifest.NewValue("b")},
		{manifest.NewValue(7), manifest.NewValue(7)},
	}

	for _, p := range pairs {
		ab := manifest.Intersect(p.a, p.b)
		ba := manifest.Intersect(p.b, p.a)

		// Same values accepted either way; ordering may differ for lists.
		assert.Equal(t, ab.IsAbsent(), ba.IsAbsent())
		for _, v := range ab.Values() {
			assert.True(t, ba.Admits(v))
		}
	}
}

func TestIntersectAttributes(t *testing.T) {
	outputs := manifest.Attributes{
		"type":    manifest.NewList("image/png", "image/jpeg"),
		"width":   manifest.NewRange(1, 2000),
		"quality": manifest.NewValue(90),
	}
	inputs := manifest.Attributes{
		"type":  manifest.NewList("image/jpeg", "image/tiff"),
		"width": manifest.NewRange(100, 5000),
		"fps":   manifest.NewValue(30),
	}

	got := manifest.IntersectAttributes(outputs, inputs)

	// Only attributes present on both sides with a non-absent result.
	assert.Len(t, got, 2)
	assert.Equal(t, []interface{}{"image/jpeg"}, got["type"].Values())

	min, max := got["width"].Bounds()
	assert.Equal(t, 100.0, min)
	assert.Equal(t, 2000.0, max)
}

func TestIntersectAttributes_Idempotent(t *testing.T) {
	surface := manifest.Attributes{
		"type":  manifest.NewList("image/png", "image/jpeg"),
		"width": manifest.NewRange(1, 319),
	}

	got := manifest.IntersectAttributes(surface, surface)

	assert.Len(t, got, len(surface))
	for name, expr := range surface {
		assert.True(t, expr.Equal(got[name]), "attribute %s changed", name)
	}
}

func TestIntersectAttributes_DisjointTypeDropped(t *testing.T) {
	a := manifest.Attributes{"type": manifest.NewValue("image/png")}
	b := manifest.Attributes{"type": manifest.NewValue("video/mp4")}

	got := manifest.IntersectAttributes(a, b)
	assert.Empty(t, got)
}
