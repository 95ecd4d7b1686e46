package pipeline

import (
	"os"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
)

// Rendition is a step output: the requested instructions plus the artifact
// the transformer produced (a local path or, for URL-type outputs, a URL).
type Rendition struct {
	// Attributes is the instruction bag: type, dimensions, quality,
	// userData, target.
	Attributes map[string]interface{}
	// Path is the expected or produced local artifact.
	Path string
	// URL is set instead of Path for URL-type outputs.
	URL string
	// Index is the zero-based step position, used for naming.
	Index int
}

// NewRendition wraps an instruction bag; a nil bag is allocated.
func NewRendition(attrs map[string]interface{}, index int) *Rendition {
	if attrs == nil {
		attrs = map[string]interface{}{}
	}

	return &Rendition{Attributes: attrs, Index: index}
}

// Clone returns a deep copy of the rendition.
func (r *Rendition) Clone() *Rendition {
	return &Rendition{
		Attributes: maputil.DeepCopyMap(r.Attributes),
		Path:       r.Path,
		URL:        r.URL,
		Index:      r.Index,
	}
}

// Type returns the requested MIME-like type token, or "".
func (r *Rendition) Type() string {
	t, _ := maputil.GetString(r.Attributes, manifest.AttrType)

	return t
}

// Target returns the upload destination: a single URL string, a
// {urls: [...]} multipart object, or nil when no upload is requested.
func (r *Rendition) Target() interface{} {
	return r.Attributes[KeyTarget]
}

// TargetURLs flattens the target into its URL list: a string target yields
// one URL, a multipart target yields its urls array.
func (r *Rendition) TargetURLs() []string {
	switch t := r.Target().(type) {
	case string:
		if t == "" {
			return nil
		}

		return []string{t}
	case map[string]interface{}:
		raw, _ := t["urls"].([]interface{})

		urls := make([]string, 0, len(raw))
		for _, u := range raw {
			if s, ok := u.(string); ok && s != "" {
				urls = append(urls, s)
			}
		}

		return urls
	default:
		return nil
	}
}

// UserData returns the instruction's userData bag, or nil.
func (r *Rendition) UserData() map[string]interface{} {
	ud, _ := maputil.GetMap(r.Attributes, manifest.KeyUserData)

	return ud
}

// Exists reports whether the artifact was produced: a URL-type output with
// its url set, or a regular file at the rendition path.
func (r *Rendition) Exists() bool {
	if r.URL != "" {
		return true
	}

	if r.Path == "" {
		return false
	}

	info, err := os.Stat(r.Path)

	return err == nil && info.Mode().IsRegular()
}

// Size returns the artifact's byte size from disk.
func (r *Rendition) Size() (int64, error) {
	info, err := os.Stat(r.Path)
	if err != nil {
		return 0, err
	}

	return info.Size(), nil
}

// Name returns the artifact's conventional file name.
func (r *Rendition) Name() string {
	return "rendition" + ExtensionForType(r.Type())
}
