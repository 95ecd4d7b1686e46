package pipeline

import (
	"net/url"
	"path"
	"strings"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
)

// Instance-bag keys that carry transport state rather than capability
// attributes.
const (
	KeyURL     = "url"
	KeyPath    = "path"
	KeySize    = "size"
	KeyTarget  = "target"
	KeyHeaders = "headers"
	KeyAuth    = "auth"
)

// Source is a step input: an attribute bag describing the asset plus its
// current materialization (url and/or local path).
type Source struct {
	// Attributes is the instance bag: type, dimensions, url, path,
	// sourceType, headers, features, userData.
	Attributes map[string]interface{}
}

// NewSource wraps an attribute bag; a nil bag is allocated.
func NewSource(attrs map[string]interface{}) *Source {
	if attrs == nil {
		attrs = map[string]interface{}{}
	}

	return &Source{Attributes: attrs}
}

// Clone returns a deep copy of the source.
func (s *Source) Clone() *Source {
	return &Source{Attributes: maputil.DeepCopyMap(s.Attributes)}
}

// Type returns the MIME-like type token, or "".
func (s *Source) Type() string {
	t, _ := maputil.GetString(s.Attributes, manifest.AttrType)

	return t
}

// URL returns the remote reference, or "".
func (s *Source) URL() string {
	u, _ := maputil.GetString(s.Attributes, KeyURL)

	return u
}

// SetURL replaces the remote reference.
func (s *Source) SetURL(u string) { s.Attributes[KeyURL] = u }

// Path returns the local file path, or "".
func (s *Source) Path() string {
	p, _ := maputil.GetString(s.Attributes, KeyPath)

	return p
}

// SetPath replaces the local file path.
func (s *Source) SetPath(p string) { s.Attributes[KeyPath] = p }

// SourceType returns the declared materialization mode; LOCAL is the
// default when unset.
func (s *Source) SourceType() string {
	st, ok := maputil.GetString(s.Attributes, manifest.AttrSourceType)
	if !ok || st == "" {
		return manifest.SourceTypeLocal
	}

	return st
}

// Size returns the known byte size, if any.
func (s *Source) Size() (int64, bool) {
	n, ok := maputil.GetNumber(s.Attributes, KeySize)
	if !ok {
		return 0, false
	}

	return int64(n), true
}

// SetSize records the byte size.
func (s *Source) SetSize(n int64) { s.Attributes[KeySize] = float64(n) }

// Headers returns request headers for downloads, or nil.
func (s *Source) Headers() map[string]interface{} {
	h, _ := maputil.GetMap(s.Attributes, KeyHeaders)

	return h
}

// Filename derives a local file name for the source: the base name of its
// path, else of its URL path, else "source" plus an extension implied by
// the type token.
func (s *Source) Filename() string {
	if p := s.Path(); p != "" {
		return path.Base(p)
	}

	if raw := s.URL(); raw != "" && !strings.HasPrefix(raw, "data:") {
		if u, err := url.Parse(raw); err == nil {
			if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
				return base
			}
		}
	}

	return "source" + ExtensionForType(s.Type())
}

// ExtensionForType maps a type token to a file extension (with dot), or ""
// when no extension is implied.
func ExtensionForType(typ string) string {
	sub := typ
	if i := strings.LastIndex(typ, "/"); i >= 0 {
		sub = typ[i+1:]
	}

	switch sub {
	case "":
		return ""
	case "jpeg":
		return ".jpg"
	case "svg+xml":
		return ".svg"
	case "quicktime":
		return ".mov"
	case "mpeg":
		return ".mp3"
	case "x-wav", "wav":
		return ".wav"
	case "vnd.adobe.photoshop":
		return ".psd"
	case "gltf-binary":
		return ".glb"
	default:
		if strings.ContainsAny(sub, ".+-") {
			return ""
		}

		return "." + sub
	}
}
