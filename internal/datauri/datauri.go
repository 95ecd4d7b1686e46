// Package datauri encodes and decodes RFC 2397 data URIs, the inline
// transport format accepted for sources and used to embed small renditions
// in success events.
package datauri

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

const prefix = "data:"

// Is reports whether s looks like a data URI.
func Is(s string) bool {
	return strings.HasPrefix(s, prefix)
}

// Parse decodes a data URI into its media type and payload. Both base64 and
// percent-encoded payloads are supported; a missing media type defaults to
// text/plain per RFC 2397.
func Parse(s string) (mediaType string, data []byte, err error) {
	if !Is(s) {
		return "", nil, fmt.Errorf("not a data uri: %q", truncate(s))
	}

	rest := s[len(prefix):]

	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return "", nil, fmt.Errorf("data uri missing comma separator: %q", truncate(s))
	}

	meta := rest[:comma]
	payload := rest[comma+1:]

	base64Encoded := false
	if strings.HasSuffix(meta, ";base64") {
		base64Encoded = true
		meta = strings.TrimSuffix(meta, ";base64")
	}

	mediaType = meta
	if i := strings.IndexByte(meta, ';'); i >= 0 {
		mediaType = meta[:i]
	}

	if mediaType == "" {
		mediaType = "text/plain"
	}

	if base64Encoded {
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("decoding base64 payload: %w", err)
		}

		return mediaType, data, nil
	}

	decoded, err := url.QueryUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decoding percent-encoded payload: %w", err)
	}

	return mediaType, []byte(decoded), nil
}

// Format encodes data as a base64 data URI with the given media type.
func Format(mediaType string, data []byte) string {
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	return prefix + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// truncate keeps error messages readable when the URI embeds a large
// payload.
func truncate(s string) string {
	const max = 64
	if len(s) <= max {
		return s
	}

	return s[:max] + "..."
}
