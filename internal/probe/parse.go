package probe

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
)

// parseExiftool normalizes the single-record JSON array exiftool emits.
func parseExiftool(out []byte, path string) (map[string]interface{}, error) {
	var records []map[string]interface{}
	if err := json.Unmarshal(out, &records); err != nil {
		return nil, fmt.Errorf("decoding exiftool output: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("exiftool returned no records")
	}

	rec := records[0]
	meta := map[string]interface{}{}

	fileType, _ := rec["FileType"].(string)
	mime, _ := rec["MIMEType"].(string)

	if typ := normalizeType(fileType, mime, path); typ != "" {
		meta[manifest.AttrType] = typ
	}

	width, wok := dimensionField(rec["ImageWidth"])
	height, hok := dimensionField(rec["ImageHeight"])

	if !wok || !hok {
		if s, ok := rec["ImageSize"].(string); ok {
			width, height, wok = parseImageSize(s)
			hok = wok
		}
	}

	if wok && hok {
		meta[manifest.AttrWidth] = width
		meta[manifest.AttrHeight] = height
	}

	if o, ok := numberField(rec["Orientation"]); ok {
		meta[manifest.AttrOrientation] = o
	}

	if len(meta) == 0 {
		return nil, fmt.Errorf("exiftool record carried no usable fields")
	}

	return meta, nil
}

// parseIdentify normalizes "width height FORMAT" from ImageMagick.
func parseIdentify(out []byte) (map[string]interface{}, error) {
	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) < 3 {
		return nil, fmt.Errorf("unexpected identify output %q", strings.TrimSpace(string(out)))
	}

	width, werr := strconv.ParseFloat(fields[0], 64)
	height, herr := strconv.ParseFloat(fields[1], 64)

	if werr != nil || herr != nil {
		return nil, fmt.Errorf("unexpected identify dimensions %q", strings.TrimSpace(string(out)))
	}

	meta := map[string]interface{}{
		manifest.AttrWidth:  width,
		manifest.AttrHeight: height,
	}

	if typ, ok := identifyTypes[strings.ToUpper(fields[2])]; ok {
		meta[manifest.AttrType] = typ
	}

	return meta, nil
}

// mediaInfoOutput is the JSON shape of `mediainfo --Output=JSON`.
type mediaInfoOutput struct {
	Media struct {
		Track []map[string]interface{} `json:"track"`
	} `json:"media"`
}

// parseMediaInfo normalizes the General plus Video/Audio/Image tracks.
func parseMediaInfo(out []byte) (map[string]interface{}, error) {
	var decoded mediaInfoOutput
	if err := json.Unmarshal(out, &decoded); err != nil {
		return nil, fmt.Errorf("decoding mediainfo output: %w", err)
	}

	if len(decoded.Media.Track) == 0 {
		return nil, fmt.Errorf("mediainfo returned no tracks")
	}

	meta := map[string]interface{}{}

	for _, track := range decoded.Media.Track {
		trackType, _ := track["@type"].(string)

		switch trackType {
		case "General":
			if mime, ok := track["InternetMediaType"].(string); ok && mime != "" {
				meta[manifest.AttrType] = mime
			}

			if d, ok := numberField(track["Duration"]); ok {
				meta["duration"] = d
			}
		case "Video", "Image":
			if w, ok := numberField(track["Width"]); ok {
				meta[manifest.AttrWidth] = w
			}

			if h, ok := numberField(track["Height"]); ok {
				meta[manifest.AttrHeight] = h
			}
		}
	}

	if len(meta) == 0 {
		return nil, fmt.Errorf("mediainfo tracks carried no usable fields")
	}

	return meta, nil
}

// identifyTypes maps ImageMagick format names to type tokens.
var identifyTypes = map[string]string{
	"PNG":  "image/png",
	"JPEG": "image/jpeg",
	"JPG":  "image/jpeg",
	"GIF":  "image/gif",
	"TIFF": "image/tiff",
	"BMP":  "image/bmp",
	"WEBP": "image/webp",
	"SVG":  "image/svg+xml",
	"PSD":  "image/vnd.adobe.photoshop",
}

// normalizeType picks the type token for an exiftool record. SVG files are
// reported by exiftool as XMP documents; correct them to their real type.
func normalizeType(fileType, mime, path string) string {
	if strings.EqualFold(fileType, "XMP") && strings.EqualFold(filepath.Ext(path), ".svg") {
		return "image/svg+xml"
	}

	return mime
}

// dimensionField parses an exiftool dimension: plain numbers or values with
// a physical unit suffix, normalized to pixels at 72 dpi.
func dimensionField(v interface{}) (float64, bool) {
	switch d := v.(type) {
	case float64:
		return d, true
	case string:
		return parseDimension(d)
	default:
		return 0, false
	}
}

// numberField parses a numeric field that may arrive as a JSON number or a
// decimal string.
func numberField(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)

		return f, err == nil
	default:
		return 0, false
	}
}

// unitFactors converts physical units to pixels at 72 dpi.
var unitFactors = map[string]float64{
	"px": 1,
	"pt": 1,
	"in": 72,
	"cm": 72 / 2.54,
	"mm": 72 / 25.4,
	"pc": 12,
}

// parseDimension parses "210mm", "8.5in", or a bare number.
func parseDimension(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	for unit, factor := range unitFactors {
		if !strings.HasSuffix(s, unit) {
			continue
		}

		n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, unit)), 64)
		if err != nil {
			return 0, false
		}

		return n * factor, true
	}

	n, err := strconv.ParseFloat(s, 64)

	return n, err == nil
}

// parseImageSize splits exiftool's "WxH" composite, each side possibly
// carrying a unit.
func parseImageSize(s string) (float64, float64, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}

	w, wok := parseDimension(parts[0])
	h, hok := parseDimension(parts[1])

	return w, h, wok && hok
}
