// Package sourcemap models version 3 source maps: the JSON document, the
// VLQ-encoded mappings string, and composition with an upstream map.
package sourcemap

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Version is the only source map revision this package reads or writes.
const Version = 3

// Map is a version 3 source map document.
type Map struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	SourceRoot     string   `json:"sourceRoot,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// Segment is a single decoded mapping. Lines and columns are zero-based,
// columns are measured in UTF-16 code units. SourceIndex is -1 for a
// segment without an original position and NameIndex is -1 when no name is
// attached.
type Segment struct {
	GenColumn    int
	SourceIndex  int
	SourceLine   int
	SourceColumn int
	NameIndex    int
}

// HasSource reports whether the segment points into an original source.
func (s Segment) HasSource() bool {
	return s.SourceIndex >= 0
}

// New builds a map from decoded per-line segments.
func New(file string, sources, names []string, lines [][]Segment) *Map {
	if sources == nil {
		sources = []string{}
	}

	if names == nil {
		names = []string{}
	}

	return &Map{
		Version:  Version,
		File:     file,
		Sources:  sources,
		Names:    names,
		Mappings: EncodeMappings(lines),
	}
}

// Parse decodes a JSON source map and validates its version.
func Parse(data []byte) (*Map, error) {
	var sm Map
	if err := json.Unmarshal(data, &sm); err != nil {
		return nil, fmt.Errorf("decode source map: %w", err)
	}

	if sm.Version != Version {
		return nil, fmt.Errorf("unsupported source map version %d", sm.Version)
	}

	return &sm, nil
}

// Segments decodes the mappings string of the map.
func (sm *Map) Segments() ([][]Segment, error) {
	return DecodeMappings(sm.Mappings)
}

// JSON encodes the map.
func (sm *Map) JSON() ([]byte, error) {
	return json.Marshal(sm)
}

// String returns the JSON form, or an empty string if encoding fails.
func (sm *Map) String() string {
	data, err := sm.JSON()
	if err != nil {
		return ""
	}

	return string(data)
}

// DataURL returns the map as a base64 data URL suitable for an inline
// sourceMappingURL comment.
func (sm *Map) DataURL() (string, error) {
	data, err := sm.JSON()
	if err != nil {
		return "", err
	}

	return "data:application/json;charset=utf-8;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Comment returns a trailing `//# sourceMappingURL=` line carrying the map inline.
func (sm *Map) Comment() (string, error) {
	url, err := sm.DataURL()
	if err != nil {
		return "", err
	}

	return "\n//# sourceMappingURL=" + url + "\n", nil
}

// EncodeMappings serialises per-line segments. Generated columns are relative
// within a line; every other field is relative to the previous segment in the
// whole map.
func EncodeMappings(lines [][]Segment) string {
	var (
		buf        []byte
		prevSource int
		prevLine   int
		prevColumn int
		prevName   int
	)

	for i, line := range lines {
		if i > 0 {
			buf = append(buf, ';')
		}

		prevGenColumn := 0

		for j, seg := range line {
			if j > 0 {
				buf = append(buf, ',')
			}

			buf = AppendVLQ(buf, seg.GenColumn-prevGenColumn)
			prevGenColumn = seg.GenColumn

			if !seg.HasSource() {
				continue
			}

			buf = AppendVLQ(buf, seg.SourceIndex-prevSource)
			buf = AppendVLQ(buf, seg.SourceLine-prevLine)
			buf = AppendVLQ(buf, seg.SourceColumn-prevColumn)
			prevSource, prevLine, prevColumn = seg.SourceIndex, seg.SourceLine, seg.SourceColumn

			if seg.NameIndex >= 0 {
				buf = AppendVLQ(buf, seg.NameIndex-prevName)
				prevName = seg.NameIndex
			}
		}
	}

	return string(buf)
}

// DecodeMappings parses a mappings string into per-line segments.
func DecodeMappings(mappings string) ([][]Segment, error) {
	var (
		lines      [][]Segment
		prevSource int
		prevLine   int
		prevColumn int
		prevName   int
	)

	for lineIndex, rawLine := range strings.Split(mappings, ";") {
		var segments []Segment

		prevGenColumn := 0

		for _, raw := range strings.Split(rawLine, ",") {
			if raw == "" {
				continue
			}

			fields, err := decodeFields(raw)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineIndex, err)
			}

			seg := Segment{SourceIndex: -1, NameIndex: -1}
			prevGenColumn += fields[0]
			seg.GenColumn = prevGenColumn

			switch len(fields) {
			case 1:
			case 4, 5:
				prevSource += fields[1]
				prevLine += fields[2]
				prevColumn += fields[3]
				seg.SourceIndex, seg.SourceLine, seg.SourceColumn = prevSource, prevLine, prevColumn

				if len(fields) == 5 {
					prevName += fields[4]
					seg.NameIndex = prevName
				}
			default:
				return nil, fmt.Errorf("line %d: segment %q has %d fields", lineIndex, raw, len(fields))
			}

			segments = append(segments, seg)
		}

		lines = append(lines, segments)
	}

	return lines, nil
}

func decodeFields(raw string) ([]int, error) {
	fields := make([]int, 0, 5)

	for len(raw) > 0 {
		value, n, err := DecodeVLQ(raw)
		if err != nil {
			return nil, err
		}

		fields = append(fields, value)
		raw = raw[n:]
	}

	return fields, nil
}
