package sourcemap

import (
	"fmt"
	"path"

	gosourcemap "github.com/go-sourcemap/sourcemap"
)

// Compose traces every segment of next back through upstream, producing a
// map from next's generated code to upstream's original sources. Segments
// whose position upstream cannot resolve are dropped.
func Compose(upstream []byte, next *Map) (*Map, error) {
	if next == nil {
		return nil, fmt.Errorf("compose: missing map")
	}

	consumer, err := gosourcemap.Parse("", upstream)
	if err != nil {
		return nil, fmt.Errorf("compose: parse upstream map: %w", err)
	}

	lines, err := next.Segments()
	if err != nil {
		return nil, fmt.Errorf("compose: decode map: %w", err)
	}

	sources := newIndex()
	names := newIndex()
	composed := make([][]Segment, len(lines))

	for i, line := range lines {
		for _, seg := range line {
			if !seg.HasSource() {
				continue
			}

			// The consumer works with one-based lines and zero-based columns.
			source, name, origLine, origColumn, ok := consumer.Source(seg.SourceLine+1, seg.SourceColumn)
			if !ok {
				continue
			}

			traced := Segment{
				GenColumn:    seg.GenColumn,
				SourceIndex:  sources.add(source),
				SourceLine:   origLine - 1,
				SourceColumn: origColumn,
				NameIndex:    -1,
			}

			if name != "" {
				traced.NameIndex = names.add(name)
			}

			composed[i] = append(composed[i], traced)
		}
	}

	out := New(next.File, sources.values, names.values, composed)
	out.SourcesContent = composedContent(upstream, next, sources.values)

	return out, nil
}

// composedContent returns the sourcesContent for the composed sources,
// preferring upstream's text and falling back to next's for a source both
// maps name. It is nil when no content is known.
func composedContent(upstream []byte, next *Map, sources []string) []string {
	contents := make(map[string]string)

	collect := func(sm *Map) {
		for i, source := range sm.Sources {
			if i >= len(sm.SourcesContent) || sm.SourcesContent[i] == "" {
				continue
			}

			for _, key := range []string{source, path.Join(sm.SourceRoot, source)} {
				if _, ok := contents[key]; !ok {
					contents[key] = sm.SourcesContent[i]
				}
			}
		}
	}

	if parsed, err := Parse(upstream); err == nil {
		collect(parsed)
	}

	collect(next)

	out := make([]string, len(sources))
	known := false

	for i, source := range sources {
		if content, ok := contents[source]; ok {
			out[i] = content
			known = true
		}
	}

	if !known {
		return nil
	}

	return out
}

type index struct {
	positions map[string]int
	values    []string
}

func newIndex() *index {
	return &index{positions: make(map[string]int), values: []string{}}
}

func (x *index) add(value string) int {
	if pos, ok := x.positions[value]; ok {
		return pos
	}

	x.positions[value] = len(x.values)
	x.values = append(x.values, value)

	return len(x.values) - 1
}
