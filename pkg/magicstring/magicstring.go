// Package magicstring records text splices against an original string and
// renders both the edited text and a source map that points every unchanged
// region back to its original position.
package magicstring

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"workerlink.dev/pkg/workerlink/pkg/sourcemap"
)

// ErrInvalidEdit is returned for out-of-range or overlapping splices.
var ErrInvalidEdit = errors.New("invalid edit")

type overwrite struct {
	start   int
	end     int
	content string
}

type insertion struct {
	index   int
	content string
}

// MagicString is a splice buffer over an immutable original text. All
// offsets are byte offsets into the original, so recording one edit never
// shifts the offsets of another.
type MagicString struct {
	original   string
	overwrites []overwrite
	insertions []insertion
}

// MapOptions controls source map generation.
type MapOptions struct {
	// Source is the name recorded in the map's sources list.
	Source string
	// File is the name of the generated file.
	File string
	// IncludeContent embeds the original text as sourcesContent.
	IncludeContent bool
	// Hires emits a segment for every character of unchanged text instead of
	// one per line.
	Hires bool
}

// New wraps original.
func New(original string) *MagicString {
	return &MagicString{original: original}
}

// Original returns the unedited text.
func (s *MagicString) Original() string {
	return s.original
}

// HasChanged reports whether any edit has been recorded.
func (s *MagicString) HasChanged() bool {
	return len(s.overwrites) > 0 || len(s.insertions) > 0
}

// Overwrite replaces original[start:end] with content.
func (s *MagicString) Overwrite(start, end int, content string) error {
	if start < 0 || end > len(s.original) || start >= end {
		return fmt.Errorf("%w: range [%d, %d) outside [0, %d)", ErrInvalidEdit, start, end, len(s.original))
	}

	for _, ow := range s.overwrites {
		if start < ow.end && ow.start < end {
			return fmt.Errorf("%w: range [%d, %d) overlaps [%d, %d)", ErrInvalidEdit, start, end, ow.start, ow.end)
		}
	}

	for _, ins := range s.insertions {
		if ins.index > start && ins.index < end {
			return fmt.Errorf("%w: range [%d, %d) swallows insertion at %d", ErrInvalidEdit, start, end, ins.index)
		}
	}

	s.overwrites = append(s.overwrites, overwrite{start: start, end: end, content: content})
	sort.SliceStable(s.overwrites, func(i, j int) bool {
		return s.overwrites[i].start < s.overwrites[j].start
	})

	return nil
}

// AppendLeft inserts content at index. Repeated insertions at the same index
// keep their call order.
func (s *MagicString) AppendLeft(index int, content string) error {
	if index < 0 || index > len(s.original) {
		return fmt.Errorf("%w: index %d outside [0, %d]", ErrInvalidEdit, index, len(s.original))
	}

	for _, ow := range s.overwrites {
		if index > ow.start && index < ow.end {
			return fmt.Errorf("%w: index %d falls inside overwritten range [%d, %d)", ErrInvalidEdit, index, ow.start, ow.end)
		}
	}

	s.insertions = append(s.insertions, insertion{index: index, content: content})
	sort.SliceStable(s.insertions, func(i, j int) bool {
		return s.insertions[i].index < s.insertions[j].index
	})

	return nil
}

// Prepend inserts content at the very start of the text.
func (s *MagicString) Prepend(content string) error {
	return s.AppendLeft(0, content)
}

// String renders the edited text.
func (s *MagicString) String() string {
	var b strings.Builder

	b.Grow(len(s.original))

	s.walk(func(p piece) {
		b.WriteString(p.text)
	})

	return b.String()
}

type pieceKind int

const (
	pieceOriginal pieceKind = iota
	pieceOverwrite
	pieceInsert
)

type piece struct {
	kind  pieceKind
	text  string
	start int // original offset the piece maps to
}

// walk visits the output in order: insertions at an offset come before the
// original or overwritten text starting there.
func (s *MagicString) walk(visit func(piece)) {
	pos := 0
	ins := 0

	flushInsertions := func(upTo int) {
		for ins < len(s.insertions) && s.insertions[ins].index <= upTo {
			visit(piece{kind: pieceInsert, text: s.insertions[ins].content, start: s.insertions[ins].index})
			ins++
		}
	}

	emitOriginal := func(from, to int) {
		for from < to {
			flushInsertions(from)

			next := to
			if ins < len(s.insertions) && s.insertions[ins].index < to {
				next = s.insertions[ins].index
			}

			visit(piece{kind: pieceOriginal, text: s.original[from:next], start: from})
			from = next
		}
	}

	for _, ow := range s.overwrites {
		emitOriginal(pos, ow.start)
		flushInsertions(ow.start)
		visit(piece{kind: pieceOverwrite, text: ow.content, start: ow.start})
		pos = ow.end
	}

	emitOriginal(pos, len(s.original))
	flushInsertions(len(s.original))
}

// GenerateMap builds a source map for the edited text. Each splice is
// recorded individually: unchanged text maps to its original location,
// overwritten text maps every generated line to the start of the replaced
// range, and inserted text is unmapped.
func (s *MagicString) GenerateMap(opts MapOptions) *sourcemap.Map {
	locator := newLocator(s.original)
	builder := &mapBuilder{lines: [][]sourcemap.Segment{nil}}

	s.walk(func(p piece) {
		switch p.kind {
		case pieceInsert:
			builder.advance(p.text)
		case pieceOverwrite:
			line, column := locator.locate(p.start)
			builder.addEdit(p.text, line, column)
		case pieceOriginal:
			line, column := locator.locate(p.start)
			builder.addUnedited(p.text, line, column, opts.Hires)
		}
	})

	sm := sourcemap.New(opts.File, []string{opts.Source}, nil, builder.lines)
	if opts.IncludeContent {
		sm.SourcesContent = []string{s.original}
	}

	return sm
}

type mapBuilder struct {
	lines  [][]sourcemap.Segment
	column int
}

func (b *mapBuilder) add(line, column int) {
	last := len(b.lines) - 1
	b.lines[last] = append(b.lines[last], sourcemap.Segment{
		GenColumn:    b.column,
		SourceIndex:  0,
		SourceLine:   line,
		SourceColumn: column,
		NameIndex:    -1,
	})
}

func (b *mapBuilder) newline() {
	b.lines = append(b.lines, nil)
	b.column = 0
}

func (b *mapBuilder) advance(text string) {
	for _, r := range text {
		if r == '\n' {
			b.newline()
			continue
		}

		b.column += utf16Len(r)
	}
}

func (b *mapBuilder) addEdit(content string, line, column int) {
	if content == "" {
		return
	}

	atLineStart := true

	for i, r := range content {
		if r == '\n' {
			b.newline()

			atLineStart = i+1 < len(content)

			continue
		}

		if atLineStart {
			b.add(line, column)
			atLineStart = false
		}

		b.column += utf16Len(r)
	}
}

func (b *mapBuilder) addUnedited(text string, line, column int, hires bool) {
	first := true

	for _, r := range text {
		if r == '\n' {
			line++
			column = 0

			b.newline()

			first = true

			continue
		}

		if first || hires {
			b.add(line, column)
		}

		width := utf16Len(r)
		column += width
		b.column += width
		first = false
	}
}

// locator converts byte offsets of the original into zero-based line and
// UTF-16 column positions.
type locator struct {
	text       string
	lineStarts []int
}

func newLocator(text string) *locator {
	starts := []int{0}

	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}

	return &locator{text: text, lineStarts: starts}
}

func (l *locator) locate(offset int) (int, int) {
	line := sort.Search(len(l.lineStarts), func(i int) bool {
		return l.lineStarts[i] > offset
	}) - 1

	column := 0
	for _, r := range l.text[l.lineStarts[line]:offset] {
		column += utf16Len(r)
	}

	return line, column
}

func utf16Len(r rune) int {
	if r == utf8.RuneError || r < 0x10000 {
		return 1
	}

	return 2
}
