package domain

import (
	"strings"

	m "workerlink.dev/pkg/workerlink/internal/model"
)

// Scan finds every non-overlapping worker-construction expression in code:
//
//	new ComlinkWorker(new URL('./worker', import.meta.url) [, { options }])
//	new ComlinkSharedWorker<typeof import('./w')>(new URL(`./w`, import.meta.url))
//
// Whitespace, newlines and comments are allowed between tokens. Anything that
// does not match the whole shape is skipped and left for the host to handle.
func Scan(code string) []m.Match {
	if !ContainsTrigger(code) {
		return nil
	}

	var matches []m.Match

	for i := 0; i < len(code); {
		idx := strings.Index(code[i:], "new")
		if idx < 0 {
			break
		}

		start := i + idx
		if start > 0 && isIdentPart(code[start-1]) {
			i = start + len("new")
			continue
		}

		match, ok := scanAt(code, start)
		if !ok {
			i = start + len("new")
			continue
		}

		match.Line, match.Column = lineColumn(code, start)
		matches = append(matches, match)
		i = match.End
	}

	return matches
}

// ContainsTrigger is the fast-path check for either trigger keyword.
func ContainsTrigger(code string) bool {
	return strings.Contains(code, KeywordDedicated) || strings.Contains(code, KeywordShared)
}

func scanAt(code string, start int) (m.Match, bool) {
	c := &cursor{src: code, pos: start}

	if !c.word("new") || !c.requireSpace() {
		return m.Match{}, false
	}

	var kind m.WorkerKind

	switch {
	case c.word(KeywordShared):
		kind = m.KindShared
	case c.word(KeywordDedicated):
		kind = m.KindDedicated
	default:
		return m.Match{}, false
	}

	c.skipSpace()

	if c.peek() == '<' && !c.skipTypeArguments() {
		return m.Match{}, false
	}

	if !c.punct('(') {
		return m.Match{}, false
	}

	c.skipSpace()

	if !c.word("new") || !c.requireSpace() || !c.word("URL") {
		return m.Match{}, false
	}

	if !c.punct('(') {
		return m.Match{}, false
	}

	c.skipSpace()

	literal, ok := c.stringLiteral()
	if !ok {
		return m.Match{}, false
	}

	if !c.punct(',') {
		return m.Match{}, false
	}

	c.skipSpace()

	if !c.literal(importMetaURL) || !c.punct(')') {
		return m.Match{}, false
	}

	options := ""

	c.skipSpace()

	if c.peek() == ',' {
		c.pos++

		body, ok := c.untilCloseParen()
		if !ok {
			return m.Match{}, false
		}

		options = trimOptions(body)
	}

	if !c.punct(')') {
		return m.Match{}, false
	}

	return m.Match{
		Start:     start,
		End:       c.pos,
		Kind:      kind,
		Literal:   literal,
		Specifier: literal[1 : len(literal)-1],
		Options:   options,
	}, true
}

// trimOptions strips surrounding whitespace and one trailing argument comma.
func trimOptions(body string) string {
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, ",")

	return strings.TrimSpace(body)
}

type cursor struct {
	src string
	pos int
}

func (c *cursor) peek() byte {
	if c.pos >= len(c.src) {
		return 0
	}

	return c.src[c.pos]
}

// skipSpace skips whitespace and comments and reports whether anything was skipped.
func (c *cursor) skipSpace() bool {
	begin := c.pos

	for c.pos < len(c.src) {
		switch ch := c.src[c.pos]; {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v':
			c.pos++
		case strings.HasPrefix(c.src[c.pos:], "//"):
			end := strings.IndexByte(c.src[c.pos:], '\n')
			if end < 0 {
				c.pos = len(c.src)
			} else {
				c.pos += end
			}
		case strings.HasPrefix(c.src[c.pos:], "/*"):
			end := strings.Index(c.src[c.pos+2:], "*/")
			if end < 0 {
				c.pos = len(c.src)
			} else {
				c.pos += end + 4
			}
		default:
			return c.pos > begin
		}
	}

	return c.pos > begin
}

func (c *cursor) requireSpace() bool {
	return c.skipSpace()
}

// word consumes w when it is followed by a non-identifier character.
func (c *cursor) word(w string) bool {
	if !strings.HasPrefix(c.src[c.pos:], w) {
		return false
	}

	end := c.pos + len(w)
	if end < len(c.src) && isIdentPart(c.src[end]) {
		return false
	}

	c.pos = end

	return true
}

// literal consumes s exactly.
func (c *cursor) literal(s string) bool {
	if !strings.HasPrefix(c.src[c.pos:], s) {
		return false
	}

	c.pos += len(s)

	return true
}

// punct skips leading space and consumes ch.
func (c *cursor) punct(ch byte) bool {
	c.skipSpace()

	if c.peek() != ch {
		return false
	}

	c.pos++

	return true
}

// stringLiteral consumes a non-empty '…', "…" or `…` literal and returns it
// with its delimiters. Template literals are taken verbatim.
func (c *cursor) stringLiteral() (string, bool) {
	begin := c.pos

	end, ok := skipQuoted(c.src, c.pos)
	if !ok || end-begin <= 2 {
		return "", false
	}

	c.pos = end

	return c.src[begin:end], true
}

// skipTypeArguments skips a TypeScript `<...>` type argument list.
func (c *cursor) skipTypeArguments() bool {
	depth := 0

	for c.pos < len(c.src) {
		ch := c.src[c.pos]

		switch ch {
		case '<':
			depth++
			c.pos++
		case '>':
			depth--
			c.pos++

			if depth == 0 {
				return true
			}
		case '\'', '"', '`':
			end, ok := skipQuoted(c.src, c.pos)
			if !ok {
				return false
			}

			c.pos = end
		case ';', '{', '}':
			return false
		default:
			c.pos++
		}
	}

	return false
}

// untilCloseParen returns the text up to the parenthesis closing the current
// argument list, leaving the cursor on it. Quoted strings and comments are
// skipped so their parentheses do not count.
func (c *cursor) untilCloseParen() (string, bool) {
	begin := c.pos
	depth := 0

	for c.pos < len(c.src) {
		switch ch := c.src[c.pos]; ch {
		case '(', '[', '{':
			depth++
			c.pos++
		case ')', ']', '}':
			if depth == 0 {
				if ch != ')' {
					return "", false
				}

				return c.src[begin:c.pos], true
			}

			depth--
			c.pos++
		case '\'', '"', '`':
			end, ok := skipQuoted(c.src, c.pos)
			if !ok {
				return "", false
			}

			c.pos = end
		case '/':
			if !c.skipSpace() {
				c.pos++
			}
		default:
			c.pos++
		}
	}

	return "", false
}

// skipQuoted returns the offset just past the quoted literal starting at pos.
// Single and double quoted strings may not span lines.
func skipQuoted(src string, pos int) (int, bool) {
	if pos >= len(src) {
		return 0, false
	}

	quote := src[pos]
	if quote != '\'' && quote != '"' && quote != '`' {
		return 0, false
	}

	for i := pos + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '\n':
			if quote != '`' {
				return 0, false
			}
		case quote:
			return i + 1, true
		}
	}

	return 0, false
}

func isIdentPart(ch byte) bool {
	return ch == '_' || ch == '$' ||
		('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ('0' <= ch && ch <= '9') ||
		ch >= 0x80
}

// lineColumn converts a byte offset to a one-based line and column.
func lineColumn(src string, offset int) (int, int) {
	line := 1 + strings.Count(src[:offset], "\n")
	column := offset - strings.LastIndexByte(src[:offset], '\n')

	return line, column
}
