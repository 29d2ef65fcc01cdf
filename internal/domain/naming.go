package domain

import (
	"strings"

	m "workerlink.dev/pkg/workerlink/internal/model"
)

const (
	// PrefixDedicated marks a synthesized dedicated-worker module identifier.
	PrefixDedicated = "internal:comlink:"
	// PrefixShared marks a synthesized shared-worker module identifier.
	PrefixShared = "internal:comlink-shared:"

	// LegacyPrefixDedicated is the deprecated `import w from 'comlink:./w'` form.
	LegacyPrefixDedicated = "comlink:"
	// LegacyPrefixShared is the deprecated shared-worker import form.
	LegacyPrefixShared = "comlink-shared:"

	// KeywordDedicated constructs a dedicated worker in application code.
	KeywordDedicated = "ComlinkWorker"
	// KeywordShared constructs a shared worker in application code.
	KeywordShared = "ComlinkSharedWorker"

	wrapIdentifier = "__comlink_wrap"
	importMetaURL  = "import.meta.url"
)

// PrefixFor returns the reserved prefix of kind.
func PrefixFor(kind m.WorkerKind) string {
	if kind == m.KindShared {
		return PrefixShared
	}

	return PrefixDedicated
}

// KeywordFor returns the trigger keyword of kind.
func KeywordFor(kind m.WorkerKind) string {
	if kind == m.KindShared {
		return KeywordShared
	}

	return KeywordDedicated
}

// SynthesizeID builds the virtual module identifier for a worker target.
func SynthesizeID(kind m.WorkerKind, target string) string {
	return PrefixFor(kind) + target
}

// ParseID recognises an identifier carrying a reserved prefix anywhere in it
// (hosts may prepend their own namespace) and returns the kind and the text
// after the prefix.
func ParseID(id string) (m.WorkerKind, string, bool) {
	// The shared prefix is checked first; the two prefixes never contain
	// each other, so order only matters for readability.
	if i := strings.Index(id, PrefixShared); i >= 0 {
		return m.KindShared, id[i+len(PrefixShared):], true
	}

	if i := strings.Index(id, PrefixDedicated); i >= 0 {
		return m.KindDedicated, id[i+len(PrefixDedicated):], true
	}

	return "", "", false
}

// ParseLegacyID recognises the deprecated import prefixes, which must lead
// the specifier.
func ParseLegacyID(id string) (m.WorkerKind, string, bool) {
	switch {
	case strings.HasPrefix(id, LegacyPrefixShared):
		return m.KindShared, id[len(LegacyPrefixShared):], true
	case strings.HasPrefix(id, LegacyPrefixDedicated):
		return m.KindDedicated, id[len(LegacyPrefixDedicated):], true
	default:
		return "", "", false
	}
}

// LegacyPrefixFor returns the deprecated import prefix of kind.
func LegacyPrefixFor(kind m.WorkerKind) string {
	if kind == m.KindShared {
		return LegacyPrefixShared
	}

	return LegacyPrefixDedicated
}

// quoteJS renders s as a single-quoted JavaScript string literal.
func quoteJS(s string) string {
	var b strings.Builder

	b.Grow(len(s) + 2)
	b.WriteByte('\'')

	for _, r := range s {
		if r == '\\' {
			b.WriteString(`\\`)
			continue
		}

		writeSingleQuoted(&b, r)
	}

	b.WriteByte('\'')

	return b.String()
}

// writeSingleQuoted writes r as it must appear inside a single-quoted
// literal. Backslashes are left to the caller.
func writeSingleQuoted(b *strings.Builder, r rune) {
	switch r {
	case '\'':
		b.WriteString(`\'`)
	case '\n':
		b.WriteString(`\n`)
	case '\r':
		b.WriteString(`\r`)
	case '\u2028':
		b.WriteString(`\u2028`)
	case '\u2029':
		b.WriteString(`\u2029`)
	default:
		b.WriteRune(r)
	}
}
