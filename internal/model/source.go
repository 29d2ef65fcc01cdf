// Package model defines the value types shared by the rewriter, the virtual
// module providers and the host bindings.
package model

// Path represents a file system path or a module identifier.
type Path string

// WorkerKind distinguishes dedicated workers from shared workers.
type WorkerKind string

const (
	// KindDedicated is a worker owned by a single context (`new Worker`).
	KindDedicated WorkerKind = "dedicated"

	// KindShared is a worker shared by every connecting context
	// (`new SharedWorker`), reached through its port.
	KindShared WorkerKind = "shared"
)

// String implements fmt.Stringer.
func (k WorkerKind) String() string {
	return string(k)
}

// Match is one located occurrence of a worker-construction expression.
// Offsets are byte offsets into the scanned text; Line and Column are
// one-based.
type Match struct {
	Start     int
	End       int
	Line      int
	Column    int
	Kind      WorkerKind
	Literal   string // module specifier including its quote delimiters
	Specifier string // module specifier without delimiters
	Options   string // raw options literal, empty when absent
}

// Quote returns the delimiter used by the module specifier literal.
func (m Match) Quote() byte {
	if m.Literal == "" {
		return 0
	}

	return m.Literal[0]
}

// FileMatches groups the matches found in a single file.
type FileMatches struct {
	Path    Path
	Matches []Match
}
