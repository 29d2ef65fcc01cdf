// Package controller provides output adapters for displaying rewrite results.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "workerlink.dev/pkg/workerlink/internal/model"
)

// OutputFormat selects how scan results are rendered.
type OutputFormat string

// Available OutputFormat values.
const (
	FormatTable OutputFormat = "table"
	FormatYAML  OutputFormat = "yaml"
)

// ParseOutputFormat validates a user supplied format name.
func ParseOutputFormat(name string) (OutputFormat, bool) {
	switch f := OutputFormat(name); f {
	case FormatTable, FormatYAML:
		return f, true
	case "":
		return FormatTable, true
	default:
		return "", false
	}
}

// NewUI returns the UI for cmd: a pager-backed TUI when interactive is
// set, plain printing otherwise.
func NewUI(cmd *cobra.Command, interactive bool, options ...Option) UI {
	if interactive {
		return NewTUI(cmd, options...)
	}

	return NewSimpleUI(cmd, options...)
}

// Option is a functional option for NewSimpleUI and NewTUI.
type Option func(*uiConfig)

type uiConfig struct {
	color    bool
	colorSet bool
	height   int
	input    io.Reader
}

// WithColor forces styled output on or off. By default output is styled
// only when it goes to a terminal.
func WithColor(enabled bool) Option {
	return func(c *uiConfig) {
		c.color = enabled
		c.colorSet = true
	}
}

// WithHeight fixes the screen height the TUI pages against instead of
// asking the terminal.
func WithHeight(lines int) Option {
	return func(c *uiConfig) {
		c.height = lines
	}
}

// WithInput sets the reader the TUI pager takes keys from.
func WithInput(r io.Reader) Option {
	return func(c *uiConfig) {
		c.input = r
	}
}

// BuildOutput is one file written by a bundler run.
type BuildOutput struct {
	Path string
	Size int
}

// BuildSummary is what a bundler run produced.
type BuildSummary struct {
	Outputs  []BuildOutput
	Warnings []string
	Errors   []string
}

// UI defines the interface for displaying command results.
// Implementations can use different output methods.
type UI interface {
	DisplayScan(ctx context.Context, results []m.FileMatches, format OutputFormat) error
	DisplayTransform(ctx context.Context, path m.Path, original string, result *m.TransformResult, showDiff bool) error
	DisplayModule(ctx context.Context, id string, body string) error
	DisplayBuild(ctx context.Context, summary BuildSummary) error
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
