package controller

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	m "workerlink.dev/pkg/workerlink/internal/model"
)

// SimpleUI implements UI by printing to the cobra command's output.
type SimpleUI struct {
	out   io.Writer
	color bool
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command, options ...Option) *SimpleUI {
	cfg := uiConfig{}
	for _, opt := range options {
		opt(&cfg)
	}

	out := cmd.OutOrStdout()

	color := cfg.color
	if !cfg.colorSet {
		color = IsTTY(out)
	}

	return &SimpleUI{out: out, color: color}
}

// DisplayScan prints the worker call sites found in each file.
func (s *SimpleUI) DisplayScan(ctx context.Context, results []m.FileMatches, format OutputFormat) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sorted := sortFileMatches(results)

	switch format {
	case FormatYAML:
		out, err := renderScanYAML(sorted)
		if err != nil {
			return err
		}

		s.printf("%s", out)
	case FormatTable, "":
		s.printf("\n%s", renderScanTable(sorted))
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	return nil
}

type scanRecord struct {
	Path    string      `yaml:"path"`
	Matches []scanMatch `yaml:"matches"`
}

type scanMatch struct {
	Line      int    `yaml:"line"`
	Column    int    `yaml:"column"`
	Kind      string `yaml:"kind"`
	Specifier string `yaml:"specifier"`
	Options   string `yaml:"options,omitempty"`
}

func renderScanYAML(results []m.FileMatches) (string, error) {
	records := make([]scanRecord, 0, len(results))

	for _, file := range results {
		record := scanRecord{Path: string(file.Path), Matches: make([]scanMatch, 0, len(file.Matches))}

		for _, match := range file.Matches {
			record.Matches = append(record.Matches, scanMatch{
				Line:      match.Line,
				Column:    match.Column,
				Kind:      match.Kind.String(),
				Specifier: match.Specifier,
				Options:   match.Options,
			})
		}

		records = append(records, record)
	}

	out, err := yaml.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshal scan results: %w", err)
	}

	return string(out), nil
}

func renderScanTable(results []m.FileMatches) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Path", "Position", "Kind", "Specifier", "Options"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
	})

	filesCount := 0
	matchesCount := 0

	for _, file := range results {
		if len(file.Matches) == 0 {
			continue
		}

		filesCount++

		for _, match := range file.Matches {
			table.Append([]string{
				string(file.Path),
				fmt.Sprintf("%d:%d", match.Line, match.Column),
				match.Kind.String(),
				match.Specifier,
				match.Options,
			})

			matchesCount++
		}
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", filesCount),
		"",
		"",
		fmt.Sprintf("Call Sites %d", matchesCount),
		"",
	})

	table.Render()

	return tableBuffer.String()
}

func sortFileMatches(results []m.FileMatches) []m.FileMatches {
	sorted := make([]m.FileMatches, len(results))
	copy(sorted, results)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	return sorted
}

// DisplayTransform prints the rewritten code of path, or a unified diff
// against the original when showDiff is set. A nil result prints the
// original unchanged, or nothing in diff mode.
func (s *SimpleUI) DisplayTransform(ctx context.Context, path m.Path, original string, result *m.TransformResult, showDiff bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	code := original
	if result != nil {
		code = result.Code
	}

	if !showDiff {
		s.printf("%s", code)
		return nil
	}

	diff, err := UnifiedDiff(string(path), original, code)
	if err != nil {
		return err
	}

	if s.color {
		diff = colorizeDiff(diff)
	}

	s.printf("%s", diff)

	return nil
}

// DisplayModule prints a synthesized module body.
func (s *SimpleUI) DisplayModule(ctx context.Context, id string, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s\n", s.style(headerStyle.Render, "// "+id))
	s.printf("%s", body)

	return nil
}

// DisplayBuild prints the files a bundler run wrote, followed by its
// warnings and errors.
func (s *SimpleUI) DisplayBuild(ctx context.Context, summary BuildSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(summary.Outputs) > 0 {
		var tableBuffer bytes.Buffer

		table := tablewriter.NewWriter(&tableBuffer)
		table.SetHeader([]string{"Output", "Bytes"})
		table.SetBorder(false)
		table.SetCenterSeparator("")
		table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

		total := 0

		for _, out := range summary.Outputs {
			table.Append([]string{out.Path, fmt.Sprintf("%d", out.Size)})
			total += out.Size
		}

		table.SetFooter([]string{fmt.Sprintf("Total Outputs %d", len(summary.Outputs)), fmt.Sprintf("%d", total)})
		table.Render()

		s.printf("\n%s", tableBuffer.String())
	}

	for _, warning := range summary.Warnings {
		s.printf("%s\n", s.style(warnStyle.Render, "warning: "+warning))
	}

	for _, msg := range summary.Errors {
		s.printf("%s\n", s.style(removedStyle.Render, "error: "+msg))
	}

	return nil
}

func (s *SimpleUI) style(render func(...string) string, text string) string {
	if !s.color {
		return text
	}

	return render(text)
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}
