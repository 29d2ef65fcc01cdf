package controller

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pmezard/go-difflib/difflib"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#87CEEB"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD866"))
)

// UnifiedDiff renders the change from before to after as a unified diff with
// three lines of context. Identical inputs yield an empty string.
func UnifiedDiff(path, before, after string) (string, error) {
	if before == after {
		return "", nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + strings.TrimPrefix(path, "/"),
		ToFile:   "b/" + strings.TrimPrefix(path, "/"),
		Context:  3,
	}

	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", path, err)
	}

	return text, nil
}

// colorizeDiff styles each line of a unified diff by its marker.
func colorizeDiff(diff string) string {
	lines := strings.SplitAfter(diff, "\n")

	var b strings.Builder

	for _, line := range lines {
		body := strings.TrimSuffix(line, "\n")
		nl := line[len(body):]

		switch {
		case strings.HasPrefix(body, "---"), strings.HasPrefix(body, "+++"):
			b.WriteString(headerStyle.Render(body))
		case strings.HasPrefix(body, "@@"):
			b.WriteString(hunkStyle.Render(body))
		case strings.HasPrefix(body, "+"):
			b.WriteString(addedStyle.Render(body))
		case strings.HasPrefix(body, "-"):
			b.WriteString(removedStyle.Render(body))
		default:
			b.WriteString(body)
		}

		b.WriteString(nl)
	}

	return b.String()
}
