package controller

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "workerlink.dev/pkg/workerlink/internal/model"
)

// pagerChrome is the number of lines the pager reserves for its title and
// footer.
const pagerChrome = 3

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// TUI implements UI for terminals. Output that fits on screen is printed
// like SimpleUI does; anything taller opens a Bubble Tea pager.
type TUI struct {
	output io.Writer
	input  io.Reader
	color  bool
	height int
}

// NewTUI creates a new TUI writing to the command's output.
func NewTUI(cmd *cobra.Command, options ...Option) *TUI {
	cfg := uiConfig{color: true}
	for _, opt := range options {
		opt(&cfg)
	}

	return &TUI{
		output: cmd.OutOrStdout(),
		input:  cfg.input,
		color:  cfg.color,
		height: cfg.height,
	}
}

// DisplayScan shows the call sites found in each file.
func (t *TUI) DisplayScan(ctx context.Context, results []m.FileMatches, format OutputFormat) error {
	return t.render(ctx, "worker call sites", func(ui *SimpleUI) error {
		return ui.DisplayScan(ctx, results, format)
	})
}

// DisplayTransform shows the rewritten code of path, or its diff.
func (t *TUI) DisplayTransform(ctx context.Context, path m.Path, original string, result *m.TransformResult, showDiff bool) error {
	return t.render(ctx, string(path), func(ui *SimpleUI) error {
		return ui.DisplayTransform(ctx, path, original, result, showDiff)
	})
}

// DisplayModule shows a synthesized module body.
func (t *TUI) DisplayModule(ctx context.Context, id string, body string) error {
	return t.render(ctx, id, func(ui *SimpleUI) error {
		return ui.DisplayModule(ctx, id, body)
	})
}

// DisplayBuild shows what a bundler run wrote.
func (t *TUI) DisplayBuild(ctx context.Context, summary BuildSummary) error {
	return t.render(ctx, "build", func(ui *SimpleUI) error {
		return ui.DisplayBuild(ctx, summary)
	})
}

func (t *TUI) render(ctx context.Context, title string, draw func(ui *SimpleUI) error) error {
	var buf bytes.Buffer
	if err := draw(&SimpleUI{out: &buf, color: t.color}); err != nil {
		return err
	}

	content := buf.String()

	width, height := t.screenSize()
	if !needsPager(content, height) {
		_, err := fmt.Fprint(t.output, content)
		return err
	}

	options := []tea.ProgramOption{tea.WithOutput(t.output), tea.WithAltScreen(), tea.WithContext(ctx)}
	if t.input != nil {
		options = append(options, tea.WithInput(t.input))
	}

	program := tea.NewProgram(newPagerModel(title, content, width, height), options...)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("pager: %w", err)
	}

	return nil
}

// screenSize returns the terminal size, or zeros when it is unknown.
func (t *TUI) screenSize() (int, int) {
	if t.height > 0 {
		return 0, t.height
	}

	f, ok := t.output.(*os.File)
	if !ok {
		return 0, 0
	}

	width, height, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0, 0
	}

	return width, height
}

// needsPager reports whether content is taller than a screen of height
// lines. An unknown height never pages.
func needsPager(content string, height int) bool {
	if height <= 0 {
		return false
	}

	return strings.Count(content, "\n") > height-pagerChrome
}

// pagerModel is the Bubble Tea model scrolling through rendered output.
type pagerModel struct {
	title    string
	viewport viewport.Model
	quitting bool
}

func newPagerModel(title, content string, width, height int) pagerModel {
	vp := viewport.New(width, pageHeight(height))
	vp.SetContent(strings.TrimSuffix(content, "\n"))

	return pagerModel{title: title, viewport: vp}
}

func pageHeight(height int) int {
	if height-pagerChrome < 1 {
		return 1
	}

	return height - pagerChrome
}

func (pm pagerModel) Init() tea.Cmd {
	return nil
}

func (pm pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		pm.viewport.Width = msg.Width
		pm.viewport.Height = pageHeight(msg.Height)

		return pm, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			pm.quitting = true
			return pm, tea.Quit

		case "g", "home":
			pm.viewport.GotoTop()
			return pm, nil

		case "G", "end":
			pm.viewport.GotoBottom()
			return pm, nil
		}
	}

	var cmd tea.Cmd
	pm.viewport, cmd = pm.viewport.Update(msg)

	return pm, cmd
}

func (pm pagerModel) View() string {
	if pm.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(pm.title))
	b.WriteString("\n")
	b.WriteString(pm.viewport.View())
	b.WriteString("\n")

	total := pm.viewport.TotalLineCount()
	first := pm.viewport.YOffset + 1
	last := min(pm.viewport.YOffset+pm.viewport.Height, total)

	b.WriteString(helpStyle.Render(fmt.Sprintf("  Lines %d-%d of %d | %3.f%% | ↑/k ↓/j d/u g/G | q: quit",
		first, last, total, pm.viewport.ScrollPercent()*100)))

	return b.String()
}
