package controller

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTUI(options ...Option) (*TUI, *bytes.Buffer) {
	var out bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	return NewTUI(cmd, options...), &out
}

func keyMsg(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func numberedLines(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		b.WriteString("line ")
		b.WriteString(strings.Repeat("x", i%7))
		b.WriteString("\n")
	}

	return b.String()
}

func TestNewUI(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	assert.IsType(t, &TUI{}, NewUI(cmd, true))
	assert.IsType(t, &SimpleUI{}, NewUI(cmd, false))
}

func TestNeedsPager(t *testing.T) {
	tests := []struct {
		name    string
		content string
		height  int
		want    bool
	}{
		{"unknown height", numberedLines(500), 0, false},
		{"fits", numberedLines(10), 24, false},
		{"exactly fills", numberedLines(21), 24, false},
		{"one line too many", numberedLines(22), 24, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, needsPager(tt.content, tt.height))
		})
	}
}

func TestTUI_ShortOutputPrintsDirectly(t *testing.T) {
	ui, out := newTestTUI(WithColor(false), WithHeight(40))

	err := ui.DisplayModule(context.Background(), "internal:comlink:/src/worker.ts", "expose(api);\n")
	require.NoError(t, err)

	assert.Equal(t, "// internal:comlink:/src/worker.ts\nexpose(api);\n", out.String())
}

func TestTUI_UnknownHeightPrintsDirectly(t *testing.T) {
	ui, out := newTestTUI(WithColor(false))

	err := ui.DisplayBuild(context.Background(), BuildSummary{Errors: []string{"main.ts:1:11: malformed worker options"}})
	require.NoError(t, err)

	assert.Equal(t, "error: main.ts:1:11: malformed worker options\n", out.String())
}

func TestTUI_PropagatesRenderErrors(t *testing.T) {
	ui, out := newTestTUI(WithHeight(40))

	err := ui.DisplayScan(context.Background(), sampleMatches(), OutputFormat("xml"))
	require.Error(t, err)
	assert.Empty(t, out.String())
}

func TestPagerModel_Scrolls(t *testing.T) {
	model := newPagerModel("main.ts", numberedLines(100), 80, 13)
	assert.Equal(t, 10, model.viewport.Height)

	updated, _ := model.Update(keyMsg("G"))
	model = updated.(pagerModel)
	assert.True(t, model.viewport.AtBottom())
	assert.Contains(t, model.View(), "Lines 91-100 of 100")

	updated, _ = model.Update(keyMsg("g"))
	model = updated.(pagerModel)
	assert.True(t, model.viewport.AtTop())
	assert.Contains(t, model.View(), "Lines 1-10 of 100")
	assert.Contains(t, model.View(), "main.ts")
}

func TestPagerModel_Resize(t *testing.T) {
	model := newPagerModel("build", numberedLines(50), 80, 10)

	updated, cmd := model.Update(tea.WindowSizeMsg{Width: 120, Height: 2})
	model = updated.(pagerModel)

	assert.Nil(t, cmd)
	assert.Equal(t, 120, model.viewport.Width)
	assert.Equal(t, 1, model.viewport.Height)
}

func TestPagerModel_Quit(t *testing.T) {
	for _, key := range []tea.KeyMsg{keyMsg("q"), {Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		t.Run(key.String(), func(t *testing.T) {
			model := newPagerModel("scan", numberedLines(50), 80, 10)

			updated, cmd := model.Update(key)
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
			assert.Empty(t, updated.View())
		})
	}
}
