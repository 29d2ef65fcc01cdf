package controller

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	m "workerlink.dev/pkg/workerlink/internal/model"
)

func newTestUI(options ...Option) (*SimpleUI, *bytes.Buffer) {
	var out bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	return NewSimpleUI(cmd, options...), &out
}

func sampleMatches() []m.FileMatches {
	return []m.FileMatches{
		{
			Path: "src/z.ts",
			Matches: []m.Match{
				{Line: 5, Column: 11, Kind: m.KindShared, Specifier: "./b.ts", Options: "{type: 'module'}"},
			},
		},
		{
			Path: "src/a.ts",
			Matches: []m.Match{
				{Line: 1, Column: 11, Kind: m.KindDedicated, Specifier: "./worker.ts"},
				{Line: 3, Column: 7, Kind: m.KindDedicated, Specifier: "./other.ts"},
			},
		},
		{Path: "src/empty.ts"},
	}
}

func TestSimpleUI_DisplayScan_Table(t *testing.T) {
	ui, out := newTestUI()

	require.NoError(t, ui.DisplayScan(context.Background(), sampleMatches(), FormatTable))

	text := out.String()
	assert.Contains(t, text, "PATH")
	assert.Contains(t, text, "SPECIFIER")
	assert.Contains(t, text, "./worker.ts")
	assert.Contains(t, text, "5:11")
	assert.Contains(t, text, "{type: 'module'}")
	assert.Contains(t, strings.ToUpper(text), "TOTAL FILES 2")
	assert.Contains(t, strings.ToUpper(text), "CALL SITES 3")
	assert.NotContains(t, text, "src/empty.ts")
	assert.Less(t, strings.Index(text, "src/a.ts"), strings.Index(text, "src/z.ts"))
}

func TestSimpleUI_DisplayScan_YAML(t *testing.T) {
	ui, out := newTestUI()

	require.NoError(t, ui.DisplayScan(context.Background(), sampleMatches(), FormatYAML))

	var records []scanRecord
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &records))
	require.Len(t, records, 3)

	assert.Equal(t, "src/a.ts", records[0].Path)
	assert.Len(t, records[0].Matches, 2)
	assert.Equal(t, "dedicated", records[0].Matches[0].Kind)
	assert.Equal(t, "src/z.ts", records[2].Path)
	assert.Equal(t, "{type: 'module'}", records[2].Matches[0].Options)
}

func TestSimpleUI_DisplayScan_UnknownFormat(t *testing.T) {
	ui, _ := newTestUI()

	err := ui.DisplayScan(context.Background(), sampleMatches(), OutputFormat("xml"))
	assert.Error(t, err)
}

func TestSimpleUI_DisplayScan_CanceledContext(t *testing.T) {
	ui, out := newTestUI()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, ui.DisplayScan(ctx, sampleMatches(), FormatTable), context.Canceled)
	assert.Empty(t, out.String())
}

func TestSimpleUI_DisplayTransform(t *testing.T) {
	original := "const w = new ComlinkWorker(new URL('./w.ts', import.meta.url))\nexport default w\n"
	result := &m.TransformResult{
		Code: "import {wrap as __comlink_wrap} from 'comlink';\n" +
			"const w = __comlink_wrap(new Worker(new URL('internal:comlink:./w.ts', import.meta.url)))\nexport default w\n",
	}

	t.Run("code", func(t *testing.T) {
		ui, out := newTestUI()

		require.NoError(t, ui.DisplayTransform(context.Background(), "src/main.ts", original, result, false))
		assert.Equal(t, result.Code, out.String())
	})

	t.Run("unchanged", func(t *testing.T) {
		ui, out := newTestUI()

		require.NoError(t, ui.DisplayTransform(context.Background(), "src/main.ts", original, nil, false))
		assert.Equal(t, original, out.String())
	})

	t.Run("diff", func(t *testing.T) {
		ui, out := newTestUI()

		require.NoError(t, ui.DisplayTransform(context.Background(), "src/main.ts", original, result, true))

		text := out.String()
		assert.Contains(t, text, "--- a/src/main.ts")
		assert.Contains(t, text, "+++ b/src/main.ts")
		assert.Contains(t, text, "-const w = new ComlinkWorker(")
		assert.Contains(t, text, "+import {wrap as __comlink_wrap} from 'comlink';")
		assert.Contains(t, text, " export default w")
	})

	t.Run("diff unchanged", func(t *testing.T) {
		ui, out := newTestUI()

		require.NoError(t, ui.DisplayTransform(context.Background(), "src/main.ts", original, nil, true))
		assert.Empty(t, out.String())
	})
}

func TestSimpleUI_DisplayModule(t *testing.T) {
	ui, out := newTestUI(WithColor(false))

	require.NoError(t, ui.DisplayModule(context.Background(), "internal:comlink:/w.ts", "expose(api);\n"))
	assert.Equal(t, "// internal:comlink:/w.ts\nexpose(api);\n", out.String())
}

func TestSimpleUI_DisplayBuild(t *testing.T) {
	ui, out := newTestUI()

	require.NoError(t, ui.DisplayBuild(context.Background(), BuildSummary{
		Outputs:  []BuildOutput{{Path: "dist/main.js", Size: 120}, {Path: "dist/worker.js", Size: 80}},
		Warnings: []string{"legacy import"},
		Errors:   []string{"could not resolve"},
	}))

	text := out.String()
	assert.Contains(t, text, "dist/main.js")
	assert.Contains(t, text, "200")
	assert.Contains(t, text, "warning: legacy import")
	assert.Contains(t, text, "error: could not resolve")
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in   string
		want OutputFormat
		ok   bool
	}{
		{in: "", want: FormatTable, ok: true},
		{in: "table", want: FormatTable, ok: true},
		{in: "yaml", want: FormatYAML, ok: true},
		{in: "json", ok: false},
	}

	for _, tt := range tests {
		got, ok := ParseOutputFormat(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestIsTTY(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
}

func TestColorizeDiff_KeepsText(t *testing.T) {
	diff := "--- a/x\n+++ b/x\n@@ -1 +1 @@\n-old\n+new\n"

	colored := colorizeDiff(diff)
	for _, line := range []string{"old", "new", "a/x", "b/x"} {
		assert.Contains(t, colored, line)
	}
	assert.Equal(t, strings.Count(diff, "\n"), strings.Count(colored, "\n"))
}
