package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workerlink.dev/pkg/workerlink/internal/domain"
)

const wrapImportLine = "import {wrap as __comlink_wrap} from 'comlink';\n"

func TestTransformCmd_PrintsRewrittenCode(t *testing.T) {
	dir := copyFixture(t, "basic")

	out, err := executeCommand(t, newTransformCmd(),
		"transform", "--mode", "production", "--root", dir, filepath.Join(dir, "main.ts"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, wrapImportLine))
	assert.Contains(t, out,
		"const w = __comlink_wrap(new Worker(new URL('internal:comlink:./worker.ts', import.meta.url)))")
	assert.NotContains(t, out, "sourceMappingURL")
}

func TestTransformCmd_DevelopmentForcesModule(t *testing.T) {
	dir := copyFixture(t, "basic")

	out, err := executeCommand(t, newTransformCmd(),
		"transform", "--mode", "dev", "--root", dir, filepath.Join(dir, "main.ts"))
	require.NoError(t, err)

	assert.Contains(t, out, `import.meta.url), {"type":"module"}))`)
}

func TestTransformCmd_InlineSourceMap(t *testing.T) {
	dir := copyFixture(t, "basic")

	out, err := executeCommand(t, newTransformCmd(),
		"transform", "--root", dir, "--sourcemap", filepath.Join(dir, "main.ts"))
	require.NoError(t, err)

	assert.Contains(t, out, "\n//# sourceMappingURL=data:application/json;")
}

func TestTransformCmd_UnchangedFilePrintedAsIs(t *testing.T) {
	dir := copyFixture(t, "none")
	path := filepath.Join(dir, "main.ts")

	original, err := os.ReadFile(path)
	require.NoError(t, err)

	out, err := executeCommand(t, newTransformCmd(), "transform", "--root", dir, path)
	require.NoError(t, err)

	assert.Equal(t, string(original), out)
}

func TestTransformCmd_Diff(t *testing.T) {
	dir := copyFixture(t, "shared")

	out, err := executeCommand(t, newTransformCmd(),
		"transform", "--root", dir, "--diff", filepath.Join(dir, "main.ts"))
	require.NoError(t, err)

	assert.Contains(t, out, "--- a/")
	assert.Contains(t, out, "+++ b/")
	assert.Contains(t, out, "-const first = new ComlinkSharedWorker(")
	assert.Contains(t, out, "+const first = __comlink_wrap(new SharedWorker(")
	assert.Contains(t, out, "+"+strings.TrimSuffix(wrapImportLine, "\n"))
}

func TestTransformCmd_WritesOutDir(t *testing.T) {
	dir := copyFixture(t, "basic")
	outDir := filepath.Join(t.TempDir(), "out")

	out, err := executeCommand(t, newTransformCmd(),
		"transform", "--root", dir, "--out", outDir, "--parallel", "2", dir)
	require.NoError(t, err)
	assert.Empty(t, out)

	main, err := os.ReadFile(filepath.Join(outDir, "main.ts"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(main), wrapImportLine))

	worker, err := os.ReadFile(filepath.Join(outDir, "worker.ts"))
	require.NoError(t, err)

	original, err := os.ReadFile(filepath.Join(dir, "worker.ts"))
	require.NoError(t, err)
	assert.Equal(t, string(original), string(worker))
}

func TestTransformCmd_OutRejectsFilesOutsideRoot(t *testing.T) {
	dir := copyFixture(t, "basic")
	root := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(root, 0o755))

	_, err := executeCommand(t, newTransformCmd(),
		"transform", "--root", root, "--out", t.TempDir(), filepath.Join(dir, "main.ts"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside root")
}

func TestTransformCmd_MalformedOptions(t *testing.T) {
	dir := copyFixture(t, "malformed")

	_, err := executeCommand(t, newTransformCmd(),
		"transform", "--root", dir, filepath.Join(dir, "main.ts"))
	require.Error(t, err)

	var transformErr *domain.TransformError
	require.ErrorAs(t, err, &transformErr)
	assert.Equal(t, 1, transformErr.Line)
	assert.Equal(t, 11, transformErr.Column)
}

func TestTransformCmd_MissingPath(t *testing.T) {
	_, err := executeCommand(t, newTransformCmd(),
		"transform", filepath.Join(t.TempDir(), "absent.ts"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stat")
}

func TestCollectSources(t *testing.T) {
	dir := copyFixture(t, "shared")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "types.d.ts"), []byte("export {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# notes\n"), 0o644))

	files, err := collectSources(commandContext(newRootCmd()), parsePaths([]string{dir, filepath.Join(dir, "main.ts")}))
	require.NoError(t, err)

	names := make([]string, 0, len(files))
	for _, file := range files {
		names = append(names, filepath.Base(string(file)))
	}

	assert.Equal(t, []string{"counter.ts", "main.ts"}, names)
}

func TestIsSourceFile(t *testing.T) {
	for path, want := range map[string]bool{
		"main.ts":    true,
		"main.tsx":   true,
		"main.mjs":   true,
		"main.cts":   true,
		"main.d.ts":  false,
		"main.json":  false,
		"README.md":  false,
		"worker.jsx": true,
	} {
		assert.Equal(t, want, isSourceFile(path), path)
	}
}
