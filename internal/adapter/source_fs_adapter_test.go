package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	m "workerlink.dev/pkg/workerlink/internal/model"
)

func TestLocalSourceFSAdapter_Walk(t *testing.T) {
	t.Run("non recursive skips nested files", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter()

		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "main.ts"), "export {}\n")

		nestedDir := filepath.Join(root, "nested")
		mustMkdir(t, nestedDir)
		writeTestFile(t, filepath.Join(nestedDir, "child.ts"), "export {}\n")

		var visited []string
		err := adapter.Walk(context.Background(), m.Path(root), false, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			visited = append(visited, path)
			return nil
		})
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}

		for _, forbidden := range []string{nestedDir, filepath.Join(nestedDir, "child.ts")} {
			if containsPath(visited, forbidden) {
				t.Fatalf("Walk() unexpectedly visited %s when recursive is false", forbidden)
			}
		}

		if !containsPath(visited, filepath.Join(root, "main.ts")) {
			t.Fatalf("Walk() did not visit top-level file")
		}
	})

	t.Run("recursive visits nested files but not node_modules", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter()

		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "main.ts"), "export {}\n")

		nestedDir := filepath.Join(root, "nested")
		mustMkdir(t, nestedDir)
		child := filepath.Join(nestedDir, "child.ts")
		writeTestFile(t, child, "export {}\n")

		vendored := filepath.Join(root, "node_modules")
		mustMkdir(t, vendored)
		writeTestFile(t, filepath.Join(vendored, "dep.js"), "export {}\n")

		var visited []string
		err := adapter.Walk(context.Background(), m.Path(root), true, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			visited = append(visited, path)
			return nil
		})
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}

		if !containsPath(visited, child) {
			t.Fatalf("Walk() did not visit nested file when recursive")
		}

		if containsPath(visited, filepath.Join(vendored, "dep.js")) {
			t.Fatalf("Walk() descended into node_modules")
		}
	})

	t.Run("cancelled context stops the walk", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter()

		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "main.ts"), "export {}\n")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := adapter.Walk(ctx, m.Path(root), true, func(string, os.FileInfo, error) error { return nil })
		if err == nil {
			t.Fatalf("Walk() expected error due to context cancellation")
		}
	})
}

func TestLocalSourceFSAdapter_ReadWriteFile(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	root := t.TempDir()
	path := filepath.Join(root, "out", "deep", "main.js")
	content := "export const x = 1;\n"

	if err := adapter.WriteFile(context.Background(), m.Path(path), []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := adapter.ReadFile(context.Background(), m.Path(path))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if string(got) != content {
		t.Fatalf("ReadFile() = %q, want %q", string(got), content)
	}
}

func TestLocalSourceFSAdapter_ReadFile_ContextCancellation(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := adapter.ReadFile(ctx, m.Path("whatever.ts")); err == nil {
		t.Fatalf("ReadFile() expected error due to context cancellation")
	}
}

func TestLocalSourceFSAdapter_FileInfo(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	root := t.TempDir()
	path := filepath.Join(root, "worker.ts")
	writeTestFile(t, path, "export {}\n")

	info, err := adapter.FileInfo(context.Background(), m.Path(path))
	if err != nil {
		t.Fatalf("FileInfo() error = %v", err)
	}

	if info.IsDir() {
		t.Fatalf("FileInfo() reported directory for regular file")
	}

	if _, err := adapter.FileInfo(context.Background(), m.Path(filepath.Join(root, "missing.ts"))); !os.IsNotExist(err) {
		t.Fatalf("FileInfo() error = %v, want not-exist", err)
	}
}

func TestLocalSourceFSAdapter_PathHelpers(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	rel, err := adapter.RelPath(context.Background(), m.Path("/tmp/project"), m.Path("/tmp/project/src/main.ts"))
	if err != nil {
		t.Fatalf("RelPath() error = %v", err)
	}

	if string(rel) != filepath.Join("src", "main.ts") {
		t.Fatalf("RelPath() = %s, want %s", rel, filepath.Join("src", "main.ts"))
	}

	joined := adapter.JoinPath(context.Background(), "/tmp", "project", "src", "main.ts")
	if string(joined) != filepath.Join("/tmp", "project", "src", "main.ts") {
		t.Fatalf("JoinPath() = %s, want %s", joined, filepath.Join("/tmp", "project", "src", "main.ts"))
	}
}

func writeTestFile(t *testing.T, path, contents string) {
	t.Helper()
	writeTestBytes(t, path, []byte(contents))
}

func writeTestBytes(t *testing.T, path string, contents []byte) {
	t.Helper()
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("failed to create dir %s: %v", path, err)
	}
}

func containsPath(paths []string, target string) bool {
	for _, p := range paths {
		if p == target {
			return true
		}
	}

	return false
}
