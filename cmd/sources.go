package cmd

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	m "workerlink.dev/pkg/workerlink/internal/model"
)

var sourcePattern = regexp.MustCompile(`\.[cm]?[jt]sx?$`)

func isSourceFile(path string) bool {
	return sourcePattern.MatchString(path) && !strings.HasSuffix(path, ".d.ts")
}

// collectSources expands directories into the source files below them.
// Explicit file arguments are kept whatever their extension.
func collectSources(ctx context.Context, paths []m.Path) ([]m.Path, error) {
	if len(paths) == 0 {
		paths = []m.Path{"."}
	}

	seen := make(map[m.Path]struct{})
	files := make([]m.Path, 0, len(paths))

	add := func(path m.Path) {
		if _, ok := seen[path]; ok {
			return
		}

		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, path := range paths {
		info, err := fsAdapter.FileInfo(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		if !info.IsDir() {
			add(path)
			continue
		}

		err = fsAdapter.Walk(ctx, path, true, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if info.IsDir() || !isSourceFile(file) {
				return nil
			}

			add(m.Path(file))

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", path, err)
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i] < files[j]
	})

	return files, nil
}

// parallelism prefers an explicit --parallel over the configured value.
func parallelism(cmd *cobra.Command, settings buildSettings) int {
	flag := cmd.Flags().Lookup(parallelFlagName)
	if flag == nil || !flag.Changed {
		return settings.transform.Parallel
	}

	if n, err := cmd.Flags().GetInt(parallelFlagName); err == nil && n > 0 {
		return n
	}

	return settings.transform.Parallel
}

type sourceFile struct {
	path m.Path
	code string
}

// forEachSource reads every file and hands it to fn, with at most parallel
// files in flight. The first error cancels the remaining work.
func forEachSource(ctx context.Context, files []m.Path, parallel int, fn func(ctx context.Context, index int, file sourceFile) error) error {
	group, groupCtx := errgroup.WithContext(ctx)
	if parallel > 0 {
		group.SetLimit(parallel)
	}

	for i, path := range files {
		i, path := i, path
		group.Go(func() error {
			data, err := fsAdapter.ReadFile(groupCtx, path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			return fn(groupCtx, i, sourceFile{path: path, code: string(data)})
		})
	}

	return group.Wait()
}
