package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"workerlink.dev/pkg/workerlink/internal/ctxlog"
	m "workerlink.dev/pkg/workerlink/internal/model"
)

const transformLongDescription = `Rewrite worker constructors in the given files and print the result
(default: every source file below the current directory).

With --out the rewritten tree is written below that directory instead,
mirroring each file's path relative to --root. With --diff a unified diff
against the original is printed.

` + pathPatternsHelp

const (
	outFlagName  = "out"
	diffFlagName = "diff"
)

// transformCmd represents the transform command.
var transformCmd = newTransformCmd()

func newTransformCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transform [paths...]",
		Short: "Rewrite worker constructors",
		Long:  transformLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString(outFlagName)
			diff, _ := cmd.Flags().GetBool(diffFlagName)

			return runTransform(cmd, parsePaths(args), out, diff)
		},
	}

	configureTransformFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(transformCmd)
}

func configureTransformFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(outFlagName, "o", "", "write rewritten files below this directory")
	cmd.Flags().Bool(diffFlagName, false, "print a unified diff instead of the rewritten code")

	cmd.Flags().IntP(parallelFlagName, "p", 0, "number of files transformed in parallel (default "+transformParallelKey+")")

	cmd.Flags().Bool(sourcemapFlagName, defaultTransformMaps, "append an inline source map to rewritten code")
	bindFlagToConfig(cmd.Flags().Lookup(sourcemapFlagName), transformSourcemapKey)
}

func runTransform(cmd *cobra.Command, paths []m.Path, outDir string, showDiff bool) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	plugin := newPlugin(settings)
	cfg := plugin.ConfigResolved(m.HostConfig{Mode: settings.mode, Root: settings.root})

	files, err := collectSources(ctx, paths)
	if err != nil {
		return err
	}

	originals := make([]string, len(files))
	results := make([]*m.TransformResult, len(files))

	err = forEachSource(ctx, files, parallelism(cmd, settings), func(ctx context.Context, i int, file sourceFile) error {
		result, err := plugin.Transform(ctx, cfg, m.TransformInput{ID: file.path, Code: file.code})
		if err != nil {
			return err
		}

		originals[i] = file.code
		results[i] = result

		return nil
	})
	if err != nil {
		return err
	}

	ui := newUI(cmd)
	changed := 0

	for i, path := range files {
		result := results[i]
		if result != nil {
			changed++
		}

		if settings.transform.Sourcemap && !showDiff {
			if result, err = withInlineMap(result); err != nil {
				return fmt.Errorf("source map for %s: %w", path, err)
			}
		}

		if outDir != "" {
			if err := writeTransformed(ctx, settings.root, m.Path(outDir), path, originals[i], result); err != nil {
				return err
			}

			continue
		}

		if err := ui.DisplayTransform(ctx, path, originals[i], result, showDiff); err != nil {
			return err
		}
	}

	ctxlog.FromContext(ctx).Info("transform finished",
		"files", len(files), "changed", changed, "mode", cfg.Mode, "out", outDir)

	return nil
}

// withInlineMap returns a copy of result whose code ends with its source map.
func withInlineMap(result *m.TransformResult) (*m.TransformResult, error) {
	if result == nil || result.Map == nil {
		return result, nil
	}

	comment, err := result.Map.Comment()
	if err != nil {
		return nil, err
	}

	withMap := *result
	withMap.Code = strings.TrimSuffix(result.Code, "\n") + comment

	return &withMap, nil
}

// writeTransformed writes the rewritten code, or the original when nothing
// changed, to outDir mirroring path's location below root.
func writeTransformed(ctx context.Context, root, outDir, path m.Path, original string, result *m.TransformResult) error {
	abs, err := filepath.Abs(string(path))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	rel, err := fsAdapter.RelPath(ctx, root, m.Path(abs))
	if err != nil {
		return fmt.Errorf("relative path of %s: %w", path, err)
	}

	if strings.HasPrefix(filepath.ToSlash(string(rel)), "../") {
		return fmt.Errorf("%s is outside root %s", path, root)
	}

	code := original
	if result != nil {
		code = result.Code
	}

	target := fsAdapter.JoinPath(ctx, string(outDir), string(rel))
	if err := fsAdapter.WriteFile(ctx, target, []byte(code), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}

	ctxlog.FromContext(ctx).Debug("wrote transformed file", "source", path, "target", target, "changed", result != nil)

	return nil
}
