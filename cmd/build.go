package cmd

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/cobra"

	"workerlink.dev/pkg/workerlink/internal/controller"
	"workerlink.dev/pkg/workerlink/internal/ctxlog"
	"workerlink.dev/pkg/workerlink/internal/domain"
	"workerlink.dev/pkg/workerlink/internal/esbuildplugin"
	m "workerlink.dev/pkg/workerlink/internal/model"
)

const (
	outdirFlagName   = "outdir"
	minifyFlagName   = "minify"
	externalFlagName = "external"
	workersFlagName  = "workers"

	defaultOutdir     = "dist"
	workerOutputDir   = "workers"
	nodeEnvDefineName = "process.env.NODE_ENV"
)

const buildLongDescription = `Bundle the given entry points with esbuild, rewriting worker constructors
on the way. Every worker the entry points reference is bundled as an extra
entry point below <outdir>/workers unless --workers=false.`

type buildFlags struct {
	outdir    string
	minify    bool
	sourcemap bool
	workers   bool
	external  []string
}

// buildCmd represents the build command.
var buildCmd = newBuildCmd()

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <entry...>",
		Short: "Bundle entry points with esbuild",
		Long:  buildLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := buildFlags{}
			flags.outdir, _ = cmd.Flags().GetString(outdirFlagName)
			flags.minify, _ = cmd.Flags().GetBool(minifyFlagName)
			flags.sourcemap, _ = cmd.Flags().GetBool(sourcemapFlagName)
			flags.workers, _ = cmd.Flags().GetBool(workersFlagName)
			flags.external, _ = cmd.Flags().GetStringArray(externalFlagName)

			return runBuild(cmd, args, flags)
		},
	}

	cmd.Flags().String(outdirFlagName, defaultOutdir, "output directory")
	cmd.Flags().Bool(minifyFlagName, false, "minify the output")
	cmd.Flags().Bool(sourcemapFlagName, false, "emit linked source maps (default "+transformSourcemapKey+")")
	cmd.Flags().Bool(workersFlagName, true, "bundle referenced workers as extra entry points")
	cmd.Flags().StringArrayP(externalFlagName, "e", nil, "module to leave unbundled (can be repeated)")

	return cmd
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, entries []string, flags buildFlags) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	workers := &workerSet{}

	absEntries := make([]string, 0, len(entries))
	for _, entry := range entries {
		abs, err := filepath.Abs(entry)
		if err != nil {
			return fmt.Errorf("resolve entry %s: %w", entry, err)
		}

		absEntries = append(absEntries, abs)
	}

	options := api.BuildOptions{
		EntryPoints:       absEntries,
		Bundle:            true,
		Write:             false,
		Outdir:            flags.outdir,
		AbsWorkingDir:     filepath.FromSlash(string(settings.root)),
		Format:            api.FormatESModule,
		Platform:          api.PlatformBrowser,
		External:          flags.external,
		MinifyWhitespace:  flags.minify,
		MinifyIdentifiers: flags.minify,
		MinifySyntax:      flags.minify,
		LogLevel:          api.LogLevelSilent,
		Define:            map[string]string{nodeEnvDefineName: strconv.Quote(string(settings.mode))},
		Plugins: []api.Plugin{esbuildplugin.New(esbuildplugin.Options{
			Plugin:   settings.plugin,
			Mode:     settings.mode,
			Root:     settings.root,
			Logger:   ctxlog.FromContext(ctx),
			OnWorker: workers.add,
		})},
	}

	if flags.sourcemap || (!cmd.Flags().Changed(sourcemapFlagName) && settings.transform.Sourcemap) {
		options.Sourcemap = api.SourceMapLinked
	}

	summary := controller.BuildSummary{}

	result := api.Build(options)
	if err := collectBuild(ctx, settings.root, result, &summary); err != nil {
		return err
	}

	if ids := workers.sorted(); flags.workers && len(result.Errors) == 0 && len(ids) > 0 {
		options.EntryPoints = nil
		options.EntryPointsAdvanced = workerEntryPoints(ids)

		ctxlog.FromContext(ctx).Info("bundling workers", "count", len(ids))

		if err := collectBuild(ctx, settings.root, api.Build(options), &summary); err != nil {
			return err
		}
	}

	if err := newUI(cmd).DisplayBuild(ctx, summary); err != nil {
		return err
	}

	if len(summary.Errors) > 0 {
		return fmt.Errorf("build failed with %d error(s)", len(summary.Errors))
	}

	return nil
}

// collectBuild writes a build's output files and records them, with its
// messages, in summary.
func collectBuild(ctx context.Context, root m.Path, result api.BuildResult, summary *controller.BuildSummary) error {
	for _, msg := range result.Errors {
		summary.Errors = append(summary.Errors, formatMessage(msg))
	}

	for _, msg := range result.Warnings {
		summary.Warnings = append(summary.Warnings, formatMessage(msg))
	}

	if len(result.Errors) > 0 {
		return nil
	}

	for _, file := range result.OutputFiles {
		if err := fsAdapter.WriteFile(ctx, m.Path(file.Path), file.Contents, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", file.Path, err)
		}

		display := file.Path
		if rel, err := fsAdapter.RelPath(ctx, root, m.Path(file.Path)); err == nil {
			display = filepath.ToSlash(string(rel))
		}

		summary.Outputs = append(summary.Outputs, controller.BuildOutput{Path: display, Size: len(file.Contents)})
	}

	return nil
}

// workerEntryPoints names each worker bundle after its target file,
// disambiguating equal base names.
func workerEntryPoints(ids []string) []api.EntryPoint {
	entries := make([]api.EntryPoint, 0, len(ids))
	used := make(map[string]int)

	for _, id := range ids {
		kind, target, ok := domain.ParseID(id)
		if !ok {
			continue
		}

		name := strings.TrimSuffix(path.Base(target), path.Ext(target))
		if kind == m.KindShared {
			name += ".shared"
		}

		used[name]++
		if n := used[name]; n > 1 {
			name = fmt.Sprintf("%s-%d", name, n)
		}

		entries = append(entries, api.EntryPoint{
			InputPath:  id,
			OutputPath: path.Join(workerOutputDir, name),
		})
	}

	return entries
}

func formatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}

	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column+1, msg.Text)
}

// workerSet collects worker ids reported concurrently by esbuild.
type workerSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func (w *workerSet) add(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ids == nil {
		w.ids = make(map[string]struct{})
	}

	w.ids[id] = struct{}{}
}

func (w *workerSet) sorted() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	ids := make([]string, 0, len(w.ids))
	for id := range w.ids {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}
