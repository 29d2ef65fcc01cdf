// Package esbuildplugin binds the worker plugin hooks to esbuild's plugin API.
package esbuildplugin

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"workerlink.dev/pkg/workerlink/internal/adapter"
	"workerlink.dev/pkg/workerlink/internal/ctxlog"
	"workerlink.dev/pkg/workerlink/internal/domain"
	m "workerlink.dev/pkg/workerlink/internal/model"
)

// Namespace holds the virtual worker modules and the legacy factories.
const Namespace = "comlink"

const (
	sourceFilter = `\.[cm]?[jt]sx?$`
	prefixFilter = `internal:comlink(-shared)?:|^comlink(-shared)?:`

	nodeEnvKey = "process.env.NODE_ENV"
)

// Options configure the esbuild binding.
type Options struct {
	Plugin m.PluginOptions
	// Mode overrides the mode derived from the build's NODE_ENV define.
	Mode m.BuildMode
	// Root resolves targets that have no importer. Defaults to the build's
	// working directory.
	Root m.Path
	// InlineSourceMap appends the rewrite's source map to transformed files.
	InlineSourceMap bool
	Logger          *slog.Logger
	// OnWorker is called with the resolved virtual id of every worker a
	// build references. esbuild invokes callbacks concurrently.
	OnWorker func(id string)
}

// New creates an esbuild plugin that rewrites worker call sites and serves
// the virtual worker modules.
func New(opts Options) api.Plugin {
	return api.Plugin{
		Name: domain.PluginName,
		Setup: func(build api.PluginBuild) {
			setup(opts, build)
		},
	}
}

func setup(opts Options, build api.PluginBuild) {
	ctx := context.Background()
	if opts.Logger != nil {
		ctx = ctxlog.WithLogger(ctx, opts.Logger)
	}

	fsAdapter := adapter.NewLocalSourceFSAdapter()
	root := rootDir(opts.Root, build.InitialOptions)

	plugin := domain.NewPlugin(opts.Plugin,
		domain.NewRewriter(),
		domain.NewVirtualModuleProvider(adapter.NewLocalModuleResolver(fsAdapter, root)),
		domain.NewLegacyProvider(&hostResolver{build: build}))

	b := &binding{
		plugin:  plugin,
		opts:    opts,
		fs:      fsAdapter,
		ctx:     ctx,
		cfg:     plugin.ConfigResolved(m.HostConfig{Mode: ResolveMode(opts.Mode, defines(build.InitialOptions)), Root: root}),
		rootDir: string(root),
	}

	ctxlog.FromContext(ctx).Debug("esbuild plugin configured", "mode", b.cfg.Mode, "root", root)

	build.OnResolve(api.OnResolveOptions{Filter: prefixFilter}, b.onResolve)
	build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: Namespace}, b.onLoadVirtual)
	build.OnLoad(api.OnLoadOptions{Filter: sourceFilter, Namespace: "file"}, b.onLoadSource)
}

type binding struct {
	plugin  domain.Plugin
	opts    Options
	fs      adapter.SourceFSAdapter
	ctx     context.Context
	cfg     m.BuildConfig
	rootDir string
}

func (b *binding) onResolve(args api.OnResolveArgs) (api.OnResolveResult, error) {
	id, ok, err := b.plugin.ResolveID(b.ctx, b.cfg, args.Path, m.Path(args.Importer))
	if err != nil {
		return api.OnResolveResult{}, err
	}

	if !ok {
		return api.OnResolveResult{}, nil
	}

	return api.OnResolveResult{Path: id, Namespace: Namespace}, nil
}

func (b *binding) onLoadVirtual(args api.OnLoadArgs) (api.OnLoadResult, error) {
	body, ok, err := b.plugin.Load(b.ctx, b.cfg, args.Path)
	if err != nil {
		return api.OnLoadResult{}, err
	}

	if !ok {
		return api.OnLoadResult{}, nil
	}

	resolveDir := b.rootDir
	if _, target, isVirtual := domain.ParseID(args.Path); isVirtual && filepath.IsAbs(target) {
		resolveDir = filepath.Dir(target)
	}

	// Legacy factories use the constructor syntax and need rewriting.
	result, err := b.plugin.Transform(b.ctx, b.cfg, m.TransformInput{ID: m.Path(args.Path), Code: body})
	if err != nil {
		return locatedError(err)
	}

	if result != nil {
		body = result.Code
		b.notify(result.Matches, m.Path(args.Path))
	}

	return api.OnLoadResult{
		Contents:   &body,
		Loader:     api.LoaderJS,
		ResolveDir: resolveDir,
	}, nil
}

func (b *binding) onLoadSource(args api.OnLoadArgs) (api.OnLoadResult, error) {
	if strings.Contains(filepath.ToSlash(args.Path), "/node_modules/") {
		return api.OnLoadResult{}, nil
	}

	data, err := b.fs.ReadFile(b.ctx, m.Path(args.Path))
	if err != nil {
		return api.OnLoadResult{}, err
	}

	result, err := b.plugin.Transform(b.ctx, b.cfg, m.TransformInput{ID: m.Path(args.Path), Code: string(data)})
	if err != nil {
		return locatedError(err)
	}

	if result == nil {
		return api.OnLoadResult{}, nil
	}

	contents := result.Code

	if b.opts.InlineSourceMap && result.Map != nil {
		comment, err := result.Map.Comment()
		if err != nil {
			return api.OnLoadResult{}, err
		}

		contents += comment
	}

	b.notify(result.Matches, m.Path(args.Path))

	return api.OnLoadResult{
		Contents:   &contents,
		Loader:     LoaderFor(args.Path),
		ResolveDir: filepath.Dir(args.Path),
	}, nil
}

func (b *binding) notify(matches []m.Match, importer m.Path) {
	if b.opts.OnWorker == nil {
		return
	}

	for _, match := range matches {
		id, ok, err := b.plugin.ResolveID(b.ctx, b.cfg, domain.SynthesizeID(match.Kind, match.Specifier), importer)
		if err != nil || !ok {
			continue
		}

		b.opts.OnWorker(id)
	}
}

// locatedError reports a TransformError at its position in the file.
func locatedError(err error) (api.OnLoadResult, error) {
	var transformErr *domain.TransformError
	if !errors.As(err, &transformErr) {
		return api.OnLoadResult{}, err
	}

	return api.OnLoadResult{
		Errors: []api.Message{{
			Text: transformErr.Err.Error(),
			Location: &api.Location{
				File:   string(transformErr.File),
				Line:   transformErr.Line,
				Column: transformErr.Column - 1,
			},
		}},
	}, nil
}

// ResolveMode picks the build mode: an explicit mode wins, then the
// process.env.NODE_ENV define, then production.
func ResolveMode(explicit m.BuildMode, define map[string]string) m.BuildMode {
	if explicit != "" {
		return explicit
	}

	if env, ok := define[nodeEnvKey]; ok && strings.Trim(env, `"'`) == string(m.ModeDevelopment) {
		return m.ModeDevelopment
	}

	return m.ModeProduction
}

// LoaderFor picks the esbuild loader for a source file by extension.
func LoaderFor(path string) api.Loader {
	switch filepath.Ext(path) {
	case ".ts", ".mts", ".cts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	case ".jsx":
		return api.LoaderJSX
	default:
		return api.LoaderJS
	}
}

func defines(options *api.BuildOptions) map[string]string {
	if options == nil {
		return nil
	}

	return options.Define
}

func rootDir(root m.Path, options *api.BuildOptions) m.Path {
	if root != "" {
		return m.Path(filepath.ToSlash(string(root)))
	}

	if options != nil && options.AbsWorkingDir != "" {
		return m.Path(filepath.ToSlash(options.AbsWorkingDir))
	}

	if wd, err := os.Getwd(); err == nil {
		return m.Path(filepath.ToSlash(wd))
	}

	return ""
}

// hostResolver resolves specifiers through esbuild's own resolver so legacy
// imports follow the build's resolution rules.
type hostResolver struct {
	build api.PluginBuild
}

func (r *hostResolver) Resolve(ctx context.Context, specifier string, importer m.Path) (m.Path, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	result := r.build.Resolve(specifier, api.ResolveOptions{
		Importer:   string(importer),
		ResolveDir: filepath.Dir(string(importer)),
		Namespace:  "file",
		Kind:       api.ResolveJSImportStatement,
	})

	if len(result.Errors) > 0 || result.External || result.Path == "" {
		return "", false, nil
	}

	return m.Path(filepath.ToSlash(result.Path)), true, nil
}
