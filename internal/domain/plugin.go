package domain

import (
	"context"

	m "workerlink.dev/pkg/workerlink/internal/model"
)

// PluginName identifies the plugin to hosts.
const PluginName = "comlink"

// Plugin is the set of hooks a host build pipeline invokes. The host calls
// ConfigResolved once and hands the returned BuildConfig to every later hook.
type Plugin interface {
	Name() string
	ConfigResolved(host m.HostConfig) m.BuildConfig
	ResolveID(ctx context.Context, cfg m.BuildConfig, specifier string, importer m.Path) (string, bool, error)
	Load(ctx context.Context, cfg m.BuildConfig, id string) (string, bool, error)
	Transform(ctx context.Context, cfg m.BuildConfig, input m.TransformInput) (*m.TransformResult, error)
}

type plugin struct {
	options m.PluginOptions
	Rewriter
	virtual VirtualModuleProvider
	legacy  LegacyProvider
}

// NewPlugin assembles the hooks from their components.
func NewPlugin(options m.PluginOptions, rewriter Rewriter, virtual VirtualModuleProvider, legacy LegacyProvider) Plugin {
	return &plugin{
		options:  options.WithDefaults(),
		Rewriter: rewriter,
		virtual:  virtual,
		legacy:   legacy,
	}
}

func (p *plugin) Name() string {
	return PluginName
}

func (p *plugin) ConfigResolved(host m.HostConfig) m.BuildConfig {
	mode := host.Mode
	if mode == "" {
		mode = m.ModeProduction
	}

	return m.BuildConfig{
		Mode:   mode,
		Root:   host.Root,
		Plugin: p.options,
	}
}

func (p *plugin) ResolveID(ctx context.Context, cfg m.BuildConfig, specifier string, importer m.Path) (string, bool, error) {
	if id, ok := p.virtual.ResolveID(ctx, cfg, specifier, importer); ok {
		return id, true, nil
	}

	if p.legacy == nil {
		return "", false, nil
	}

	return p.legacy.ResolveID(ctx, cfg, specifier, importer)
}

func (p *plugin) Load(ctx context.Context, cfg m.BuildConfig, id string) (string, bool, error) {
	if body, ok, err := p.virtual.Load(ctx, cfg, id); ok || err != nil {
		return body, ok, err
	}

	if p.legacy == nil {
		return "", false, nil
	}

	return p.legacy.Load(ctx, cfg, id)
}
