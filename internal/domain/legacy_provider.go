package domain

import (
	"context"
	"fmt"

	"workerlink.dev/pkg/workerlink/internal/adapter"
	"workerlink.dev/pkg/workerlink/internal/ctxlog"
	m "workerlink.dev/pkg/workerlink/internal/model"
)

// LegacyProvider supports the deprecated `import worker from 'comlink:./worker'`
// form by turning it into a factory around the current constructor syntax.
type LegacyProvider interface {
	ResolveID(ctx context.Context, cfg m.BuildConfig, specifier string, importer m.Path) (string, bool, error)
	Load(ctx context.Context, cfg m.BuildConfig, id string) (string, bool, error)
}

type legacyProvider struct {
	adapter.ModuleResolver
}

// NewLegacyProvider creates a LegacyProvider resolving targets through resolver.
func NewLegacyProvider(resolver adapter.ModuleResolver) LegacyProvider {
	return &legacyProvider{ModuleResolver: resolver}
}

func (p *legacyProvider) ResolveID(ctx context.Context, _ m.BuildConfig, specifier string, importer m.Path) (string, bool, error) {
	kind, target, ok := ParseLegacyID(specifier)
	if !ok {
		return "", false, nil
	}

	resolved, found, err := p.Resolve(ctx, target, importer)
	if err != nil {
		return "", false, fmt.Errorf("resolve %s: %w", specifier, err)
	}

	if !found {
		return "", false, nil
	}

	ctxlog.FromContext(ctx).Warn(fmt.Sprintf(
		"the usage of `import worker from %q` is deprecated, please move to the `new %s(...)` syntax",
		specifier, KeywordFor(kind)),
		"importer", importer)

	return LegacyPrefixFor(kind) + string(resolved), true, nil
}

func (p *legacyProvider) Load(_ context.Context, _ m.BuildConfig, id string) (string, bool, error) {
	kind, target, ok := ParseLegacyID(id)
	if !ok {
		return "", false, nil
	}

	return fmt.Sprintf("export default () => new %s(new URL(%s, %s));\n",
		KeywordFor(kind), quoteJS(target), importMetaURL), true, nil
}
