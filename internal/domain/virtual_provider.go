package domain

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"workerlink.dev/pkg/workerlink/internal/adapter"
	"workerlink.dev/pkg/workerlink/internal/ctxlog"
	m "workerlink.dev/pkg/workerlink/internal/model"
)

// VirtualModuleProvider serves the synthesized worker modules referenced by
// rewritten call sites.
type VirtualModuleProvider interface {
	// ResolveID claims identifiers carrying a reserved prefix. Relative
	// targets are made absolute against the importer's directory.
	ResolveID(ctx context.Context, cfg m.BuildConfig, specifier string, importer m.Path) (string, bool)

	// Load synthesizes the module body for a claimed identifier. It fails when
	// the target behind the prefix cannot be resolved to a file.
	Load(ctx context.Context, cfg m.BuildConfig, id string) (string, bool, error)
}

type virtualProvider struct {
	adapter.ModuleResolver
}

// NewVirtualModuleProvider creates a VirtualModuleProvider resolving targets
// through resolver.
func NewVirtualModuleProvider(resolver adapter.ModuleResolver) VirtualModuleProvider {
	return &virtualProvider{ModuleResolver: resolver}
}

func (p *virtualProvider) ResolveID(_ context.Context, cfg m.BuildConfig, specifier string, importer m.Path) (string, bool) {
	kind, target, ok := ParseID(specifier)
	if !ok {
		return "", false
	}

	target = filepath.ToSlash(target)

	if adapter.IsRelativeSpecifier(target) {
		if base := importerDir(importer, cfg.Root); base != "" {
			target = path.Join(base, target)
		}
	}

	return SynthesizeID(kind, target), true
}

func (p *virtualProvider) Load(ctx context.Context, cfg m.BuildConfig, id string) (string, bool, error) {
	kind, target, ok := ParseID(id)
	if !ok {
		return "", false, nil
	}

	target = stripQuery(filepath.ToSlash(target))
	if target == "" {
		return "", true, fmt.Errorf("%w: %q names no file", ErrTargetNotFound, id)
	}

	if !path.IsAbs(target) && !filepath.IsAbs(target) && !adapter.IsRelativeSpecifier(target) {
		target = "./" + target
	}

	resolved, found, err := p.Resolve(ctx, target, "")
	if err != nil {
		return "", true, fmt.Errorf("%w: %s: %w", ErrTargetNotFound, target, err)
	}

	if !found {
		return "", true, fmt.Errorf("%w: %s (from %s)", ErrTargetNotFound, target, id)
	}

	plugin := cfg.Plugin.WithDefaults()
	body := workerModule(kind, filepath.ToSlash(string(resolved)), plugin.ExposeModule)

	ctxlog.FromContext(ctx).Debug("synthesized worker module", "id", id, "kind", kind, "target", resolved)

	return body, true, nil
}

// workerModule renders the module that exposes target's namespace. Shared
// workers expose it once per connecting context, on the port delivered with
// that connection.
func workerModule(kind m.WorkerKind, target, exposeModule string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "import {expose} from %s;\n", quoteJS(exposeModule))
	fmt.Fprintf(&b, "import * as api from %s;\n\n", quoteJS(target))

	if kind == m.KindShared {
		b.WriteString("addEventListener('connect', (event) => {\n")
		b.WriteString("  const port = event.ports[0];\n")
		b.WriteString("  expose(api, port);\n")
		b.WriteString("});\n")

		return b.String()
	}

	b.WriteString("expose(api);\n")

	return b.String()
}

// importerDir returns the directory relative targets resolve against. A
// virtual importer contributes the directory of its own target.
func importerDir(importer m.Path, root m.Path) string {
	if importer != "" {
		imp := filepath.ToSlash(string(importer))
		if _, target, ok := ParseID(imp); ok {
			imp = target
		}

		return path.Dir(stripQuery(imp))
	}

	return filepath.ToSlash(string(root))
}

// stripQuery drops a `?query` or `#hash` suffix appended by the host.
func stripQuery(id string) string {
	if i := strings.IndexAny(id, "?#"); i >= 0 {
		return id[:i]
	}

	return id
}
