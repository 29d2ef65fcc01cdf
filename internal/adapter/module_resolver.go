package adapter

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	m "workerlink.dev/pkg/workerlink/internal/model"
)

// ModuleResolver is the host's module path resolution service. Hooks call it
// to turn an import specifier into a loadable file path.
type ModuleResolver interface {
	// Resolve returns the resolved path and true, or false when the specifier
	// cannot be resolved from importer.
	Resolve(ctx context.Context, specifier string, importer m.Path) (m.Path, bool, error)
}

// DefaultExtensions are probed, in order, for extension-less specifiers.
var DefaultExtensions = []string{".ts", ".tsx", ".mts", ".js", ".jsx", ".mjs", ".cjs"}

// LocalModuleResolver resolves relative and absolute specifiers against the
// filesystem. Bare package specifiers are left to the host.
type LocalModuleResolver struct {
	fs         SourceFSAdapter
	root       m.Path
	extensions []string
}

// NewLocalModuleResolver constructs a resolver rooted at root; specifiers
// without an importer are resolved relative to it.
func NewLocalModuleResolver(fsAdapter SourceFSAdapter, root m.Path) *LocalModuleResolver {
	return &LocalModuleResolver{
		fs:         fsAdapter,
		root:       root,
		extensions: DefaultExtensions,
	}
}

// Resolve implements ModuleResolver.
func (r *LocalModuleResolver) Resolve(ctx context.Context, specifier string, importer m.Path) (m.Path, bool, error) {
	base, ok := r.base(specifier, importer)
	if !ok {
		return "", false, nil
	}

	for _, candidate := range r.candidates(base) {
		info, err := r.fs.FileInfo(ctx, m.Path(candidate))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return "", false, err
		}

		if info.Mode().IsRegular() {
			return m.Path(filepath.ToSlash(candidate)), true, nil
		}
	}

	return "", false, nil
}

func (r *LocalModuleResolver) base(specifier string, importer m.Path) (string, bool) {
	switch {
	case filepath.IsAbs(specifier):
		return filepath.Clean(specifier), true
	case IsRelativeSpecifier(specifier):
		dir := string(r.root)
		if importer != "" {
			dir = filepath.Dir(string(importer))
		}

		return filepath.Join(dir, specifier), true
	default:
		return "", false
	}
}

func (r *LocalModuleResolver) candidates(base string) []string {
	candidates := []string{base}

	for _, ext := range r.extensions {
		candidates = append(candidates, base+ext)
	}

	for _, ext := range r.extensions {
		candidates = append(candidates, filepath.Join(base, "index"+ext))
	}

	return candidates
}

// IsRelativeSpecifier reports whether specifier starts with ./ or ../.
func IsRelativeSpecifier(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}
