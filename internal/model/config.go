package model

// BuildMode discriminates development builds from production builds.
type BuildMode string

const (
	// ModeDevelopment forces module workers so dev servers can serve ES modules.
	ModeDevelopment BuildMode = "development"
	// ModeProduction leaves worker options as authored.
	ModeProduction BuildMode = "production"
)

// IsDevelopment reports whether m is the development mode.
func (m BuildMode) IsDevelopment() bool {
	return m == ModeDevelopment
}

const (
	// DefaultReplacement is the class instantiated for dedicated workers.
	DefaultReplacement = "Worker"
	// DefaultReplacementShared is the class instantiated for shared workers.
	DefaultReplacementShared = "SharedWorker"
	// DefaultRPCModule is the module providing wrap and expose.
	DefaultRPCModule = "comlink"
)

// PluginOptions are the options a plugin is constructed with.
type PluginOptions struct {
	// Replacement is the default endpoint class for dedicated workers.
	Replacement string `mapstructure:"replacement" yaml:"replacement"`
	// ReplacementShared is the default endpoint class for shared workers.
	ReplacementShared string `mapstructure:"replacement_shared" yaml:"replacement_shared"`
	// WrapModule is imported by rewritten files for the wrap function.
	WrapModule string `mapstructure:"wrap_module" yaml:"wrap_module"`
	// ExposeModule is imported by virtual worker modules for expose.
	ExposeModule string `mapstructure:"expose_module" yaml:"expose_module"`
	// SourceMapHires maps every character of unchanged text instead of one
	// segment per line.
	SourceMapHires bool `mapstructure:"sourcemap_hires" yaml:"sourcemap_hires"`
}

// WithDefaults fills every empty option with its default.
func (o PluginOptions) WithDefaults() PluginOptions {
	if o.Replacement == "" {
		o.Replacement = DefaultReplacement
	}

	if o.ReplacementShared == "" {
		o.ReplacementShared = DefaultReplacementShared
	}

	if o.WrapModule == "" {
		o.WrapModule = DefaultRPCModule
	}

	if o.ExposeModule == "" {
		o.ExposeModule = DefaultRPCModule
	}

	return o
}

// DefaultClass returns the configured endpoint class for kind.
func (o PluginOptions) DefaultClass(kind WorkerKind) string {
	if kind == KindShared {
		return o.ReplacementShared
	}

	return o.Replacement
}

// HostConfig is what the host reports once its configuration is resolved.
type HostConfig struct {
	Mode BuildMode
	Root Path
}

// BuildConfig is the immutable per-build configuration handed to every hook.
// It is produced once when the host configuration is resolved.
type BuildConfig struct {
	Mode   BuildMode
	Root   Path
	Plugin PluginOptions
}
