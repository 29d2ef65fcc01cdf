package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	m "workerlink.dev/pkg/workerlink/internal/model"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "workerlink"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	modeFlagName              = "mode"
	rootFlagName              = "root"
	replacementFlagName       = "replacement"
	replacementSharedFlagName = "replacement-shared"
	wrapModuleFlagName        = "wrap-module"
	exposeModuleFlagName      = "expose-module"
	hiresFlagName             = "hires"
	verboseFlagName           = "verbose"
	logFileFlagName           = "log-file"
	parallelFlagName          = "parallel"
	sourcemapFlagName         = "sourcemap"

	modeKey                    = "mode"
	rootKey                    = "root"
	pluginReplacementKey       = "plugin.replacement"
	pluginReplacementSharedKey = "plugin.replacement_shared"
	pluginWrapModuleKey        = "plugin.wrap_module"
	pluginExposeModuleKey      = "plugin.expose_module"
	pluginHiresKey             = "plugin.sourcemap_hires"
	transformParallelKey       = "transform.parallel"
	transformSourcemapKey      = "transform.sourcemap"

	defaultMode              = m.ModeProduction
	defaultRoot              = "."
	defaultTransformParallel = 4
	defaultTransformMaps     = false

	envPrefix = "WORKERLINK"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".workerlink.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	initConfig()
}

// initConfig registers config file lookup, env binding and defaults.
func initConfig() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(modeKey, string(defaultMode))
	viper.SetDefault(rootKey, defaultRoot)
	viper.SetDefault(pluginReplacementKey, m.DefaultReplacement)
	viper.SetDefault(pluginReplacementSharedKey, m.DefaultReplacementShared)
	viper.SetDefault(pluginWrapModuleKey, m.DefaultRPCModule)
	viper.SetDefault(pluginExposeModuleKey, m.DefaultRPCModule)
	viper.SetDefault(pluginHiresKey, false)
	viper.SetDefault(transformParallelKey, defaultTransformParallel)
	viper.SetDefault(transformSourcemapKey, defaultTransformMaps)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	// A missing or unreadable config file leaves the defaults in place.
	_ = viper.ReadInConfig()
}

// appConfig is the decoded configuration: file values overridden by env
// vars and bound flags.
type appConfig struct {
	Mode      string          `mapstructure:"mode"`
	Root      string          `mapstructure:"root"`
	Plugin    m.PluginOptions `mapstructure:"plugin"`
	Transform transformConfig `mapstructure:"transform"`
}

type transformConfig struct {
	Parallel  int  `mapstructure:"parallel"`
	Sourcemap bool `mapstructure:"sourcemap"`
}

// buildSettings is what every command derives from appConfig.
type buildSettings struct {
	mode      m.BuildMode
	root      m.Path
	plugin    m.PluginOptions
	transform transformConfig
}

func loadSettings() (buildSettings, error) {
	var cfg appConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return buildSettings{}, fmt.Errorf("decode config: %w", err)
	}

	mode, err := parseBuildMode(cfg.Mode)
	if err != nil {
		return buildSettings{}, err
	}

	root, err := absRoot(cfg.Root)
	if err != nil {
		return buildSettings{}, err
	}

	if cfg.Transform.Parallel < 1 {
		cfg.Transform.Parallel = 1
	}

	return buildSettings{
		mode:      mode,
		root:      root,
		plugin:    cfg.Plugin.WithDefaults(),
		transform: cfg.Transform,
	}, nil
}

func parseBuildMode(value string) (m.BuildMode, error) {
	switch mode := m.BuildMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case m.ModeDevelopment, m.ModeProduction:
		return mode, nil
	case "dev":
		return m.ModeDevelopment, nil
	case "", "prod":
		return m.ModeProduction, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want %s or %s)", value, m.ModeDevelopment, m.ModeProduction)
	}
}

func absRoot(root string) (m.Path, error) {
	if strings.TrimSpace(root) == "" {
		root = defaultRoot
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}

	return m.Path(filepath.ToSlash(abs)), nil
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
