// Package cmd provides the root command and CLI setup for workerlink.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"workerlink.dev/pkg/workerlink/internal/adapter"
	"workerlink.dev/pkg/workerlink/internal/controller"
	"workerlink.dev/pkg/workerlink/internal/ctxlog"
	"workerlink.dev/pkg/workerlink/internal/domain"
	m "workerlink.dev/pkg/workerlink/internal/model"
)

var fsAdapter adapter.SourceFSAdapter
var rewriter domain.Rewriter

// newUI builds the presentation adapter for a command: a pager on
// terminals, plain output otherwise.
var newUI = func(cmd *cobra.Command) controller.UI {
	return controller.NewUI(cmd, controller.IsTTY(cmd.OutOrStdout()))
}

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	rewriter = domain.NewRewriter()
}

const pathPatternsHelp = `Paths may be files or directories. Directories are walked recursively
for .js, .jsx, .ts, .tsx, .mjs, .cjs, .mts and .cts files; node_modules and
.git are skipped.`

const rootLongDescription = `workerlink rewrites worker constructors such as

  new ComlinkWorker(new URL('./worker.ts', import.meta.url))

into native workers wrapped by comlink, and serves the virtual modules that
expose the worker file's exports on the other side of the channel.

` + pathPatternsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "workerlink",
		Short:        "Worker RPC call-site rewriter for JavaScript builds",
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

// newRootCmd returns a root command with its persistent flags, detached from
// the registered subcommands.
func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.String(modeFlagName, viper.GetString(modeKey), "build mode: development forces module workers")
	bindFlagToConfig(flags.Lookup(modeFlagName), modeKey)

	flags.String(rootFlagName, viper.GetString(rootKey), "project root used to resolve worker targets without an importer")
	bindFlagToConfig(flags.Lookup(rootFlagName), rootKey)

	flags.String(replacementFlagName, viper.GetString(pluginReplacementKey), "class instantiated for ComlinkWorker")
	bindFlagToConfig(flags.Lookup(replacementFlagName), pluginReplacementKey)

	flags.String(replacementSharedFlagName, viper.GetString(pluginReplacementSharedKey), "class instantiated for ComlinkSharedWorker")
	bindFlagToConfig(flags.Lookup(replacementSharedFlagName), pluginReplacementSharedKey)

	flags.String(wrapModuleFlagName, viper.GetString(pluginWrapModuleKey), "module imported for wrap in rewritten files")
	bindFlagToConfig(flags.Lookup(wrapModuleFlagName), pluginWrapModuleKey)

	flags.String(exposeModuleFlagName, viper.GetString(pluginExposeModuleKey), "module imported for expose in worker modules")
	bindFlagToConfig(flags.Lookup(exposeModuleFlagName), pluginExposeModuleKey)

	flags.Bool(hiresFlagName, viper.GetBool(pluginHiresKey), "map every character of unchanged text in source maps")
	bindFlagToConfig(flags.Lookup(hiresFlagName), pluginHiresKey)

	flags.BoolP(verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(flags.Lookup(verboseFlagName), logVerboseKey)

	flags.String(logFileFlagName, viper.GetString(logFilenameKey), "log file path")
	bindFlagToConfig(flags.Lookup(logFileFlagName), logFilenameKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// newPlugin wires the hooks for one command run.
func newPlugin(settings buildSettings) domain.Plugin {
	resolver := adapter.NewLocalModuleResolver(fsAdapter, settings.root)

	return domain.NewPlugin(
		settings.plugin,
		rewriter,
		domain.NewVirtualModuleProvider(resolver),
		domain.NewLegacyProvider(resolver),
	)
}

// commandContext returns the command's context carrying the process logger.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if globalLogger != nil {
		ctx = ctxlog.WithLogger(ctx, globalLogger)
	}

	return ctx
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
