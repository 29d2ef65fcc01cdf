package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	m "workerlink.dev/pkg/workerlink/internal/model"
)

const importerFlagName = "importer"

// loadCmd represents the load command.
var loadCmd = newLoadCmd()

func newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <id>",
		Short: "Print the module synthesized for a worker id",
		Long: `Resolve a virtual worker id such as internal:comlink:./worker.ts (or a legacy
comlink:./worker import) and print the module the plugin serves for it.
Relative targets resolve against --importer, or --root without one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			importer, _ := cmd.Flags().GetString(importerFlagName)

			return runLoad(cmd, args[0], m.Path(importer))
		},
	}

	cmd.Flags().String(importerFlagName, "", "file the id is imported from")

	return cmd
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, specifier string, importer m.Path) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	plugin := newPlugin(settings)
	cfg := plugin.ConfigResolved(m.HostConfig{Mode: settings.mode, Root: settings.root})

	id, ok, err := plugin.ResolveID(ctx, cfg, specifier, importer)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("%q is not a worker module id", specifier)
	}

	body, ok, err := plugin.Load(ctx, cfg, id)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("%q is not a worker module id", id)
	}

	return newUI(cmd).DisplayModule(ctx, id, body)
}
