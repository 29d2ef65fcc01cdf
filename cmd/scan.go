package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"workerlink.dev/pkg/workerlink/internal/controller"
	m "workerlink.dev/pkg/workerlink/internal/model"
)

const scanLongDescription = `List the worker constructors found in the given paths without rewriting
anything (default: current directory). Files without any are omitted.

` + pathPatternsHelp

const formatFlagName = "format"

// scanCmd represents the scan command.
var scanCmd = newScanCmd()

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "List worker call sites",
		Long:  scanLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString(formatFlagName)

			format, ok := controller.ParseOutputFormat(name)
			if !ok {
				return fmt.Errorf("unknown --%s %q (want %s or %s)", formatFlagName, name, controller.FormatTable, controller.FormatYAML)
			}

			return runScan(cmd, parsePaths(args), format)
		},
	}

	cmd.Flags().StringP(formatFlagName, "f", string(controller.FormatTable), "output format: table or yaml")
	cmd.Flags().IntP(parallelFlagName, "p", 0, "number of files scanned in parallel (default "+transformParallelKey+")")

	return cmd
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, paths []m.Path, format controller.OutputFormat) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)

	files, err := collectSources(ctx, paths)
	if err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		results []m.FileMatches
	)

	err = forEachSource(ctx, files, parallelism(cmd, settings), func(ctx context.Context, _ int, file sourceFile) error {
		matches, err := rewriter.Scan(ctx, file.code)
		if err != nil {
			return fmt.Errorf("scan %s: %w", file.path, err)
		}

		if len(matches) == 0 {
			return nil
		}

		mu.Lock()
		results = append(results, m.FileMatches{Path: file.path, Matches: matches})
		mu.Unlock()

		return nil
	})
	if err != nil {
		return err
	}

	return newUI(cmd).DisplayScan(ctx, results, format)
}
