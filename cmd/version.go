package cmd

import (
	"runtime/debug"

	"github.com/spf13/cobra"
)

const esbuildModulePath = "github.com/evanw/esbuild"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version information",
		Long:  "Displays the build version, the bundled esbuild version and the Go version used to build this tool.",
		Run: func(cmd *cobra.Command, _ []string) {
			info, ok := debug.ReadBuildInfo()
			if !ok || info.Main.Version == "" {
				cmd.Println("version: unknown")
				return
			}

			cmd.Println("tool version\t", info.Main.Version)

			if v := dependencyVersion(info, esbuildModulePath); v != "" {
				cmd.Println("esbuild version\t", v)
			}

			cmd.Println("go version\t", info.GoVersion)
		},
	}
}

func dependencyVersion(info *debug.BuildInfo, path string) string {
	for _, dep := range info.Deps {
		if dep.Path != path {
			continue
		}

		if dep.Replace != nil {
			return dep.Replace.Version
		}

		return dep.Version
	}

	return ""
}

// versionCmd represents the version command.
var versionCmd = newVersionCmd()

func init() {
	rootCmd.AddCommand(versionCmd)
}
