package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spigell/rubric-evaluator/internal/assets"
	"github.com/spigell/rubric-evaluator/internal/rubric"
)

// Actual version can be specified in build command.
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the artifact schema versions",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s version: %s\n", app, version)
		fmt.Fprintf(out, "scoring rules schema: %d\n", rubric.SchemaVersion)
		fmt.Fprintf(out, "exemplar corpus schema: %d\n", assets.CorpusSchemaVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
