package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/rubric-evaluator/internal/applicant"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <application.json>",
	Short: "Evaluate one application against its built rubric",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		evaluate(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().BoolP("print", "p", false, "print the report to stdout")
}

func evaluate(cmd *cobra.Command, submissionPath string) {
	rt := setup()
	defer rt.close()

	var sub applicant.Submission
	if err := readJSON(submissionPath, &sub); err != nil {
		rt.logger.Fatal("reading application", zap.Error(err))
	}

	rt.logger.Info("starting the evaluate run",
		zap.String("version", version),
		zap.String("rubric_id", sub.RubricID()),
		zap.Int("application_id", sub.ApplicationID),
	)

	report, err := rt.evaluator.Run(context.Background(), &sub)
	if err != nil {
		rt.logger.Fatal("evaluate run failed", zap.Error(err))
	}

	if cmd.Flag("print").Value.String() == "true" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(report); err != nil {
			rt.logger.Fatal("printing report", zap.Error(err))
		}
	}
}
