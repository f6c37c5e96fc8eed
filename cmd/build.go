package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/rubric-evaluator/internal/assets"
	"github.com/spigell/rubric-evaluator/internal/rubric"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var errExit = errors.New("exit requested")

var buildCmd = &cobra.Command{
	Use:   "build <rubric-definition.json>",
	Short: "Compile a rubric and build its exemplar corpus",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		build(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().BoolP("yes", "y", false, "replace existing assets without asking")
	buildCmd.Flags().StringP("examples-file", "e", "", "worked examples library (default from config)")

	viper.BindPFlag("examples-file", buildCmd.Flags().Lookup("examples-file"))
}

func build(cmd *cobra.Command, definitionPath string) {
	rt := setup()
	defer rt.close()

	var def rubric.Definition
	if err := readJSON(definitionPath, &def); err != nil {
		rt.logger.Fatal("reading rubric definition", zap.Error(err))
	}

	rubricID := strconv.Itoa(def.JobPostingID)
	if rt.store.Exists(rubricID) && cmd.Flag("yes").Value.String() == "false" {
		if err := confirmReplace(rubricID); err != nil {
			if errors.Is(err, errExit) {
				rt.logger.Info("exiting", zap.String("reason", "got no from prompt"))
				return
			}
			rt.logger.Fatal("exiting", zap.Error(err))
		}
	}

	examples, err := assets.LoadExamples(rt.config.ExamplesFile)
	if err != nil {
		rt.logger.Fatal("loading worked examples", zap.Error(err))
	}

	rt.logger.Info("starting the build run",
		zap.String("version", version),
		zap.String("rubric_id", rubricID),
		zap.Int("example_sets", len(examples)),
	)

	result, err := rt.builder.Run(context.Background(), &def, examples)
	if err != nil {
		rt.logger.Fatal("build run failed", zap.Error(err))
	}

	success, fail := result.Stats.Totals()
	fmt.Fprintf(cmd.OutOrStdout(), "rubric %s built: %d resume rules, %d criteria, %d exemplars (%d extractions failed)\n",
		result.Config.RubricID, len(result.Config.ResumeItems), len(result.Corpus.Criteria), success, fail)
}

func confirmReplace(rubricID string) error {
	prompt := promptui.Select{
		Label: fmt.Sprintf("Assets for rubric %s already exist. Replace them?", rubricID),
		Items: []string{PromptYes, PromptNo},
	}

	_, action, err := prompt.Run()
	if err != nil {
		return err
	}
	if action != PromptYes {
		return errExit
	}
	return nil
}
