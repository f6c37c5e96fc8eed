package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/rubric-evaluator/internal/applicant"
	"github.com/spigell/rubric-evaluator/internal/assets"
	"github.com/spigell/rubric-evaluator/internal/inbox"
	"github.com/spigell/rubric-evaluator/internal/pipeline"
	"github.com/spigell/rubric-evaluator/internal/rubric"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the inbox and run builds and evaluations in the background",
	Run: func(_ *cobra.Command, _ []string) {
		watch()
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("inbox-dir", "", "inbox root directory (default from config)")
	watchCmd.Flags().Int("max-concurrent", 0, "maximum number of runs at once (default from config)")

	viper.BindPFlag("watch.inbox-dir", watchCmd.Flags().Lookup("inbox-dir"))
	viper.BindPFlag("watch.max-concurrent", watchCmd.Flags().Lookup("max-concurrent"))
}

func watch() {
	rt := setup()
	defer rt.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher := pipeline.NewDispatcher(ctx, rt.config.Watch.MaxConcurrent, rt.logger)
	watcher := inbox.New(rt.config.Watch.InboxDir, dispatchHandler(rt, dispatcher), rt.logger)

	rt.logger.Info("starting the watcher",
		zap.String("version", version),
		zap.String("inbox", rt.config.Watch.InboxDir),
		zap.Int("max_concurrent", rt.config.Watch.MaxConcurrent),
	)

	if err := watcher.Run(ctx); err != nil {
		rt.logger.Fatal("watching inbox", zap.Error(err))
	}

	rt.logger.Info("waiting for running jobs to finish")
	dispatcher.Wait()
	rt.logger.Info("exiting", zap.String("reason", "got signal"))
}

// dispatchHandler decodes inbox files and starts the matching run. Decoding
// errors reject the file; run errors only show up in the logs.
func dispatchHandler(rt *runtime, d *pipeline.Dispatcher) inbox.Handler {
	return func(_ context.Context, kind inbox.Kind, name string, data []byte) error {
		switch kind {
		case inbox.KindRubric:
			var def rubric.Definition
			if err := json.Unmarshal(data, &def); err != nil {
				return fmt.Errorf("decoding rubric definition %s: %w", name, err)
			}
			id := d.Submit(pipeline.KindBuild, func(ctx context.Context, log *zap.Logger) error {
				examples, err := assets.LoadExamples(rt.config.ExamplesFile)
				if err != nil {
					return err
				}
				_, err = rt.builder.WithLogger(log).Run(ctx, &def, examples)
				return err
			})
			rt.logger.Info("build run accepted", zap.String("file", name), zap.String("run_id", id))
		case inbox.KindApplication:
			var sub applicant.Submission
			if err := json.Unmarshal(data, &sub); err != nil {
				return fmt.Errorf("decoding application %s: %w", name, err)
			}
			id := d.Submit(pipeline.KindEvaluate, func(ctx context.Context, log *zap.Logger) error {
				_, err := rt.evaluator.WithLogger(log).Run(ctx, &sub)
				return err
			})
			rt.logger.Info("evaluate run accepted", zap.String("file", name), zap.String("run_id", id))
		default:
			return fmt.Errorf("unknown inbox kind %q", kind)
		}
		return nil
	}
}
