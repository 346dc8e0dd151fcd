package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vyvo/studio/pkg/mystic"
	"github.com/vyvo/studio/pkg/telemetry"
	"github.com/vyvo/studio/pkg/workflow"
)

var errGenerationFailed = errors.New("generation did not produce an image")

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Submit a prompt and poll until the image is ready",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := telemetry.InitTracer(ctx, "studio-cli", cfg.TraceStdout, logger)
	defer func() {
		_ = shutdown(cmd.Context())
	}()

	controller := workflow.NewController(mystic.NewClient(cfg.MysticOptions()),
		workflow.WithInterval(cfg.PollInterval),
		workflow.WithLogger(logger),
	)

	out := cmd.OutOrStdout()
	job, err := controller.Submit(ctx, strings.Join(args, " "))
	if err != nil {
		fmt.Fprintln(out, workflow.Describe(err))
		return err
	}
	fmt.Fprintf(out, "%s (task %s)\n", workflow.MessageGenerating, job.TaskID)

	var last workflow.Update
	for update := range controller.Poll(ctx, job) {
		last = update
		switch update.Kind {
		case workflow.KindProgress:
			logger.Debug().Int("attempt", update.Attempt).Str("status", string(update.Status)).Msg("still generating")
		case workflow.KindCompleted:
			fmt.Fprintln(out, update.Message)
			if update.NSFW {
				fmt.Fprintln(out, "(flagged as NSFW)")
			}
			fmt.Fprintln(out, update.Artifact)
		default:
			fmt.Fprintln(out, update.Message)
		}
	}

	if ctx.Err() != nil {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}
	if last.Kind != workflow.KindCompleted {
		return errGenerationFailed
	}
	return nil
}
