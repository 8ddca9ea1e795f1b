// Package segment implements the "segment" subcommand: run the v2
// highlight pipeline against a single video file.
package segment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/highlightlab/clipline/internal/decoder"
	"github.com/highlightlab/clipline/internal/hostconf"
	"github.com/highlightlab/clipline/internal/pipeline"
	"github.com/highlightlab/clipline/internal/pipelinemetrics"
)

// Command creates the "segment" subcommand for analyzing a single video.
func Command(settings *hostconf.Settings) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "segment [video]",
		Short: "Segment a single video into highlight clips",
		Long:  `Run the v2 segmentation pipeline against one video file and print the resulting clip list as JSON.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

			go func() {
				sig := <-sigChan
				fmt.Print("\n")
				fmt.Printf("received signal %v, initiating graceful shutdown...\n", sig)
				cancel()
			}()

			videoPath := args[0]

			factory := decoder.NewFFmpegFactory()
			if settings.Decoder.FFmpegPath != "" {
				factory.FFmpegPath = settings.Decoder.FFmpegPath
			}
			if settings.Decoder.FFprobePath != "" {
				factory.FFprobePath = settings.Decoder.FFprobePath
			}

			var metrics *pipelinemetrics.Collector
			if settings.Metrics.Enabled {
				metrics = pipelinemetrics.Get()
			}

			runner := pipeline.New(factory, metrics)

			req := pipeline.Request{
				VideoPath:  videoPath,
				ProjectDir: settings.ProjectDir,
				Config:     settings.Pipeline,
			}
			if !quiet {
				req.Progress = func(pct float64, message string) {
					fmt.Fprintf(os.Stderr, "[%5.1f%%] %s\n", pct, message)
				}
			}

			result, err := runner.Run(ctx, req)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result.Clips())
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress progress output on stderr")

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *hostconf.Settings) error {
	cmd.Flags().Float64Var(&settings.Pipeline.MinClipSeconds, "min-clip-seconds", viper.GetFloat64("pipeline.minclipseconds"), "Minimum clip duration")
	cmd.Flags().Float64Var(&settings.Pipeline.MaxClipSeconds, "max-clip-seconds", viper.GetFloat64("pipeline.maxclipseconds"), "Maximum clip duration")
	cmd.Flags().IntVar(&settings.Pipeline.TargetClipCountSoft, "target-clips", viper.GetInt("pipeline.targetclipcountsoft"), "Soft cap on emitted clip count")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
