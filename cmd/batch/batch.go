// Package batch implements the "batch" subcommand: walk a directory of
// video files and run the v2 segmentation pipeline against each one in
// turn, writing each video's clip list and cache/debug artifacts under
// its own subdirectory of the project directory.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/highlightlab/clipline/internal/decoder"
	"github.com/highlightlab/clipline/internal/hostconf"
	"github.com/highlightlab/clipline/internal/logging"
	"github.com/highlightlab/clipline/internal/pipeline"
	"github.com/highlightlab/clipline/internal/pipelinemetrics"
)

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".avi": true, ".webm": true,
}

// Command creates the "batch" subcommand for analyzing every video in a
// directory.
func Command(settings *hostconf.Settings) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "batch [directory]",
		Short: "Segment every video file in a directory",
		Long:  "Walk a directory of video files and run the v2 segmentation pipeline against each one.",
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
			defer signal.Stop(sigChan)

			root := args[0]
			videos, err := discoverVideos(root, recursive)
			if err != nil {
				return fmt.Errorf("discovering videos under %s: %w", root, err)
			}

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
			log := logging.ForService("batch")

			results := make(map[string]any, len(videos))
			for _, videoPath := range videos {
				select {
				case <-ctx.Done():
					return nil
				default:
				}

				projectDir := filepath.Join(settings.ProjectDir, baseNameNoExt(videoPath))
				fmt.Fprintf(os.Stderr, "segmenting %s...\n", videoPath)

				result, err := runner.Run(ctx, pipeline.Request{
					VideoPath:  videoPath,
					ProjectDir: projectDir,
					Config:     settings.Pipeline,
					Progress: func(pct float64, message string) {
						fmt.Fprintf(os.Stderr, "  [%5.1f%%] %s\n", pct, message)
					},
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				if err != nil {
					log.Error("segmentation failed", "video", videoPath, "error", err)
					results[videoPath] = map[string]string{"error": err.Error()}
					continue
				}
				results[videoPath] = result.Clips()
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Recursively walk subdirectories")

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *hostconf.Settings) error {
	cmd.Flags().StringVar(&settings.ProjectDir, "project-dir", viper.GetString("project_dir"), "Parent directory for per-video feature cache and debug output")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

func discoverVideos(root string, recursive bool) ([]string, error) {
	var out []string
	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if videoExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				out = append(out, filepath.Join(root, e.Name()))
			}
		}
		return out, nil
	}

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if videoExtensions[strings.ToLower(filepath.Ext(info.Name()))] {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

func baseNameNoExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
