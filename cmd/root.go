// root.go viper root command code
package cmd

import (
	"fmt"
	"log"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/highlightlab/clipline/cmd/batch"
	"github.com/highlightlab/clipline/cmd/segment"
	"github.com/highlightlab/clipline/internal/hostconf"
	"github.com/highlightlab/clipline/internal/logging"
)

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// RootCommand creates and returns the root command.
func RootCommand(settings *hostconf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "clipline",
		Short: "clipline CLI — highlight-clip segmentation",
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		log.Printf("error setting up flags: %v\n", err)
	}

	segmentCmd := segment.Command(settings)
	batchCmd := batch.Command(settings)

	rootCmd.AddCommand(segmentCmd, batchCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logging.Init(logging.Options{
			LogFilePath: settings.Log.FilePath,
			MaxSizeMB:   settings.Log.MaxSizeMB,
			MaxBackups:  settings.Log.MaxBackups,
			MaxAgeDays:  settings.Log.MaxAgeDays,
			Level:       parseLevel(settings.Log.Level),
		})
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, settings *hostconf.Settings) error {
	rootCmd.PersistentFlags().StringVar(&settings.ProjectDir, "project-dir", viper.GetString("project_dir"), "Directory for feature cache and debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Log.Level, "log-level", viper.GetString("log.level"), "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&settings.Pipeline.WriteDebugJSON, "debug-json", settings.Pipeline.WriteDebugJSON, "Write the segmentation debug JSON artifact")
	rootCmd.PersistentFlags().BoolVar(&settings.Pipeline.WriteDebugPlot, "debug-plot", settings.Pipeline.WriteDebugPlot, "Write the segmentation timeline PNG plot")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
