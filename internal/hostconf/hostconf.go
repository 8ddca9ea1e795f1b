// Package hostconf loads the CLI host's own settings — where to write
// output clips, logging destination, default pipeline parameters — the
// same way the teacher loads its top-level config: viper reading a YAML
// file from a platform config directory, falling back to embedded
// defaults on first run (spec §12).
package hostconf

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/highlightlab/clipline/internal/pipelineconfig"
)

//go:embed config.yaml
var defaultConfig embed.FS

// Settings is the full set of host-level (non-pipeline-algorithm) knobs:
// where things live and how the process behaves. Pipeline algorithm
// parameters live in pipelineconfig.Config and are layered on top of
// Settings.Pipeline by the CLI.
type Settings struct {
	ProjectDir string `mapstructure:"project_dir"`

	Log struct {
		FilePath   string `mapstructure:"file_path"`
		Level      string `mapstructure:"level"`
		MaxSizeMB  int    `mapstructure:"max_size_mb"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAgeDays int    `mapstructure:"max_age_days"`
	} `mapstructure:"log"`

	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Addr    string `mapstructure:"addr"`
	} `mapstructure:"metrics"`

	Decoder struct {
		FFmpegPath        string  `mapstructure:"ffmpeg_path"`
		FFprobePath       string  `mapstructure:"ffprobe_path"`
		MaxSpawnPerSecond float64 `mapstructure:"max_spawn_per_second"`
	} `mapstructure:"decoder"`

	Pipeline pipelineconfig.Config `mapstructure:"pipeline"`
}

var (
	instance *Settings
	once     sync.Once
	mu       sync.RWMutex
)

// Load reads settings from configPath (or the platform default search
// path if empty), falling back to the module's embedded config.yaml
// defaults for any value the file and environment don't set. Safe to
// call more than once; only the first call populates the package-level
// instance returned by Get.
func Load(configPath string) (*Settings, error) {
	mu.Lock()
	defer mu.Unlock()

	v := viper.New()
	v.SetConfigType("yaml")

	defaultsBytes, err := defaultConfig.ReadFile("config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded defaults: %w", err)
	}
	if err := v.MergeConfig(bytes.NewReader(defaultsBytes)); err != nil {
		return nil, fmt.Errorf("merging embedded defaults: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.MergeInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
			}
		}
	} else {
		home, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(home, ".config", "clipline"))
		v.AddConfigPath(".")
		v.SetConfigName("clipline")
		_ = v.MergeInConfig() // fine if absent; embedded defaults already loaded
	}

	v.SetEnvPrefix("CLIPLINE")
	v.AutomaticEnv()

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unmarshaling settings: %w", err)
	}

	once.Do(func() { instance = settings })
	return settings, nil
}

// Get returns the package-level Settings populated by the first Load
// call, or nil if Load has never run.
func Get() *Settings {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}
