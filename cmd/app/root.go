package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"skitgen/cfg"
	"skitgen/pkg/slg"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	logLevel string
	envFile  string
)

var rootCmd = &cobra.Command{
	Use:   "app",
	Short: "Generate character dialogue videos from a config document",
	Long: `app turns a project config into a finished short video:

  script  - the LLM writes a dialogue between the configured characters
  tts     - every line is voiced by the Chatterbox TTS server
  video   - clips, character images and subtitles are rendered over a background

"run" chains every stage the config enables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.json", "path to the project config (.json, .yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level from the config")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file with API keys, ignored when missing")

	rootCmd.AddCommand(runCmd, scriptCmd, ttsCmd, videoCmd, voicesCmd, serveCmd, validateCmd)
}

// loadConfig reads the env file and the config, then installs the configured logger.
func loadConfig() (*cfg.Config, *slog.Logger, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	c, err := cfg.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	if logLevel != "" {
		c.Log.Level = logLevel
	}

	logger := slg.New(os.Stdout, c.Log)
	slog.SetDefault(logger)

	return c, logger, nil
}
