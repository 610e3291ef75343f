package main

import (
	"context"
	"fmt"

	"skitgen/cfg"
	"skitgen/internal/app/pipeline"

	"github.com/spf13/cobra"
)

var (
	entriesPath string
	audioDir    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every stage the config enables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline, c *cfg.Config) (*pipeline.Result, error) {
			return p.Run(ctx, c)
		})
	},
}

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Generate and save the dialogue only",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline, c *cfg.Config) (*pipeline.Result, error) {
			return p.RunScript(ctx, c)
		})
	},
}

var ttsCmd = &cobra.Command{
	Use:   "tts",
	Short: "Voice a saved script and continue to video when configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline, c *cfg.Config) (*pipeline.Result, error) {
			return p.RunSpeech(ctx, c, entriesPath)
		})
	},
}

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Render a video from previously synthesized clips",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline, c *cfg.Config) (*pipeline.Result, error) {
			dir := audioDir
			if dir == "" {
				dir = c.TTSDir()
			}
			return p.RunVideo(ctx, c, dir)
		})
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the config without running anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), renderConfig(c))
		return nil
	},
}

func init() {
	ttsCmd.Flags().StringVar(&entriesPath, "entries", "", "script entries json or a NAME: text dialogue file")
	_ = ttsCmd.MarkFlagRequired("entries")

	videoCmd.Flags().StringVar(&audioDir, "audio-dir", "", "directory holding audio_script.json (default <project>/tts)")
}

type pipelineFunc func(ctx context.Context, p *pipeline.Pipeline, c *cfg.Config) (*pipeline.Result, error)

func runPipeline(cmd *cobra.Command, fn pipelineFunc) error {
	c, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	runs, closeLedger := openLedger(ctx, c, logger)
	defer closeLedger()

	deps, closeDeps, err := newDeps(ctx, c, logger, runs, pipeline.LogObserver(logger), nil)
	defer closeDeps()
	if err != nil {
		return err
	}

	res, err := fn(ctx, pipeline.New(*deps), c)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(c, res))
	return nil
}
