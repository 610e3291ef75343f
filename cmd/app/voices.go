package main

import (
	"fmt"
	"net/http"

	"skitgen/internal/app/failure"
	"skitgen/pkg/ai"
	"skitgen/pkg/ffmpeg"

	"github.com/spf13/cobra"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the voices and profiles available to characters",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := loadConfig()
		if err != nil {
			return err
		}
		if c.TTS == nil {
			return failure.Invalid("tts", "is required to list voices")
		}

		ctx := cmd.Context()
		client := ai.NewChatterboxClient(&http.Client{}, &c.TTS.Chatterbox, ffmpeg.New(&c.Ffmpeg))

		predefined, err := client.PredefinedVoices(ctx)
		if err != nil {
			return fmt.Errorf("failed to list predefined voices: %w", err)
		}

		references, err := client.ReferenceFiles(ctx)
		if err != nil {
			return fmt.Errorf("failed to list reference files: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), renderVoices(predefined, references, c.TTS.Catalog()))
		return nil
	},
}
