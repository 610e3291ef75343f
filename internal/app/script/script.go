package script

import (
	"context"
	"fmt"
	"log/slog"

	"skitgen/cfg"
	"skitgen/internal/app/failure"
	"skitgen/pkg/dialogue"
	"skitgen/pkg/llm"
	"skitgen/pkg/slg"
)

// Entry is one spoken line. Slice order is speaking order.
type Entry struct {
	Character cfg.Character `json:"character"`
	Content   string        `json:"content"`
}

// Generate asks the model for a script once and parses the answer.
func Generate(ctx context.Context, gen llm.Generator, sc *cfg.ScriptConfig, chars []cfg.Character) ([]Entry, error) {
	logger := slg.GetSlog(ctx).WithGroup("script")

	length, err := cfg.ParseLengthRange(sc.DialogueLength)
	if err != nil {
		return nil, failure.Invalid("script.dialogue_length", "%v", err)
	}

	raw, err := gen.Generate(ctx, BuildPrompt(sc, chars))
	if err != nil {
		return nil, fmt.Errorf("failed to generate script: %w", err)
	}

	logger.Debug("llm response", "bytes", len(raw))

	return Parse(raw, chars, sc.MalformedLines, length, logger)
}

// Parse turns raw model output into entries bound to configured characters.
func Parse(raw string, chars []cfg.Character, policy cfg.MalformedPolicy, length cfg.LengthRange, logger *slog.Logger) ([]Entry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	roster, byName := index(chars)
	lines, rejected := dialogue.Split(raw, roster.Lookup)

	if len(rejected) > 0 {
		if policy != cfg.MalformedDrop {
			r := rejected[0]
			return nil, &failure.FormatError{Line: r.Number, Text: r.Text}
		}
		for _, r := range rejected {
			logger.Warn("dropping malformed line", "line", r.Number, "text", r.Text)
		}
	}

	if len(lines) == 0 {
		return nil, &failure.FormatError{Text: "response contains no dialogue lines"}
	}

	if !length.Contains(len(lines)) {
		return nil, &failure.LengthError{Got: len(lines), Min: length.Min, Max: length.Max}
	}

	entries := make([]Entry, 0, len(lines))
	for _, l := range lines {
		entries = append(entries, Entry{
			Character: byName[l.Speaker],
			Content:   l.Text,
		})
	}

	return entries, nil
}
