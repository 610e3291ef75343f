package script

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"skitgen/cfg"
	"skitgen/internal/app/failure"
	"skitgen/pkg/dialogue"
)

const EntriesFile = "script_entries.json"

func SaveEntries(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create scripts dir: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entries: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write entries: %w", err)
	}

	return nil
}

// LoadEntries reads a saved script. When chars is non empty every entry must
// name one of them and picks up its current settings.
func LoadEntries(path string, chars []cfg.Character) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &failure.FormatError{Text: fmt.Sprintf("%s: %v", path, err)}
	}

	if len(chars) == 0 {
		return entries, nil
	}

	roster, byName := index(chars)
	for i := range entries {
		name, ok := roster.Lookup(entries[i].Character.Name)
		if !ok {
			return nil, &failure.FormatError{
				Line: i + 1,
				Text: fmt.Sprintf("unknown character %q", entries[i].Character.Name),
			}
		}
		entries[i].Character = byName[name]
	}

	return entries, nil
}

// LoadDialogueFile reads a hand written "NAME: text" script.
func LoadDialogueFile(path string, chars []cfg.Character, policy cfg.MalformedPolicy) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dialogue file: %w", err)
	}

	return Parse(string(data), chars, policy, cfg.LengthRange{Min: 1, Max: math.MaxInt}, nil)
}

func index(chars []cfg.Character) (*dialogue.Roster, map[string]cfg.Character) {
	byName := make(map[string]cfg.Character, len(chars))
	names := make([]string, 0, len(chars))
	for _, ch := range chars {
		byName[ch.Name] = ch
		names = append(names, ch.Name)
	}
	return dialogue.NewRoster(names...), byName
}
