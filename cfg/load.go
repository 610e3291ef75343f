package cfg

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"skitgen/internal/app/failure"
	"skitgen/pkg/ai"
	"skitgen/pkg/llm"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}
}

// Load reads, defaults and validates a config document.
func Load(path string) (*Config, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, &failure.ValidationError{Reason: err.Error()}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return Parse(data, format)
}

func Parse(data []byte, format Format) (*Config, error) {
	var cfg Config

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, &failure.ValidationError{Reason: err.Error()}
		}
		if dec.More() {
			return nil, &failure.ValidationError{Reason: "trailing data after config document"}
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, &failure.ValidationError{Reason: err.Error()}
		}
	default:
		return nil, &failure.ValidationError{Reason: fmt.Sprintf("unsupported config format %q", format)}
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) SetDefaults() {
	if c.BaseOutputDir == "" {
		c.BaseOutputDir = "output"
	}

	if c.Script != nil {
		if c.Script.MalformedLines == "" {
			c.Script.MalformedLines = MalformedReject
		}
		if p, err := llm.ParseProvider(string(c.Script.LLM.Provider)); err == nil {
			c.Script.LLM.Provider = p
		}
		c.Script.LLM.SetDefaults()
	}

	if c.TTS != nil {
		if c.TTS.Provider == "" {
			c.TTS.Provider = ai.TTSProviderChatterbox
		}
		c.TTS.Chatterbox.SetDefaults()
		if c.TTS.Concurrency == 0 {
			c.TTS.Concurrency = 1
		}
	}

	if v := c.Video; v != nil {
		if v.Provider == "" || v.Provider == VideoProviderMoviePy {
			v.Provider = VideoProviderFfmpeg
		}
		if m := v.MoviePy; m != nil {
			if v.Quality == "" {
				v.Quality = m.Quality
			}
			if v.FPS == 0 {
				v.FPS = m.FPS
			}
			if v.Codec == "" {
				v.Codec = m.Codec
			}
		}
		if v.Quality == "" {
			v.Quality = "medium"
		}
		if v.FPS == 0 {
			v.FPS = 30
		}
		if v.Codec == "" {
			v.Codec = "libx264"
		}

		s := &v.Subtitles
		if s.FontName == "" {
			s.FontName = "Arial"
		}
		if s.FontSize == 0 {
			s.FontSize = 48
		}
		if s.FontColor == "" {
			s.FontColor = "white"
		}
		if s.StrokeColor == "" {
			s.StrokeColor = "black"
		}
		if s.StrokeWidth == 0 {
			s.StrokeWidth = 2
		}
		if s.Position == "" {
			s.Position = "bottom"
		}
		if s.Margin == 0 {
			s.Margin = 50
		}
		if s.MaxCharsPerLine == 0 {
			s.MaxCharsPerLine = 40
		}

		img := &v.CharacterImage
		if img.Width == 0 {
			img.Width = 400
		}
		if img.Position == "" {
			img.Position = "center"
		}
	}

	if c.Ledger.Path == "" {
		c.Ledger.Path = filepath.Join(c.BaseOutputDir, "ledger.db")
	}

	if c.Api.Port == 0 {
		c.Api.Port = 8080
	}
}
