package cfg

import (
	"fmt"
	"slices"
	"strings"

	"skitgen/internal/app/failure"
	"skitgen/pkg/ai"
	"skitgen/pkg/ffmpeg"
	"skitgen/pkg/llm"

	"golang.org/x/text/cases"
)

// Validate reports the first problem found as a *failure.ValidationError.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ProjectName) == "" {
		return failure.Invalid("project_name", "is required")
	}
	if strings.ContainsAny(c.ProjectName, `/\`) || c.ProjectName == "." || c.ProjectName == ".." {
		return failure.Invalid("project_name", "must not contain path separators")
	}

	if err := c.validateCharacters(); err != nil {
		return err
	}

	if c.Script != nil {
		if err := c.Script.validate(); err != nil {
			return err
		}
	}

	if c.TTS != nil {
		if err := c.validateTTS(); err != nil {
			return err
		}
	}

	if c.Video != nil {
		if c.TTS == nil {
			return failure.Invalid("video", "requires a tts section")
		}
		if err := c.Video.validate(); err != nil {
			return err
		}
	}

	if c.Publish.Enabled {
		if c.Publish.Endpoint == "" {
			return failure.Invalid("publish.endpoint", "is required when publishing is enabled")
		}
		if c.Publish.Bucket == "" {
			return failure.Invalid("publish.bucket", "is required when publishing is enabled")
		}
	}

	if c.Api.Port < 0 || c.Api.Port > 65535 {
		return failure.Invalid("api.port", "must be between 0 and 65535, got %d", c.Api.Port)
	}

	return nil
}

func (c *Config) validateCharacters() error {
	if len(c.Characters) == 0 {
		return failure.Invalid("characters", "at least one character is required")
	}

	fold := cases.Fold()
	seen := make(map[string]int, len(c.Characters))
	for i, ch := range c.Characters {
		field := fmt.Sprintf("characters[%d]", i)

		name := strings.TrimSpace(ch.Name)
		if name == "" {
			return failure.Invalid(field+".name", "is required")
		}
		if strings.Contains(name, ":") {
			return failure.Invalid(field+".name", "must not contain ':'")
		}

		key := fold.String(name)
		if j, ok := seen[key]; ok {
			return failure.Invalid(field+".name", "duplicates characters[%d] (%q)", j, c.Characters[j].Name)
		}
		seen[key] = i
	}

	return nil
}

func (s *ScriptConfig) validate() error {
	if strings.TrimSpace(s.OverallConversationStyle) == "" {
		return failure.Invalid("script.overall_conversation_style", "is required")
	}
	if strings.TrimSpace(s.MainTopic) == "" {
		return failure.Invalid("script.main_topic", "is required")
	}
	if strings.TrimSpace(s.DialogueLength) == "" {
		return failure.Invalid("script.dialogue_length", "is required")
	}
	if _, err := ParseLengthRange(s.DialogueLength); err != nil {
		return failure.Invalid("script.dialogue_length", "%v", err)
	}

	switch s.MalformedLines {
	case MalformedReject, MalformedDrop:
	default:
		return failure.Invalid("script.malformed_lines", "must be %q or %q, got %q", MalformedReject, MalformedDrop, s.MalformedLines)
	}

	return validateLLM(&s.LLM)
}

func validateLLM(s *llm.Settings) error {
	if _, err := llm.ParseProvider(string(s.Provider)); err != nil {
		return failure.Invalid("script.llm.provider", "%v", err)
	}

	field := "script.llm." + string(s.Provider)
	p := s.Active()
	if p == nil {
		return failure.Invalid(field, "is required")
	}

	if strings.TrimSpace(p.Model) == "" && s.Provider != llm.ProviderVLLM {
		return failure.Invalid(field+".model", "is required")
	}
	if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
		return failure.Invalid(field+".temperature", "must be between 0 and 2, got %v", *p.Temperature)
	}
	if p.Timeout < 0 {
		return failure.Invalid(field+".timeout", "must not be negative, got %d", p.Timeout)
	}
	if p.MaxOutputTokens <= 0 {
		return failure.Invalid(field+".max_output_tokens", "must be positive, got %d", p.MaxOutputTokens)
	}
	if p.Thinking != nil && p.Thinking.ThinkingBudget < 0 {
		return failure.Invalid(field+".thinking_config.thinking_budget", "must not be negative, got %d", p.Thinking.ThinkingBudget)
	}

	if s.Provider == llm.ProviderVLLM && strings.TrimSpace(s.VLLM.URL) == "" {
		return failure.Invalid(field+".url", "is required")
	}

	return nil
}

func (c *Config) validateTTS() error {
	t := c.TTS

	if _, err := ai.ParseTTSProvider(string(t.Provider)); err != nil {
		return failure.Invalid("tts.provider", "%v", err)
	}

	cb := &t.Chatterbox
	if strings.TrimSpace(cb.BaseURL) == "" {
		return failure.Invalid("tts.chatterbox.base_url", "is required")
	}
	if !strings.HasPrefix(cb.Endpoint, "/") {
		return failure.Invalid("tts.chatterbox.endpoint", "must start with '/', got %q", cb.Endpoint)
	}
	if cb.Timeout <= 0 {
		return failure.Invalid("tts.chatterbox.timeout", "must be positive, got %d", cb.Timeout)
	}
	if !slices.Contains(ai.OutputFormats, cb.OutputFormat) {
		return failure.Invalid("tts.chatterbox.output_format", "must be one of %v, got %q", ai.OutputFormats, cb.OutputFormat)
	}
	if cb.ChunkSize <= 0 {
		return failure.Invalid("tts.chatterbox.chunk_size", "must be positive, got %d", cb.ChunkSize)
	}

	if t.Concurrency < 1 {
		return failure.Invalid("tts.concurrency", "must be at least 1, got %d", t.Concurrency)
	}
	if t.MergeGapSeconds < 0 {
		return failure.Invalid("tts.merge_gap_seconds", "must not be negative, got %v", t.MergeGapSeconds)
	}
	if t.Cache != nil && !t.Cache.InMemory && t.Cache.Dir == "" {
		return failure.Invalid("tts.cache.dir", "is required")
	}

	catalog := t.Catalog()
	for i, ch := range c.Characters {
		field := fmt.Sprintf("characters[%d]", i)

		if _, ok := ai.SelectVoice(ch.TTSVoiceClone, ch.TTSVoicePredefined); !ok {
			return failure.Invalid(field, "%q needs tts_voice_clone or tts_voice_predefined", ch.Name)
		}
		if _, ok := catalog.Lookup(ch.TTSVoiceProfile); !ok {
			return failure.Invalid(field+".tts_voice_profile", "unknown profile %q, known: %s", ch.TTSVoiceProfile, strings.Join(catalog.Names(), ", "))
		}
		if o := ch.TTSVoiceProfileOverrides; o != nil {
			if o.Temperature != nil && (*o.Temperature < 0 || *o.Temperature > 2) {
				return failure.Invalid(field+".tts_voice_profile_overrides.temperature", "must be between 0 and 2")
			}
			if o.SpeedFactor != nil && *o.SpeedFactor <= 0 {
				return failure.Invalid(field+".tts_voice_profile_overrides.speed_factor", "must be positive")
			}
		}
	}

	return nil
}

func (v *VideoConfig) validate() error {
	if v.Provider != VideoProviderFfmpeg {
		return failure.Invalid("video.provider", "unknown video provider %q", v.Provider)
	}
	if strings.TrimSpace(v.BackgroundVideo) == "" {
		return failure.Invalid("video.background_video", "is required")
	}
	if _, ok := ffmpeg.Qualities[v.Quality]; !ok {
		return failure.Invalid("video.quality", "must be one of low, medium, high, ultra, got %q", v.Quality)
	}
	if v.FPS <= 0 || v.FPS > 120 {
		return failure.Invalid("video.fps", "must be between 1 and 120, got %d", v.FPS)
	}
	if (v.Width == 0) != (v.Height == 0) {
		return failure.Invalid("video.width", "width and height must be set together")
	}
	if v.Width < 0 || v.Height < 0 || v.Width%2 != 0 || v.Height%2 != 0 {
		return failure.Invalid("video.width", "width and height must be positive even numbers, got %dx%d", v.Width, v.Height)
	}

	s := &v.Subtitles
	if _, ok := ffmpeg.ParsePosition(s.Position); !ok {
		return failure.Invalid("video.subtitles.position", "must be top, center or bottom, got %q", s.Position)
	}
	if s.FontSize <= 0 {
		return failure.Invalid("video.subtitles.font_size", "must be positive, got %d", s.FontSize)
	}
	if s.StrokeWidth < 0 || s.Margin < 0 {
		return failure.Invalid("video.subtitles", "stroke_width and margin must not be negative")
	}
	if s.MaxCharsPerLine < 0 {
		return failure.Invalid("video.subtitles.max_chars_per_line", "must not be negative, got %d", s.MaxCharsPerLine)
	}

	img := &v.CharacterImage
	if _, ok := ffmpeg.ParsePosition(img.Position); !ok {
		return failure.Invalid("video.character_image.position", "must be top, center or bottom, got %q", img.Position)
	}
	if img.Width <= 0 || img.Margin < 0 {
		return failure.Invalid("video.character_image", "width must be positive and margin not negative")
	}

	return nil
}
