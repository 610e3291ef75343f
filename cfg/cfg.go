package cfg

import (
	"path/filepath"

	"skitgen/internal/app/ledger"
	"skitgen/pkg/ai"
	"skitgen/pkg/ffmpeg"
	"skitgen/pkg/kv"
	"skitgen/pkg/llm"
	"skitgen/pkg/s3client"
	"skitgen/pkg/slg"
)

type Config struct {
	ProjectName   string `yaml:"project_name" json:"project_name"`
	BaseOutputDir string `yaml:"base_output_dir" json:"base_output_dir"`

	Characters []Character `yaml:"characters" json:"characters"`

	Script *ScriptConfig `yaml:"script" json:"script,omitempty"`
	TTS    *TTSConfig    `yaml:"tts" json:"tts,omitempty"`
	Video  *VideoConfig  `yaml:"video" json:"video,omitempty"`

	Log     slg.Config    `yaml:"log" json:"log"`
	Ffmpeg  ffmpeg.Config `yaml:"ffmpeg" json:"ffmpeg"`
	Ledger  ledger.Config `yaml:"ledger" json:"ledger"`
	Publish PublishConfig `yaml:"publish" json:"publish"`
	Api     ApiConfig     `yaml:"api" json:"api"`
}

type Character struct {
	Name               string `yaml:"name" json:"name"`
	SpeakingStyle      string `yaml:"speaking_style" json:"speaking_style"`
	ConversationalRole string `yaml:"conversational_role" json:"conversational_role"`
	ImagePath          string `yaml:"image_path" json:"image_path"`

	TTSVoiceClone            string               `yaml:"tts_voice_clone" json:"tts_voice_clone"`
	TTSVoicePredefined       string               `yaml:"tts_voice_predefined" json:"tts_voice_predefined"`
	TTSVoiceProfile          string               `yaml:"tts_voice_profile" json:"tts_voice_profile"`
	TTSVoiceProfileOverrides *ai.ProfileOverrides `yaml:"tts_voice_profile_overrides" json:"tts_voice_profile_overrides,omitempty"`
}

type MalformedPolicy string

const (
	MalformedReject MalformedPolicy = "reject"
	MalformedDrop   MalformedPolicy = "drop"
)

type ScriptConfig struct {
	OverallConversationStyle string `yaml:"overall_conversation_style" json:"overall_conversation_style"`
	MainTopic                string `yaml:"main_topic" json:"main_topic"`
	Scenario                 string `yaml:"scenario" json:"scenario"`
	DialogueLength           string `yaml:"dialogue_length" json:"dialogue_length"`
	SystemPromptExtra        string `yaml:"system_prompt_extra" json:"system_prompt_extra"`
	UserPromptExtra          string `yaml:"user_prompt_extra" json:"user_prompt_extra"`

	MalformedLines MalformedPolicy `yaml:"malformed_lines" json:"malformed_lines"`

	LLM llm.Settings `yaml:"llm" json:"llm"`
}

type TTSConfig struct {
	Provider   ai.TTSProvider      `yaml:"provider" json:"provider"`
	Chatterbox ai.ChatterboxConfig `yaml:"chatterbox" json:"chatterbox"`

	VoiceProfiles map[string]ai.VoiceProfile `yaml:"voice_profiles" json:"voice_profiles,omitempty"`

	// Concurrency bounds parallel synthesis calls; 1 means sequential.
	Concurrency int        `yaml:"concurrency" json:"concurrency"`
	Cache       *kv.Config `yaml:"cache" json:"cache,omitempty"`

	MergeAudio      bool    `yaml:"merge_audio" json:"merge_audio"`
	MergeGapSeconds float64 `yaml:"merge_gap_seconds" json:"merge_gap_seconds"`
}

func (c *TTSConfig) Catalog() ai.VoiceCatalog {
	return ai.NewVoiceCatalog(c.VoiceProfiles)
}

type VideoProvider string

const (
	VideoProviderFfmpeg VideoProvider = "ffmpeg"
	// VideoProviderMoviePy is accepted for older documents and renders with ffmpeg.
	VideoProviderMoviePy VideoProvider = "moviepy"
)

type VideoConfig struct {
	Provider        VideoProvider `yaml:"provider" json:"provider"`
	BackgroundVideo string        `yaml:"background_video" json:"background_video"`

	Quality string `yaml:"quality" json:"quality"`
	FPS     int    `yaml:"fps" json:"fps"`
	Codec   string `yaml:"codec" json:"codec"`
	Width   int    `yaml:"width" json:"width,omitempty"`
	Height  int    `yaml:"height" json:"height,omitempty"`

	Subtitles      SubtitleConfig `yaml:"subtitles" json:"subtitles"`
	CharacterImage ImageConfig    `yaml:"character_image" json:"character_image"`

	// MoviePy is the encoder block of older documents. Its values fill the
	// top level fields left unset.
	MoviePy *EncoderConfig `yaml:"moviepy" json:"moviepy,omitempty"`
}

type EncoderConfig struct {
	Quality string `yaml:"quality" json:"quality"`
	FPS     int    `yaml:"fps" json:"fps"`
	Codec   string `yaml:"codec" json:"codec"`
}

type SubtitleConfig struct {
	Enabled         *bool  `yaml:"enabled" json:"enabled,omitempty"`
	FontName        string `yaml:"font_name" json:"font_name"`
	FontFile        string `yaml:"font_file" json:"font_file,omitempty"`
	FontSize        int    `yaml:"font_size" json:"font_size"`
	FontColor       string `yaml:"font_color" json:"font_color"`
	StrokeColor     string `yaml:"stroke_color" json:"stroke_color"`
	StrokeWidth     int    `yaml:"stroke_width" json:"stroke_width"`
	Position        string `yaml:"position" json:"position"`
	Margin          int    `yaml:"margin" json:"margin"`
	MaxCharsPerLine int    `yaml:"max_chars_per_line" json:"max_chars_per_line"`
}

func (s *SubtitleConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type ImageConfig struct {
	Width    int    `yaml:"width" json:"width"`
	Position string `yaml:"position" json:"position"`
	Margin   int    `yaml:"margin" json:"margin"`
}

type PublishConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	s3client.Config `yaml:",inline"`

	Bucket string `yaml:"bucket" json:"bucket"`
	Prefix string `yaml:"prefix" json:"prefix"`
}

type ApiConfig struct {
	Port int `yaml:"port" json:"port"`
}

// ProjectDir is where every artifact of the project is written.
func (c *Config) ProjectDir() string {
	return filepath.Join(c.BaseOutputDir, c.ProjectName)
}

func (c *Config) ScriptsDir() string {
	return filepath.Join(c.ProjectDir(), "scripts")
}

func (c *Config) TTSDir() string {
	return filepath.Join(c.ProjectDir(), "tts")
}

func (c *Config) VideosDir() string {
	return filepath.Join(c.ProjectDir(), "videos")
}
