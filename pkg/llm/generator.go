package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

type Prompt struct {
	System string
	User   string
}

// Generator turns a prompt into raw model text.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
	ProviderVLLM   Provider = "vllm"
)

func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderGemini, ProviderOpenAI, ProviderVLLM:
		return p, nil
	default:
		return "", fmt.Errorf("unknown llm provider %q", s)
	}
}

type ThinkingConfig struct {
	IncludeThoughts bool `yaml:"include_thoughts" json:"include_thoughts"`
	ThinkingBudget  int  `yaml:"thinking_budget" json:"thinking_budget"`
}

const (
	DefaultTemperature = 0.7
	DefaultTimeout     = 120
)

// Params are the call parameters shared by every provider.
type Params struct {
	Model string `yaml:"model" json:"model"`
	// Temperature is nil when the document leaves it out; zero is a valid setting.
	Temperature     *float64        `yaml:"temperature" json:"temperature,omitempty"`
	MaxOutputTokens int             `yaml:"max_output_tokens" json:"max_output_tokens"`
	Thinking        *ThinkingConfig `yaml:"thinking_config" json:"thinking_config,omitempty"`
	// Timeout bounds a single generate call, in seconds.
	Timeout int `yaml:"timeout" json:"timeout,omitempty"`
}

func (p *Params) TimeoutDuration() time.Duration {
	return time.Duration(p.Timeout) * time.Second
}

// withTimeout bounds ctx by the configured call timeout, if any.
func (p *Params) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := p.TimeoutDuration(); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return ctx, func() {}
}

type GeminiConfig struct {
	Params `yaml:",inline"`

	// DirectOutput asks the model to skip preambles and answer with dialogue only.
	DirectOutput bool   `yaml:"direct_output" json:"direct_output"`
	BaseURL      string `yaml:"base_url" json:"base_url,omitempty"`
}

type OpenAIConfig struct {
	Params `yaml:",inline"`

	BaseURL string `yaml:"base_url" json:"base_url,omitempty"`
}

type Settings struct {
	Provider Provider `yaml:"provider" json:"provider"`
	APIKey   string   `yaml:"api_key" json:"api_key,omitempty"`

	Gemini *GeminiConfig `yaml:"gemini" json:"gemini,omitempty"`
	OpenAI *OpenAIConfig `yaml:"openai" json:"openai,omitempty"`
	VLLM   *Config       `yaml:"vllm" json:"vllm,omitempty"`
}

var apiKeyEnv = map[Provider][]string{
	ProviderGemini: {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	ProviderOpenAI: {"OPENAI_API_KEY"},
}

// SetDefaults fills the provider block with the stock parameters when it is absent or partial.
func (s *Settings) SetDefaults() {
	switch s.Provider {
	case ProviderGemini:
		if s.Gemini == nil {
			s.Gemini = &GeminiConfig{}
		}
		s.Gemini.Params.withDefaults("gemini-2.5-flash")
	case ProviderOpenAI:
		if s.OpenAI == nil {
			s.OpenAI = &OpenAIConfig{}
		}
		s.OpenAI.Params.withDefaults("gpt-4o-mini")
	case ProviderVLLM:
		if s.VLLM == nil {
			s.VLLM = &Config{}
		}
		s.VLLM.Params.withDefaults("")
	}
}

func (p *Params) withDefaults(model string) {
	if p.Model == "" {
		p.Model = model
	}
	if p.Temperature == nil {
		t := DefaultTemperature
		p.Temperature = &t
	}
	if p.MaxOutputTokens == 0 {
		p.MaxOutputTokens = 1024
	}
	if p.Timeout == 0 {
		p.Timeout = DefaultTimeout
	}
}

// Active returns the parameters of the selected provider.
func (s *Settings) Active() *Params {
	switch s.Provider {
	case ProviderGemini:
		if s.Gemini != nil {
			return &s.Gemini.Params
		}
	case ProviderOpenAI:
		if s.OpenAI != nil {
			return &s.OpenAI.Params
		}
	case ProviderVLLM:
		if s.VLLM != nil {
			return &s.VLLM.Params
		}
	}
	return nil
}

func (s *Settings) ResolveAPIKey() string {
	if s.APIKey != "" {
		return s.APIKey
	}
	for _, name := range apiKeyEnv[s.Provider] {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// NewGenerator builds the generator for the configured provider.
func NewGenerator(ctx context.Context, httpClient *http.Client, s *Settings) (Generator, error) {
	switch s.Provider {
	case ProviderGemini:
		apiKey := s.ResolveAPIKey()
		if apiKey == "" {
			return nil, fmt.Errorf("gemini api key is not set")
		}
		return NewGemini(ctx, httpClient, apiKey, s.Gemini)
	case ProviderOpenAI:
		apiKey := s.ResolveAPIKey()
		if apiKey == "" {
			return nil, fmt.Errorf("openai api key is not set")
		}
		return NewOpenAI(httpClient, apiKey, s.OpenAI), nil
	case ProviderVLLM:
		return New(httpClient, s.VLLM), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", s.Provider)
	}
}
