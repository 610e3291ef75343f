package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const directOutputInstruction = "Respond with the dialogue lines only. Do not add a title, preface or closing remarks."

type Gemini struct {
	client *genai.Client
	cfg    *GeminiConfig
}

func NewGemini(ctx context.Context, httpClient *http.Client, apiKey string, cfg *GeminiConfig) (*Gemini, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		cfg:    cfg,
	}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt Prompt) (string, error) {
	genCfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(g.cfg.MaxOutputTokens),
	}
	if g.cfg.Temperature != nil {
		temperature := float32(*g.cfg.Temperature)
		genCfg.Temperature = &temperature
	}

	system := prompt.System
	if g.cfg.DirectOutput {
		system = strings.TrimSpace(system + "\n" + directOutputInstruction)
	}
	if system != "" {
		genCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(system)}}
	}

	if t := g.cfg.Thinking; t != nil {
		budget := int32(t.ThinkingBudget)
		genCfg.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: t.IncludeThoughts,
			ThinkingBudget:  &budget,
		}
	}

	ctx, cancel := g.cfg.withTimeout(ctx)
	defer cancel()

	start := time.Now()

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt.User), genCfg)
	if err != nil {
		metrics.LLMErrors.WithLabelValues(string(ProviderGemini), "error").Inc()
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	metrics.LLMQueryTime.WithLabelValues(string(ProviderGemini)).Observe(time.Since(start).Seconds())

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no candidates returned from gemini")
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonStop, genai.FinishReasonMaxTokens, genai.FinishReasonUnspecified, "":
	default:
		return "", fmt.Errorf("unexpected finish reason: %s", candidate.FinishReason)
	}

	var sb strings.Builder
	for _, p := range candidate.Content.Parts {
		if p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}

	if sb.Len() == 0 {
		return "", errors.New("gemini returned empty text")
	}

	return sb.String(), nil
}
