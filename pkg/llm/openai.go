package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

type OpenAI struct {
	client *openai.Client
	cfg    *OpenAIConfig
}

func NewOpenAI(httpClient *http.Client, apiKey string, cfg *OpenAIConfig) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAI{
		client: &client,
		cfg:    cfg,
	}
}

func (o *OpenAI) Generate(ctx context.Context, prompt Prompt) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openai.SystemMessage(prompt.System))
	}
	messages = append(messages, openai.UserMessage(prompt.User))

	params := openai.ChatCompletionNewParams{
		Model:    o.cfg.Model,
		Messages: messages,
	}
	if o.cfg.Temperature != nil {
		params.Temperature = param.NewOpt(*o.cfg.Temperature)
	}
	if o.cfg.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(o.cfg.MaxOutputTokens))
	}

	ctx, cancel := o.cfg.withTimeout(ctx)
	defer cancel()

	start := time.Now()

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			metrics.LLMErrors.WithLabelValues(string(ProviderOpenAI), fmt.Sprint(apiErr.StatusCode)).Inc()
		} else {
			metrics.LLMErrors.WithLabelValues(string(ProviderOpenAI), "error").Inc()
		}
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	metrics.LLMQueryTime.WithLabelValues(string(ProviderOpenAI)).Observe(time.Since(start).Seconds())

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned from openai")
	}

	return resp.Choices[0].Message.Content, nil
}
