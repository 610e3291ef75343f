package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"skitgen/pkg/tools"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config points at an OpenAI compatible vLLM server.
type Config struct {
	URL         string `yaml:"url" json:"url"`
	AccessToken string `yaml:"access_token" json:"access_token,omitempty"`

	Params `yaml:",inline"`
}

type Client struct {
	httpClient HTTPClient
	cfg        *Config
}

func New(httpClient HTTPClient, cfg *Config) *Client {
	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
	}
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *Client) Generate(ctx context.Context, prompt Prompt) (string, error) {
	messages := make([]Message, 0, 2)
	if prompt.System != "" {
		messages = append(messages, Message{Role: "system", Content: prompt.System})
	}
	messages = append(messages, Message{Role: "user", Content: prompt.User})

	ctx, cancel := c.cfg.withTimeout(ctx)
	defer cancel()

	resp, err := c.reqChat(ctx, &ChatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxOutputTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to do chat request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from llm")
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *Client) reqChat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request struct: %w", err)
	}

	chatURL := strings.TrimRight(c.cfg.URL, "/") + "/v1/chat/completions"

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, chatURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat http request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")
	if c.cfg.AccessToken != "" {
		request.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.AccessToken))
	}

	start := time.Now()

	response, err := c.httpClient.Do(request)
	if err != nil {
		metrics.LLMErrors.WithLabelValues(string(ProviderVLLM), "transport").Inc()
		return nil, fmt.Errorf("failed to do chat http request: %w", err)
	}
	defer tools.DrainAndClose(response.Body)

	responseData, err := io.ReadAll(response.Body)
	if err != nil {
		metrics.LLMErrors.WithLabelValues(string(ProviderVLLM), "500").Inc()
		return nil, fmt.Errorf("failed to read chat http response body: %w", err)
	}

	if response.StatusCode != http.StatusOK {
		metrics.LLMErrors.WithLabelValues(string(ProviderVLLM), strconv.Itoa(response.StatusCode)).Inc()
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", response.StatusCode, string(responseData))
	}

	var resp ChatResponse

	if err := json.Unmarshal(responseData, &resp); err != nil {
		metrics.LLMErrors.WithLabelValues(string(ProviderVLLM), "500").Inc()
		return nil, fmt.Errorf("failed to unmarshal chat http response body: %w", err)
	}

	metrics.LLMQueryTime.WithLabelValues(string(ProviderVLLM)).Observe(time.Since(start).Seconds())

	return &resp, nil
}
