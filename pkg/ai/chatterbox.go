package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"skitgen/pkg/ffmpeg"
	"skitgen/pkg/tools"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Prober measures audio that is not a plain WAV stream.
type Prober interface {
	Ffprobe(ctx context.Context, data []byte) (*ffmpeg.FfprobeResult, error)
}

// ChatterboxConfig holds connection settings for a Chatterbox TTS server.
type ChatterboxConfig struct {
	BaseURL      string `yaml:"base_url" json:"base_url"`
	Endpoint     string `yaml:"endpoint" json:"endpoint"`
	Timeout      int    `yaml:"timeout" json:"timeout"`
	OutputFormat string `yaml:"output_format" json:"output_format"`
	SplitText    *bool  `yaml:"split_text" json:"split_text,omitempty"`
	ChunkSize    int    `yaml:"chunk_size" json:"chunk_size"`
}

func (c *ChatterboxConfig) SetDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "/tts"
	}
	if c.Timeout == 0 {
		c.Timeout = 120
	}
	if c.OutputFormat == "" {
		c.OutputFormat = "wav"
	}
	if c.SplitText == nil {
		split := true
		c.SplitText = &split
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 120
	}
}

func (c *ChatterboxConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

var OutputFormats = []string{"wav", "mp3", "opus"}

type ChatterboxClient struct {
	httpClient HTTPClient
	cfg        *ChatterboxConfig
	prober     Prober
}

func NewChatterboxClient(httpClient HTTPClient, cfg *ChatterboxConfig, prober Prober) *ChatterboxClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &ChatterboxClient{
		httpClient: httpClient,
		cfg:        cfg,
		prober:     prober,
	}
}

// ChatterboxRequest is the JSON body of the synthesis endpoint.
type ChatterboxRequest struct {
	Text                   string  `json:"text"`
	VoiceMode              string  `json:"voice_mode"`
	PredefinedVoiceID      string  `json:"predefined_voice_id,omitempty"`
	ReferenceAudioFilename string  `json:"reference_audio_filename,omitempty"`
	OutputFormat           string  `json:"output_format"`
	SplitText              bool    `json:"split_text"`
	ChunkSize              int     `json:"chunk_size"`
	Temperature            float64 `json:"temperature"`
	Exaggeration           float64 `json:"exaggeration"`
	CFGWeight              float64 `json:"cfg_weight"`
	Seed                   int     `json:"seed"`
	SpeedFactor            float64 `json:"speed_factor"`
	Language               string  `json:"language"`
}

type chatterboxServerError struct {
	Detail string `json:"detail"`
}

func (c *ChatterboxClient) newRequest(req *Request) *ChatterboxRequest {
	format := req.Format
	if format == "" {
		format = c.cfg.OutputFormat
	}

	out := &ChatterboxRequest{
		Text:         strings.TrimSpace(req.Text),
		VoiceMode:    string(req.Voice.Mode),
		OutputFormat: format,
		SplitText:    c.cfg.SplitText == nil || *c.cfg.SplitText,
		ChunkSize:    c.cfg.ChunkSize,
		Temperature:  req.Profile.Temperature,
		Exaggeration: req.Profile.Exaggeration,
		CFGWeight:    req.Profile.CFGWeight,
		Seed:         req.Profile.Seed,
		SpeedFactor:  req.Profile.SpeedFactor,
		Language:     req.Profile.Language,
	}

	switch req.Voice.Mode {
	case VoiceModeClone:
		out.ReferenceAudioFilename = req.Voice.ID
	case VoiceModePredefined:
		out.PredefinedVoiceID = req.Voice.ID
	}

	return out
}

func (c *ChatterboxClient) url(endpoint string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + endpoint
}

// Synthesize posts one line to the server and measures the returned clip.
func (c *ChatterboxClient) Synthesize(ctx context.Context, req *Request) (*Audio, error) {
	if c == nil || c.cfg == nil || strings.TrimSpace(c.cfg.BaseURL) == "" {
		return nil, fmt.Errorf("chatterbox client is not configured")
	}

	if req == nil {
		return nil, fmt.Errorf("nil request provided")
	}

	body := c.newRequest(req)
	if body.Text == "" {
		return nil, fmt.Errorf("text must not be empty")
	}
	if req.Voice.ID == "" {
		return nil, fmt.Errorf("voice must not be empty")
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chatterbox request: %w", err)
	}

	if timeout := c.cfg.TimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(c.cfg.Endpoint), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create chatterbox request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/"+body.OutputFormat)

	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.TTSErrors.WithLabelValues("transport").Inc()
		return nil, fmt.Errorf("failed to call chatterbox server: %w", err)
	}
	defer tools.DrainAndClose(resp.Body)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.TTSErrors.WithLabelValues("read").Inc()
		return nil, fmt.Errorf("failed to read chatterbox response: %w", err)
	}

	if resp.StatusCode >= 300 {
		metrics.TTSErrors.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
		return nil, serverError(resp.StatusCode, respBody, body)
	}

	if len(respBody) == 0 {
		metrics.TTSErrors.WithLabelValues("empty").Inc()
		return nil, errors.New("chatterbox returned empty audio")
	}

	metrics.TTSQueryTime.WithLabelValues(body.VoiceMode).Observe(time.Since(start).Seconds())

	duration, err := c.measure(ctx, body.OutputFormat, respBody)
	if err != nil {
		return nil, fmt.Errorf("failed to measure audio duration: %w", err)
	}
	metrics.TTSAudioSeconds.Observe(duration.Seconds())

	return &Audio{
		Data:     respBody,
		Duration: duration,
		Format:   body.OutputFormat,
	}, nil
}

func (c *ChatterboxClient) measure(ctx context.Context, format string, data []byte) (time.Duration, error) {
	if format == "wav" {
		if d, err := WAVDuration(data); err == nil {
			return d, nil
		}
	}

	if c.prober == nil {
		return 0, fmt.Errorf("no prober for %s audio", format)
	}

	res, err := c.prober.Ffprobe(ctx, data)
	if err != nil {
		return 0, err
	}

	return res.Duration, nil
}

func serverError(status int, respBody []byte, req *ChatterboxRequest) error {
	var apiErr chatterboxServerError
	msg := strings.TrimSpace(string(respBody))
	if len(respBody) != 0 && json.Unmarshal(respBody, &apiErr) == nil && apiErr.Detail != "" {
		msg = apiErr.Detail
	}
	if msg == "" {
		msg = "unknown error"
	}

	if status == http.StatusNotFound && strings.Contains(strings.ToLower(msg), "not found") {
		switch {
		case req.VoiceMode == string(VoiceModeClone) && req.ReferenceAudioFilename != "":
			return fmt.Errorf("voice clone file %q not found on tts server, upload it or use a predefined voice", req.ReferenceAudioFilename)
		case req.VoiceMode == string(VoiceModePredefined) && req.PredefinedVoiceID != "":
			return fmt.Errorf("predefined voice %q not found on tts server, list available voices with the voices command", req.PredefinedVoiceID)
		}
	}

	return fmt.Errorf("chatterbox server returned status %d: %s", status, msg)
}

type PredefinedVoice struct {
	DisplayName string `json:"display_name"`
	Filename    string `json:"filename"`
}

func (c *ChatterboxClient) PredefinedVoices(ctx context.Context) ([]PredefinedVoice, error) {
	var voices []PredefinedVoice
	if err := c.getJSON(ctx, "/get_predefined_voices", &voices); err != nil {
		return nil, fmt.Errorf("failed to get predefined voices: %w", err)
	}
	return voices, nil
}

func (c *ChatterboxClient) ReferenceFiles(ctx context.Context) ([]string, error) {
	var files []string
	if err := c.getJSON(ctx, "/get_reference_files", &files); err != nil {
		return nil, fmt.Errorf("failed to get reference files: %w", err)
	}
	return files, nil
}

func (c *ChatterboxClient) getJSON(ctx context.Context, endpoint string, out any) error {
	if timeout := c.cfg.TimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(endpoint), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to do request: %w", err)
	}
	defer tools.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
