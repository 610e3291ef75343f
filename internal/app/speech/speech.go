package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"skitgen/cfg"
	"skitgen/internal/app/failure"
	"skitgen/internal/app/script"
	"skitgen/pkg/ai"
	"skitgen/pkg/kv"
	"skitgen/pkg/tools"

	"golang.org/x/sync/errgroup"
)

// Cache stores synthesized clips between runs.
type Cache interface {
	Get(key string, v any) (bool, error)
	Set(key string, v any) error
}

type Merger interface {
	ConcatAudio(ctx context.Context, inputs []string, gap time.Duration, outputPath string) error
}

type Option func(*Synthesizer)

func WithCache(c Cache) Option {
	return func(s *Synthesizer) {
		s.cache = c
	}
}

// WithMerger enables writing a single merged track named <name>_merged.<format>.
func WithMerger(m Merger, name string) Option {
	return func(s *Synthesizer) {
		s.merger = m
		s.mergeName = name
	}
}

// WithProgress registers a callback invoked once per finished clip.
// It may be called from several goroutines at once.
func WithProgress(fn func(Artifact)) Option {
	return func(s *Synthesizer) {
		s.progress = fn
	}
}

type Synthesizer struct {
	engine  ai.TTSEngine
	catalog ai.VoiceCatalog
	cfg     *cfg.TTSConfig
	logger  *slog.Logger

	cache     Cache
	merger    Merger
	mergeName string
	progress  func(Artifact)
}

func New(engine ai.TTSEngine, catalog ai.VoiceCatalog, ttsCfg *cfg.TTSConfig, logger *slog.Logger, opts ...Option) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Synthesizer{
		engine:  engine,
		catalog: catalog,
		cfg:     ttsCfg,
		logger:  logger.WithGroup("speech"),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

type cacheRecord struct {
	Data     []byte        `msgpack:"data"`
	Duration time.Duration `msgpack:"duration"`
}

func FileName(index int, character, format string) string {
	return fmt.Sprintf("%03d_%s.%s", index, tools.Slug(character), format)
}

// Synthesize produces one clip per entry and returns them in entry order.
func (s *Synthesizer) Synthesize(ctx context.Context, entries []script.Entry, outDir string) (*AudioScript, error) {
	if len(entries) == 0 {
		return nil, errors.New("no dialogue entries to synthesize")
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create tts dir: %w", err)
	}

	limit := s.cfg.Concurrency
	if limit < 1 {
		limit = 1
	}

	artifacts := make([]Artifact, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, entry := range entries {
		index := i + 1
		g.Go(func() error {
			a, err := s.synthesizeEntry(gctx, index, entry, outDir)
			if err != nil {
				return &failure.SynthesisError{Index: index, Character: entry.Character.Name, Err: err}
			}

			artifacts[i] = *a
			if s.progress != nil {
				s.progress(*a)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	as := NewAudioScript(s.cfg.Chatterbox.OutputFormat, artifacts)

	if s.cfg.MergeAudio && s.merger != nil {
		merged := filepath.Join(outDir, fmt.Sprintf("%s_merged.%s", s.mergeName, as.Format))
		gap := time.Duration(s.cfg.MergeGapSeconds * float64(time.Second))
		if err := s.merger.ConcatAudio(ctx, as.Paths(), gap, merged); err != nil {
			return nil, fmt.Errorf("failed to merge audio: %w", err)
		}
		as.MergedPath = merged
	}

	if err := as.Save(outDir); err != nil {
		return nil, err
	}

	s.logger.Info("speech synthesized", "clips", len(artifacts), "duration", as.Total())

	return as, nil
}

func (s *Synthesizer) synthesizeEntry(ctx context.Context, index int, entry script.Entry, outDir string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := entry.Character

	voice, ok := ai.SelectVoice(ch.TTSVoiceClone, ch.TTSVoicePredefined)
	if !ok {
		return nil, failure.Invalid("characters", "%q needs tts_voice_clone or tts_voice_predefined", ch.Name)
	}

	profile, ok := s.catalog.Lookup(ch.TTSVoiceProfile)
	if !ok {
		return nil, failure.Invalid("tts_voice_profile", "unknown profile %q", ch.TTSVoiceProfile)
	}

	req := &ai.Request{
		Text:    entry.Content,
		Voice:   voice,
		Profile: profile.Apply(ch.TTSVoiceProfileOverrides),
		Format:  s.cfg.Chatterbox.OutputFormat,
	}

	audio, err := s.synthesize(ctx, req)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(outDir, FileName(index, ch.Name, req.Format))
	if err := os.WriteFile(path, audio.Data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write audio: %w", err)
	}

	s.logger.Debug("clip written", "index", index, "character", ch.Name, "path", path, "duration", audio.Duration)

	return &Artifact{
		Index:     index,
		Path:      path,
		Character: ch,
		Content:   entry.Content,
		Duration:  audio.Duration,
		FileSize:  int64(len(audio.Data)),
	}, nil
}

func (s *Synthesizer) synthesize(ctx context.Context, req *ai.Request) (*ai.Audio, error) {
	if s.cache == nil {
		return s.engine.Synthesize(ctx, req)
	}

	key := cacheKey(req)

	var rec cacheRecord
	found, err := s.cache.Get(key, &rec)
	if err != nil {
		s.logger.Warn("failed to read tts cache", "err", err)
	}
	if found {
		return &ai.Audio{Data: rec.Data, Duration: rec.Duration, Format: req.Format}, nil
	}

	audio, err := s.engine.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(key, &cacheRecord{Data: audio.Data, Duration: audio.Duration}); err != nil {
		s.logger.Warn("failed to write tts cache", "err", err)
	}

	return audio, nil
}

func cacheKey(req *ai.Request) string {
	return kv.Key("tts", string(req.Voice.Mode), req.Voice.ID, fmt.Sprintf("%+v", req.Profile), req.Format, req.Text)
}
