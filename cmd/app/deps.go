package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"skitgen/cfg"
	"skitgen/internal/app/ledger"
	"skitgen/internal/app/pipeline"
	"skitgen/pkg/ai"
	"skitgen/pkg/ffmpeg"
	"skitgen/pkg/kv"
	"skitgen/pkg/llm"
	"skitgen/pkg/s3client"
)

// newDeps builds the collaborators the stages enabled by c need.
// The returned func releases what was opened and is safe to call on error.
// When caches is set the tts cache comes from it and stays open after release.
func newDeps(ctx context.Context, c *cfg.Config, logger *slog.Logger, runs pipeline.Ledger, observer pipeline.Observer, caches *kv.Pool) (*pipeline.Deps, func(), error) {
	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("failed to close dependency", "err", err)
			}
		}
	}

	httpClient := &http.Client{}
	ff := ffmpeg.New(&c.Ffmpeg)

	deps := &pipeline.Deps{
		Merger:   ff,
		Renderer: ff,
		Prober:   ff,
		Ledger:   runs,
		Observer: observer,
		Logger:   logger,
	}

	if c.Script != nil {
		gen, err := llm.NewGenerator(ctx, httpClient, &c.Script.LLM)
		if err != nil {
			return nil, closeAll, fmt.Errorf("failed to create llm generator: %w", err)
		}
		deps.Generator = gen
	}

	if c.TTS != nil {
		deps.TTS = ai.NewChatterboxClient(httpClient, &c.TTS.Chatterbox, ff)

		if c.TTS.Cache != nil {
			store, err := openCache(c.TTS.Cache, logger, caches)
			if err != nil {
				return nil, closeAll, fmt.Errorf("failed to open tts cache: %w", err)
			}
			if caches == nil {
				closers = append(closers, store.Close)
			}
			deps.Cache = store
		}
	}

	if c.Publish.Enabled {
		s3, err := s3client.New(ctx, &c.Publish.Config)
		if err != nil {
			return nil, closeAll, fmt.Errorf("failed to init s3 client: %w", err)
		}
		deps.Publisher = s3
	}

	return deps, closeAll, nil
}

func openCache(c *kv.Config, logger *slog.Logger, caches *kv.Pool) (*kv.Store, error) {
	if caches != nil {
		return caches.Get(c)
	}
	return kv.Open(c, logger.WithGroup("kv"))
}

// openLedger opens the run ledger. Runs still work without it.
func openLedger(ctx context.Context, c *cfg.Config, logger *slog.Logger) (pipeline.Ledger, func()) {
	db, err := ledger.New(ctx, &c.Ledger)
	if err != nil {
		logger.Warn("run ledger is unavailable", "path", c.Ledger.Path, "err", err)
		return nil, func() {}
	}

	return db, func() { _ = db.Close() }
}
