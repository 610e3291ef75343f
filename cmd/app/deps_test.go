package main

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"skitgen/cfg"
	"skitgen/internal/app/failure"
	"skitgen/internal/app/ledger"
	"skitgen/internal/app/pipeline"
	"skitgen/pkg/kv"
	"skitgen/pkg/llm"

	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T, settings llm.Settings) *cfg.Config {
	t.Helper()

	return &cfg.Config{
		ProjectName:   "skit",
		BaseOutputDir: t.TempDir(),
		Characters:    []cfg.Character{{Name: "Peter", TTSVoicePredefined: "Thomas.wav"}},
		Script:        &cfg.ScriptConfig{DialogueLength: "2", LLM: settings},
		Ledger:        ledger.Config{Path: filepath.Join(t.TempDir(), "ledger.db")},
	}
}

func TestNewDepsScriptOnly(t *testing.T) {
	assert := require.New(t)

	c := newTestConfig(t, llm.Settings{Provider: llm.ProviderVLLM, VLLM: &llm.Config{URL: "http://localhost"}})

	deps, closeDeps, err := newDeps(context.Background(), c, slog.Default(), nil, nil, nil)
	defer closeDeps()
	assert.NoError(err)

	assert.NotNil(deps.Generator)
	assert.Nil(deps.TTS)
	assert.Nil(deps.Cache)
	assert.Nil(deps.Publisher)
	assert.NotNil(deps.Renderer)
}

func TestNewDepsCache(t *testing.T) {
	assert := require.New(t)

	c := newTestConfig(t, llm.Settings{Provider: llm.ProviderVLLM, VLLM: &llm.Config{URL: "http://localhost"}})
	c.TTS = &cfg.TTSConfig{Cache: &kv.Config{InMemory: true}}

	deps, closeDeps, err := newDeps(context.Background(), c, slog.Default(), nil, nil, nil)
	defer closeDeps()
	assert.NoError(err)

	assert.NotNil(deps.TTS)
	assert.NotNil(deps.Cache)
}

func TestServeRunnerRejectsBrokenDeps(t *testing.T) {
	assert := require.New(t)

	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	c := newTestConfig(t, llm.Settings{Provider: llm.ProviderGemini, Gemini: &llm.GeminiConfig{}})

	db, err := ledger.New(context.Background(), &c.Ledger)
	assert.NoError(err)
	defer db.Close()

	var events []pipeline.Event
	runner := &serveRunner{
		logger:   slog.Default(),
		ledger:   db,
		observer: pipeline.ObserverFunc(func(e pipeline.Event) { events = append(events, e) }),
	}

	_, err = runner.Run(context.Background(), c, pipeline.WithRunID("run-1"))

	var stageErr *failure.StageError
	assert.True(errors.As(err, &stageErr))
	assert.Equal(failure.StageConfig, stageErr.Stage)
	assert.ErrorContains(err, "api key")

	run, err := db.GetRun(context.Background(), "run-1")
	assert.NoError(err)
	assert.Equal(ledger.StatusFailed, run.Status)

	assert.NotEmpty(events)
	assert.Equal(pipeline.EventRunFailed, events[len(events)-1].Type)
}

func TestNewDepsSharesPooledCache(t *testing.T) {
	assert := require.New(t)

	cacheDir := t.TempDir()
	caches := kv.NewPool(nil)
	defer caches.Close()

	newCached := func() *cfg.Config {
		c := newTestConfig(t, llm.Settings{Provider: llm.ProviderVLLM, VLLM: &llm.Config{URL: "http://localhost"}})
		c.TTS = &cfg.TTSConfig{Cache: &kv.Config{Dir: cacheDir}}
		return c
	}

	first, closeFirst, err := newDeps(context.Background(), newCached(), slog.Default(), nil, nil, caches)
	assert.NoError(err)

	second, closeSecond, err := newDeps(context.Background(), newCached(), slog.Default(), nil, nil, caches)
	assert.NoError(err)

	assert.Same(first.Cache, second.Cache)

	closeFirst()
	closeSecond()

	store, ok := second.Cache.(*kv.Store)
	assert.True(ok)
	assert.NoError(store.Set("k", "still open"))
}
