package main

import (
	"errors"
	"testing"
	"time"

	"skitgen/cfg"
	"skitgen/internal/app/failure"
	"skitgen/internal/app/pipeline"
	"skitgen/internal/app/script"
	"skitgen/internal/app/video"
	"skitgen/pkg/ai"

	"github.com/stretchr/testify/require"
)

func TestRenderSummary(t *testing.T) {
	assert := require.New(t)

	c := &cfg.Config{ProjectName: "skit"}
	res := &pipeline.Result{
		RunID:   "run-1",
		Mode:    pipeline.ModeFull,
		Entries: make([]script.Entry, 3),
		Video: &video.Rendered{
			Path:     "output/skit/videos/skit.mp4",
			Duration: 4500 * time.Millisecond,
			FileSize: 2048,
		},
		PublishedURL: "http://minio/renders/skit.mp4",
		Duration:     time.Second,
	}

	out := renderSummary(c, res)

	assert.Contains(out, "skit")
	assert.Contains(out, "run-1")
	assert.Contains(out, "3 lines")
	assert.Contains(out, "output/skit/videos/skit.mp4")
	assert.Contains(out, "4.5s, 2.0 kB")
	assert.Contains(out, "http://minio/renders/skit.mp4")
	assert.NotContains(out, "merged")
}

func TestRenderFailure(t *testing.T) {
	assert := require.New(t)

	err := &failure.StageError{
		Stage: failure.StageSpeech,
		Err:   &failure.SynthesisError{Index: 2, Character: "Stewie", Err: errors.New("server said no")},
	}

	out := renderFailure(err)

	assert.Contains(out, "speech")
	assert.Contains(out, "entry 2 (Stewie)")
	assert.Contains(out, "server said no")

	out = renderFailure(errors.New("boom"))
	assert.Contains(out, "boom")
	assert.NotContains(out, "stage")
}

func TestRenderVoices(t *testing.T) {
	assert := require.New(t)

	out := renderVoices(
		[]ai.PredefinedVoice{{DisplayName: "Thomas", Filename: "Thomas.wav"}},
		[]string{"stewie.wav"},
		ai.DefaultVoiceCatalog(),
	)

	assert.Contains(out, "Thomas.wav")
	assert.Contains(out, "stewie.wav")
	assert.Contains(out, "standard_narration")
}
