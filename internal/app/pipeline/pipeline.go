package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"skitgen/cfg"
	"skitgen/internal/app/failure"
	"skitgen/internal/app/ledger"
	"skitgen/internal/app/metrics"
	"skitgen/internal/app/script"
	"skitgen/internal/app/speech"
	"skitgen/internal/app/video"
	"skitgen/pkg/ai"
	"skitgen/pkg/llm"
	"skitgen/pkg/slg"

	"github.com/google/uuid"
)

type Mode string

const (
	ModeScript Mode = "script"
	ModeSpeech Mode = "speech"
	ModeFull   Mode = "full"
)

// ModeOf derives what a full run produces from the configured sections.
func ModeOf(c *cfg.Config) Mode {
	switch {
	case c.TTS == nil:
		return ModeScript
	case c.Video == nil:
		return ModeSpeech
	default:
		return ModeFull
	}
}

type Ledger interface {
	CreateRun(ctx context.Context, run *ledger.Run) error
	UpdateStage(ctx context.Context, id string, stage string) error
	FinishRun(ctx context.Context, run *ledger.Run) error
}

type Publisher interface {
	EnsureBucket(ctx context.Context, bucket string) error
	PutFile(ctx context.Context, bucket string, objectName string, filePath string, contentType string) error
	PutObject(ctx context.Context, bucket string, objectName string, reader io.Reader, size int64, contentType string) error
	ObjectURL(bucket, objectName string) string
}

// Deps are the collaborators a pipeline may use. Only the ones needed by the
// stages that actually run must be set.
type Deps struct {
	Generator llm.Generator
	TTS       ai.TTSEngine
	Cache     speech.Cache
	Merger    speech.Merger
	Renderer  video.Renderer
	Prober    video.Prober
	Ledger    Ledger
	Publisher Publisher
	Observer  Observer
	Logger    *slog.Logger
}

type Pipeline struct {
	deps   Deps
	logger *slog.Logger
}

func New(deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		deps:   deps,
		logger: logger.WithGroup("pipeline"),
	}
}

type Result struct {
	RunID        string
	Mode         Mode
	Entries      []script.Entry
	Audio        *speech.AudioScript
	Video        *video.Rendered
	PublishedURL string
	SummaryPath  string
	Duration     time.Duration
}

type RunOption func(*run)

// WithRunID makes the run use a caller chosen id instead of a fresh one.
func WithRunID(id string) RunOption {
	return func(r *run) {
		r.id = id
	}
}

type run struct {
	p   *Pipeline
	cfg *cfg.Config
	id  string
	res *Result
}

func (r *run) emit(e Event) {
	if r.p.deps.Observer == nil {
		return
	}
	e.RunID = r.id
	e.Time = time.Now()
	r.p.deps.Observer.Observe(e)
}

// stage runs fn as the named stage, tagging any error with the stage.
func (r *run) stage(ctx context.Context, stage failure.Stage, fn func() error) error {
	r.emit(Event{Type: EventStageStarted, Stage: stage})

	if l := r.p.deps.Ledger; l != nil {
		if err := l.UpdateStage(ctx, r.id, string(stage)); err != nil {
			r.p.logger.Warn("failed to record stage", "run", r.id, "err", err)
		}
	}

	start := time.Now()

	if err := fn(); err != nil {
		metrics.Pipeline.StageErrors.WithLabelValues(string(stage)).Inc()
		return &failure.StageError{Stage: stage, Err: err}
	}

	metrics.Pipeline.StageTime.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
	r.emit(Event{Type: EventStageFinished, Stage: stage})
	return nil
}

func (p *Pipeline) execute(ctx context.Context, c *cfg.Config, mode Mode, opts []RunOption, body func(ctx context.Context, r *run) error) (*Result, error) {
	r := &run{
		p:   p,
		cfg: c,
		res: &Result{Mode: mode},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.id == "" {
		r.id = uuid.NewString()
	}
	r.res.RunID = r.id

	ctx = slg.WithSlog(ctx, p.logger.With("run", r.id))
	started := time.Now()

	rec := &ledger.Run{
		ID:        r.id,
		Project:   c.ProjectName,
		Mode:      string(mode),
		Status:    ledger.StatusRunning,
		StartedAt: started,
	}
	if p.deps.Ledger != nil {
		if err := p.deps.Ledger.CreateRun(ctx, rec); err != nil {
			p.logger.Warn("failed to record run", "run", r.id, "err", err)
		}
	}

	metrics.Pipeline.RunsInFlight.Inc()
	err := body(ctx, r)
	metrics.Pipeline.RunsInFlight.Dec()

	r.res.Duration = time.Since(started)
	rec.Duration = r.res.Duration
	rec.FinishedAt = time.Now()
	rec.Entries = len(r.res.Entries)
	if r.res.Video != nil {
		rec.VideoPath = r.res.Video.Path
	}
	rec.PublishedURL = r.res.PublishedURL

	if err != nil {
		var se *failure.StageError
		if !errors.As(err, &se) {
			se = &failure.StageError{Stage: failure.StageConfig, Err: err}
			err = se
		}

		rec.Status = ledger.StatusFailed
		rec.Stage = string(se.Stage)
		rec.Item = failure.Item(err)
		rec.Error = se.Err.Error()

		r.emit(Event{Type: EventRunFailed, Stage: se.Stage, Item: rec.Item, Error: rec.Error})
	} else {
		rec.Status = ledger.StatusSucceeded
		r.emit(Event{Type: EventRunFinished})
	}

	metrics.Pipeline.RunTime.WithLabelValues(string(mode), string(rec.Status)).Observe(r.res.Duration.Seconds())

	if p.deps.Ledger != nil {
		// the run context may already be cancelled
		if lerr := p.deps.Ledger.FinishRun(context.WithoutCancel(ctx), rec); lerr != nil {
			p.logger.Warn("failed to record run result", "run", r.id, "err", lerr)
		}
	}

	return r.res, err
}

// Run executes every stage the config enables: script, then speech, then video.
func (p *Pipeline) Run(ctx context.Context, c *cfg.Config, opts ...RunOption) (*Result, error) {
	mode := ModeOf(c)

	return p.execute(ctx, c, mode, opts, func(ctx context.Context, r *run) error {
		if c.Script == nil {
			return failure.Invalid("script", "is required to generate a dialogue")
		}

		if err := r.scriptStage(ctx); err != nil {
			return err
		}

		if mode == ModeScript {
			return nil
		}

		return r.downstream(ctx)
	})
}

// RunScript only generates and saves the dialogue.
func (p *Pipeline) RunScript(ctx context.Context, c *cfg.Config, opts ...RunOption) (*Result, error) {
	return p.execute(ctx, c, ModeScript, opts, func(ctx context.Context, r *run) error {
		if c.Script == nil {
			return failure.Invalid("script", "is required to generate a dialogue")
		}

		return r.scriptStage(ctx)
	})
}

// RunSpeech synthesizes a saved script (json entries or a NAME: text file)
// and continues to video when it is configured.
func (p *Pipeline) RunSpeech(ctx context.Context, c *cfg.Config, entriesPath string, opts ...RunOption) (*Result, error) {
	return p.execute(ctx, c, ModeOf(c), opts, func(ctx context.Context, r *run) error {
		if c.TTS == nil {
			return failure.Invalid("tts", "is required to synthesize speech")
		}

		err := r.stage(ctx, failure.StageScript, func() error {
			entries, err := loadEntries(entriesPath, c)
			if err != nil {
				return err
			}
			r.res.Entries = entries
			return nil
		})
		if err != nil {
			return err
		}

		return r.downstream(ctx)
	})
}

// RunVideo renders a video from clips persisted in audioDir.
func (p *Pipeline) RunVideo(ctx context.Context, c *cfg.Config, audioDir string, opts ...RunOption) (*Result, error) {
	return p.execute(ctx, c, ModeFull, opts, func(ctx context.Context, r *run) error {
		if c.Video == nil {
			return failure.Invalid("video", "is required to render a video")
		}

		err := r.stage(ctx, failure.StageSpeech, func() error {
			as, err := speech.LoadAudioScript(ctx, audioDir, c.Characters, p.deps.Prober)
			if err != nil {
				return err
			}
			r.res.Audio = as
			return nil
		})
		if err != nil {
			return err
		}

		return r.videoStages(ctx)
	})
}

// Reject records a run that could not start, for example because a
// collaborator failed to build. It still reaches the ledger and observers.
func (p *Pipeline) Reject(ctx context.Context, c *cfg.Config, cause error, opts ...RunOption) (*Result, error) {
	return p.execute(ctx, c, ModeOf(c), opts, func(context.Context, *run) error {
		var se *failure.StageError
		if errors.As(cause, &se) {
			return se
		}
		return &failure.StageError{Stage: failure.StageConfig, Err: cause}
	})
}

func loadEntries(path string, c *cfg.Config) ([]script.Entry, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return script.LoadEntries(path, c.Characters)
	}

	policy := cfg.MalformedReject
	if c.Script != nil {
		policy = c.Script.MalformedLines
	}
	return script.LoadDialogueFile(path, c.Characters, policy)
}

func (r *run) downstream(ctx context.Context) error {
	if err := r.speechStage(ctx); err != nil {
		return err
	}

	if r.cfg.Video == nil {
		return nil
	}

	return r.videoStages(ctx)
}

func (r *run) videoStages(ctx context.Context) error {
	if err := r.videoStage(ctx); err != nil {
		return err
	}

	if r.cfg.Publish.Enabled {
		if err := r.stage(ctx, failure.StagePublish, func() error { return r.publish(ctx) }); err != nil {
			return err
		}
	}

	path, err := r.writeSummary()
	if err != nil {
		r.p.logger.Warn("failed to write summary", "err", err)
	}
	r.res.SummaryPath = path

	return nil
}

func (r *run) scriptStage(ctx context.Context) error {
	return r.stage(ctx, failure.StageScript, func() error {
		if r.p.deps.Generator == nil {
			return errors.New("no llm generator configured")
		}

		entries, err := script.Generate(ctx, r.p.deps.Generator, r.cfg.Script, r.cfg.Characters)
		if err != nil {
			return err
		}

		for i, e := range entries {
			r.emit(Event{Type: EventItemDone, Stage: failure.StageScript, Item: e.Character.Name, Index: i + 1, Total: len(entries)})
		}

		if err := script.SaveEntries(filepath.Join(r.cfg.ScriptsDir(), script.EntriesFile), entries); err != nil {
			return err
		}

		r.res.Entries = entries
		return nil
	})
}

func (r *run) speechStage(ctx context.Context) error {
	return r.stage(ctx, failure.StageSpeech, func() error {
		if r.p.deps.TTS == nil {
			return errors.New("no tts engine configured")
		}

		total := len(r.res.Entries)
		opts := []speech.Option{
			speech.WithProgress(func(a speech.Artifact) {
				r.emit(Event{Type: EventItemDone, Stage: failure.StageSpeech, Item: a.Character.Name, Index: a.Index, Total: total})
			}),
		}
		if r.p.deps.Cache != nil {
			opts = append(opts, speech.WithCache(r.p.deps.Cache))
		}
		if r.p.deps.Merger != nil {
			opts = append(opts, speech.WithMerger(r.p.deps.Merger, r.cfg.ProjectName))
		}

		synth := speech.New(r.p.deps.TTS, r.cfg.TTS.Catalog(), r.cfg.TTS, r.p.logger, opts...)

		as, err := synth.Synthesize(ctx, r.res.Entries, r.cfg.TTSDir())
		if err != nil {
			return err
		}

		r.res.Audio = as
		return nil
	})
}

func (r *run) videoStage(ctx context.Context) error {
	return r.stage(ctx, failure.StageVideo, func() error {
		if r.p.deps.Renderer == nil {
			return errors.New("no video renderer configured")
		}

		out := filepath.Join(r.cfg.VideosDir(), r.cfg.ProjectName+".mp4")
		assembler := video.NewAssembler(r.p.deps.Renderer, r.p.deps.Prober, r.p.logger)

		rendered, err := assembler.Assemble(ctx, r.res.Audio, r.cfg.Characters, r.cfg.Video, out)
		if err != nil {
			return err
		}

		r.res.Video = rendered
		return nil
	})
}

func (r *run) publish(ctx context.Context) error {
	pub := r.p.deps.Publisher
	if pub == nil {
		return errors.New("publishing is enabled but no storage client is configured")
	}

	bucket := r.cfg.Publish.Bucket
	if err := pub.EnsureBucket(ctx, bucket); err != nil {
		return err
	}

	base := strings.Trim(r.cfg.Publish.Prefix+"/"+r.cfg.ProjectName+"/"+r.id, "/")

	videoKey := base + "/" + filepath.Base(r.res.Video.Path)
	if err := pub.PutFile(ctx, bucket, videoKey, r.res.Video.Path, "video/mp4"); err != nil {
		return fmt.Errorf("failed to upload video: %w", err)
	}

	// Rendered from memory, the tts dir may only hold subtitles or bare clips.
	meta, err := r.res.Audio.Metadata()
	if err != nil {
		return err
	}

	metaKey := base + "/" + speech.MetadataFile
	if err := pub.PutObject(ctx, bucket, metaKey, bytes.NewReader(meta), int64(len(meta)), "application/json"); err != nil {
		return fmt.Errorf("failed to upload audio script: %w", err)
	}

	r.res.PublishedURL = pub.ObjectURL(bucket, videoKey)
	r.emit(Event{Type: EventItemDone, Stage: failure.StagePublish, Item: videoKey, Index: 1, Total: 1})

	return nil
}
