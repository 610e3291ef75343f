package speech_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"skitgen/cfg"
	"skitgen/internal/app/failure"
	"skitgen/internal/app/script"
	"skitgen/internal/app/speech"
	"skitgen/pkg/ai"
	"skitgen/pkg/ffmpeg"
	"skitgen/pkg/kv"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeEngine answers with the request text as audio and a duration of one
// second per word. Lines listed in delays finish late.
type fakeEngine struct {
	mu     sync.Mutex
	calls  []*ai.Request
	delays map[string]time.Duration
	fail   map[string]error
	count  atomic.Int32
}

func (e *fakeEngine) Synthesize(ctx context.Context, req *ai.Request) (*ai.Audio, error) {
	e.count.Add(1)

	e.mu.Lock()
	e.calls = append(e.calls, req)
	e.mu.Unlock()

	if err := e.fail[req.Text]; err != nil {
		return nil, err
	}

	select {
	case <-time.After(e.delays[req.Text]):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &ai.Audio{
		Data:     []byte(req.Text),
		Duration: time.Duration(len(strings.Fields(req.Text))) * time.Second,
		Format:   req.Format,
	}, nil
}

type mergerMock struct {
	mock.Mock
}

func (m *mergerMock) ConcatAudio(ctx context.Context, inputs []string, gap time.Duration, outputPath string) error {
	return m.Called(inputs, gap, outputPath).Error(0)
}

var (
	peter  = cfg.Character{Name: "Peter Griffin", TTSVoicePredefined: "Thomas.wav"}
	stewie = cfg.Character{Name: "Stewie", TTSVoiceClone: "stewie.wav", TTSVoicePredefined: "Ignored.wav", TTSVoiceProfile: "expressive_monologue"}
)

func ttsConfig(concurrency int) *cfg.TTSConfig {
	c := &cfg.TTSConfig{
		Provider:    ai.TTSProviderChatterbox,
		Concurrency: concurrency,
	}
	c.Chatterbox.SetDefaults()
	return c
}

func entries() []script.Entry {
	return []script.Entry{
		{Character: peter, Content: "one"},
		{Character: stewie, Content: "two words"},
		{Character: peter, Content: "three more words"},
	}
}

func TestSynthesizeKeepsOrder(t *testing.T) {
	assert := require.New(t)

	engine := &fakeEngine{delays: map[string]time.Duration{
		"one":       60 * time.Millisecond,
		"two words": 30 * time.Millisecond,
	}}
	c := ttsConfig(3)

	var (
		mu       sync.Mutex
		finished []int
	)
	s := speech.New(engine, c.Catalog(), c, nil, speech.WithProgress(func(a speech.Artifact) {
		mu.Lock()
		finished = append(finished, a.Index)
		mu.Unlock()
	}))

	dir := t.TempDir()
	as, err := s.Synthesize(context.Background(), entries(), dir)
	assert.NoError(err)

	assert.Equal([]int{3, 2, 1}, finished)

	assert.Len(as.Artifacts, 3)
	for i, a := range as.Artifacts {
		assert.Equal(i+1, a.Index)
		assert.Equal(entries()[i].Content, a.Content)
	}
	assert.Equal(filepath.Join(dir, "001_peter_griffin.wav"), as.Artifacts[0].Path)
	assert.Equal(filepath.Join(dir, "002_stewie.wav"), as.Artifacts[1].Path)

	assert.Equal(time.Duration(0), as.Artifacts[0].Start)
	assert.Equal(1*time.Second, as.Artifacts[1].Start)
	assert.Equal(3*time.Second, as.Artifacts[2].Start)
	assert.Equal(6*time.Second, as.Total())

	data, err := os.ReadFile(as.Artifacts[2].Path)
	assert.NoError(err)
	assert.Equal("three more words", string(data))

	assert.FileExists(filepath.Join(dir, speech.MetadataFile))
	assert.FileExists(filepath.Join(dir, speech.SubtitleFile))
}

func TestSynthesizeVoiceSelection(t *testing.T) {
	assert := require.New(t)

	engine := &fakeEngine{}
	c := ttsConfig(1)

	_, err := speech.New(engine, c.Catalog(), c, nil).Synthesize(context.Background(), entries(), t.TempDir())
	assert.NoError(err)

	assert.Len(engine.calls, 3)
	assert.Equal(ai.Voice{Mode: ai.VoiceModePredefined, ID: "Thomas.wav"}, engine.calls[0].Voice)
	assert.Equal(ai.Voice{Mode: ai.VoiceModeClone, ID: "stewie.wav"}, engine.calls[1].Voice)

	want, _ := c.Catalog().Lookup("expressive_monologue")
	assert.Equal(want, engine.calls[1].Profile)
	assert.Equal("wav", engine.calls[1].Format)
}

func TestSynthesizeFailure(t *testing.T) {
	assert := require.New(t)

	engine := &fakeEngine{fail: map[string]error{
		"two words": context.DeadlineExceeded,
	}}
	c := ttsConfig(1)

	_, err := speech.New(engine, c.Catalog(), c, nil).Synthesize(context.Background(), entries(), t.TempDir())

	var se *failure.SynthesisError
	assert.True(errors.As(err, &se))
	assert.Equal(2, se.Index)
	assert.Equal("Stewie", se.Character)
	assert.ErrorIs(err, context.DeadlineExceeded)

	// sequential mode stops at the failing entry
	assert.EqualValues(2, engine.count.Load())
}

func TestSynthesizeCache(t *testing.T) {
	assert := require.New(t)

	store, err := kv.Open(&kv.Config{InMemory: true}, nil)
	assert.NoError(err)
	defer store.Close()

	c := ttsConfig(2)

	first := &fakeEngine{}
	_, err = speech.New(first, c.Catalog(), c, nil, speech.WithCache(store)).Synthesize(context.Background(), entries(), t.TempDir())
	assert.NoError(err)
	assert.EqualValues(3, first.count.Load())

	second := &fakeEngine{}
	as, err := speech.New(second, c.Catalog(), c, nil, speech.WithCache(store)).Synthesize(context.Background(), entries(), t.TempDir())
	assert.NoError(err)
	assert.EqualValues(0, second.count.Load())
	assert.Equal(2*time.Second, as.Artifacts[1].Duration)
}

func TestSynthesizeMerge(t *testing.T) {
	assert := require.New(t)

	c := ttsConfig(1)
	c.MergeAudio = true
	c.MergeGapSeconds = 0.5

	dir := t.TempDir()
	merger := &mergerMock{}
	merger.On("ConcatAudio", mock.Anything, 500*time.Millisecond, filepath.Join(dir, "skit_merged.wav")).Return(nil).Once()

	as, err := speech.New(&fakeEngine{}, c.Catalog(), c, nil, speech.WithMerger(merger, "skit")).Synthesize(context.Background(), entries(), dir)
	assert.NoError(err)
	merger.AssertExpectations(t)

	assert.Equal(as.Paths(), merger.Calls[0].Arguments.Get(0))
	assert.Equal(filepath.Join(dir, "skit_merged.wav"), as.MergedPath)
}

func TestLoadAudioScript(t *testing.T) {
	assert := require.New(t)

	c := ttsConfig(1)
	dir := t.TempDir()

	saved, err := speech.New(&fakeEngine{}, c.Catalog(), c, nil).Synthesize(context.Background(), entries(), dir)
	assert.NoError(err)

	loaded, err := speech.LoadAudioScript(context.Background(), dir, nil, nil)
	assert.NoError(err)
	assert.Equal(saved, loaded)
}

func TestLoadAudioScriptOutOfOrder(t *testing.T) {
	assert := require.New(t)

	dir := t.TempDir()
	as := speech.NewAudioScript("wav", []speech.Artifact{
		{Index: 1, Path: filepath.Join(dir, "002_peter.wav"), Character: peter, Content: "a", Duration: time.Second},
	})
	assert.NoError(as.Save(dir))

	_, err := speech.LoadAudioScript(context.Background(), dir, nil, nil)

	var fe *failure.FormatError
	assert.True(errors.As(err, &fe))
	assert.Equal(1, fe.Line)
}

type proberMock struct {
	mock.Mock
}

func (m *proberMock) FfprobePath(ctx context.Context, path string) (*ffmpeg.FfprobeResult, error) {
	args := m.Called(filepath.Base(path))
	res, _ := args.Get(0).(*ffmpeg.FfprobeResult)
	return res, args.Error(1)
}

func TestLoadAudioScriptFromSubtitles(t *testing.T) {
	assert := require.New(t)

	c := ttsConfig(1)
	dir := t.TempDir()

	saved, err := speech.New(&fakeEngine{}, c.Catalog(), c, nil).Synthesize(context.Background(), entries(), dir)
	assert.NoError(err)
	assert.NoError(os.Remove(filepath.Join(dir, speech.MetadataFile)))

	prober := &proberMock{}
	loaded, err := speech.LoadAudioScript(context.Background(), dir, []cfg.Character{peter, stewie}, prober)
	assert.NoError(err)
	prober.AssertNotCalled(t, "FfprobePath", mock.Anything)

	assert.Equal("wav", loaded.Format)
	assert.Equal(saved.Artifacts, loaded.Artifacts)
}

func TestLoadAudioScriptSubtitleCountMismatch(t *testing.T) {
	assert := require.New(t)

	c := ttsConfig(1)
	dir := t.TempDir()

	_, err := speech.New(&fakeEngine{}, c.Catalog(), c, nil).Synthesize(context.Background(), entries(), dir)
	assert.NoError(err)
	assert.NoError(os.Remove(filepath.Join(dir, speech.MetadataFile)))
	assert.NoError(os.WriteFile(filepath.Join(dir, speech.SubtitleFile), []byte("1\n00:00:00,000 --> 00:00:01,000\none\n"), 0o644))

	_, err = speech.LoadAudioScript(context.Background(), dir, nil, nil)

	var fe *failure.FormatError
	assert.True(errors.As(err, &fe))
	assert.Contains(fe.Text, "3 audio files")
}

func TestLoadAudioScriptBadSubtitleTiming(t *testing.T) {
	assert := require.New(t)

	dir := t.TempDir()
	assert.NoError(os.WriteFile(filepath.Join(dir, "001_peter.wav"), []byte("RIFF"), 0o644))
	assert.NoError(os.WriteFile(filepath.Join(dir, speech.SubtitleFile), []byte("1\n00:00:01 to 00:00:02\nhi\n"), 0o644))

	_, err := speech.LoadAudioScript(context.Background(), dir, nil, nil)

	var fe *failure.FormatError
	assert.True(errors.As(err, &fe))
	assert.Equal(3, fe.Line)
}

func TestLoadAudioScriptFromClipFiles(t *testing.T) {
	assert := require.New(t)

	dir := t.TempDir()
	for _, name := range []string{"001_peter_griffin.wav", "002_stewie.wav", "003_brian.wav", "skit_merged.wav", "notes.txt"} {
		assert.NoError(os.WriteFile(filepath.Join(dir, name), []byte("RIFF"), 0o644))
	}

	prober := &proberMock{}
	prober.On("FfprobePath", "001_peter_griffin.wav").Return(&ffmpeg.FfprobeResult{Duration: 1200 * time.Millisecond}, nil).Once()
	prober.On("FfprobePath", "002_stewie.wav").Return(&ffmpeg.FfprobeResult{Duration: 800 * time.Millisecond}, nil).Once()
	prober.On("FfprobePath", "003_brian.wav").Return(&ffmpeg.FfprobeResult{Duration: time.Second}, nil).Once()

	as, err := speech.LoadAudioScript(context.Background(), dir, []cfg.Character{peter, stewie}, prober)
	assert.NoError(err)
	prober.AssertExpectations(t)

	assert.Len(as.Artifacts, 3)
	assert.Equal(peter, as.Artifacts[0].Character)
	assert.Equal(stewie, as.Artifacts[1].Character)
	assert.Equal("brian", as.Artifacts[2].Character.Name)
	assert.Equal(1200*time.Millisecond, as.Artifacts[1].Start)
	assert.Equal(3*time.Second, as.Total())
	assert.Equal(int64(4), as.Artifacts[2].FileSize)
	assert.Empty(as.Artifacts[0].Content)
	assert.Equal("wav", as.Format)
}

func TestLoadAudioScriptClipGap(t *testing.T) {
	assert := require.New(t)

	dir := t.TempDir()
	for _, name := range []string{"001_peter.wav", "003_peter.wav"} {
		assert.NoError(os.WriteFile(filepath.Join(dir, name), []byte("RIFF"), 0o644))
	}

	_, err := speech.LoadAudioScript(context.Background(), dir, nil, &proberMock{})

	var fe *failure.FormatError
	assert.True(errors.As(err, &fe))
	assert.Equal(2, fe.Line)
}

func TestLoadAudioScriptEmptyDir(t *testing.T) {
	assert := require.New(t)

	_, err := speech.LoadAudioScript(context.Background(), t.TempDir(), nil, &proberMock{})

	var fe *failure.FormatError
	assert.True(errors.As(err, &fe))
}

func TestSRT(t *testing.T) {
	as := speech.NewAudioScript("wav", []speech.Artifact{
		{Index: 1, Content: "Hello", Duration: 1500 * time.Millisecond},
		{Index: 2, Content: "World", Duration: time.Hour},
	})

	want := "1\n00:00:00,000 --> 00:00:01,500\nHello\n" +
		"\n2\n00:00:01,500 --> 01:00:01,500\nWorld\n"
	require.Equal(t, want, as.SRT())
}
