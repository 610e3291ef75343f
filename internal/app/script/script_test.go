package script_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"skitgen/cfg"
	"skitgen/internal/app/failure"
	"skitgen/internal/app/script"
	"skitgen/pkg/llm"

	"github.com/kylelemons/godebug/pretty"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type generatorMock struct {
	mock.Mock
}

func (m *generatorMock) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

var (
	stewie = cfg.Character{Name: "Stewie", SpeakingStyle: "condescending", ConversationalRole: "skeptic", TTSVoiceClone: "stewie.wav"}
	peter  = cfg.Character{Name: "Peter", SpeakingStyle: "loud", ConversationalRole: "enthusiast", TTSVoicePredefined: "Thomas.wav"}
	brian  = cfg.Character{Name: "Brian", SpeakingStyle: "pretentious", ConversationalRole: "narrator"}
)

func scriptConfig(length string) *cfg.ScriptConfig {
	return &cfg.ScriptConfig{
		OverallConversationStyle: "comedic banter",
		MainTopic:                "robot writers",
		Scenario:                 "living room",
		DialogueLength:           length,
		MalformedLines:           cfg.MalformedReject,
	}
}

func TestBuildPrompt(t *testing.T) {
	assert := require.New(t)

	sc := scriptConfig("4 lines")
	sc.SystemPromptExtra = "Keep it PG."
	sc.UserPromptExtra = "End on a punchline."

	p := script.BuildPrompt(sc, []cfg.Character{stewie, peter})

	assert.Contains(p.System, "<CHARACTER_NAME>:")
	assert.True(strings.HasSuffix(p.System, "Keep it PG."))

	for _, want := range []string{
		"comedic banter",
		"Topic: robot writers",
		"Scenario: living room",
		"approximately 4 lines",
		"- Stewie (role: skeptic), speaks: condescending",
		"- Peter (role: enthusiast), speaks: loud",
		"one of: Stewie, Peter",
		"End on a punchline.",
	} {
		assert.Contains(p.User, want)
	}
	assert.NotContains(p.User, "Brian")
}

func TestGenerate(t *testing.T) {
	assert := require.New(t)

	chars := []cfg.Character{stewie, peter, brian}
	sc := scriptConfig("3-4 lines")

	gen := &generatorMock{}
	gen.On("Generate", mock.Anything, script.BuildPrompt(sc, chars)).Return(
		"```\n**Peter:** Hey Lois!\n\nstewie: Blast.\n1. Brian: Indeed.\nPETER: Heh heh.\n```\n", nil).Once()

	entries, err := script.Generate(context.Background(), gen, sc, chars)
	assert.NoError(err)
	gen.AssertExpectations(t)

	want := []script.Entry{
		{Character: peter, Content: "Hey Lois!"},
		{Character: stewie, Content: "Blast."},
		{Character: brian, Content: "Indeed."},
		{Character: peter, Content: "Heh heh."},
	}
	if diff := pretty.Compare(want, entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateSubsetOfCharacters(t *testing.T) {
	assert := require.New(t)

	chars := []cfg.Character{stewie, peter, brian}
	gen := &generatorMock{}
	gen.On("Generate", mock.Anything, mock.Anything).Return("Stewie: One.\nStewie: Two.", nil)

	entries, err := script.Generate(context.Background(), gen, scriptConfig("2"), chars)
	assert.NoError(err)
	assert.Len(entries, 2)
	for _, e := range entries {
		assert.Equal(stewie, e.Character)
	}
}

func TestGenerateProviderError(t *testing.T) {
	assert := require.New(t)

	boom := errors.New("quota exceeded")
	gen := &generatorMock{}
	gen.On("Generate", mock.Anything, mock.Anything).Return("", boom).Once()

	_, err := script.Generate(context.Background(), gen, scriptConfig("2"), []cfg.Character{stewie})
	assert.ErrorIs(err, boom)
	gen.AssertNumberOfCalls(t, "Generate", 1)
}

func TestParseMalformed(t *testing.T) {
	raw := "Stewie: Hello.\nNarrator: Meanwhile...\nPeter: Hi."
	chars := []cfg.Character{stewie, peter}
	length := cfg.LengthRange{Min: 1, Max: 10}

	t.Run("reject", func(t *testing.T) {
		assert := require.New(t)

		_, err := script.Parse(raw, chars, cfg.MalformedReject, length, nil)

		var fe *failure.FormatError
		assert.True(errors.As(err, &fe))
		assert.Equal(2, fe.Line)
		assert.Equal("Narrator: Meanwhile...", fe.Text)
	})

	t.Run("drop", func(t *testing.T) {
		assert := require.New(t)

		entries, err := script.Parse(raw, chars, cfg.MalformedDrop, length, nil)
		assert.NoError(err)
		assert.Len(entries, 2)
		assert.Equal("Hello.", entries[0].Content)
		assert.Equal("Hi.", entries[1].Content)
	})

	t.Run("no lines", func(t *testing.T) {
		assert := require.New(t)

		_, err := script.Parse("I cannot help with that.", chars, cfg.MalformedDrop, length, nil)

		var fe *failure.FormatError
		assert.True(errors.As(err, &fe))
		assert.Zero(fe.Line)
	})
}

func TestParseLength(t *testing.T) {
	assert := require.New(t)

	raw := "Stewie: a\nPeter: b\nStewie: c"
	_, err := script.Parse(raw, []cfg.Character{stewie, peter}, cfg.MalformedReject, cfg.LengthRange{Min: 10, Max: 12}, nil)

	var le *failure.LengthError
	assert.True(errors.As(err, &le))
	assert.Equal(failure.LengthError{Got: 3, Min: 10, Max: 12}, *le)
}

func TestEntriesRoundTrip(t *testing.T) {
	assert := require.New(t)

	path := filepath.Join(t.TempDir(), "scripts", script.EntriesFile)
	entries := []script.Entry{
		{Character: peter, Content: "Hey Lois!"},
		{Character: stewie, Content: "What the deuce?"},
	}

	assert.NoError(script.SaveEntries(path, entries))

	loaded, err := script.LoadEntries(path, nil)
	assert.NoError(err)
	if diff := pretty.Compare(entries, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEntriesUnknownCharacter(t *testing.T) {
	assert := require.New(t)

	path := filepath.Join(t.TempDir(), script.EntriesFile)
	assert.NoError(script.SaveEntries(path, []script.Entry{
		{Character: peter, Content: "a"},
		{Character: brian, Content: "b"},
	}))

	_, err := script.LoadEntries(path, []cfg.Character{stewie, peter})

	var fe *failure.FormatError
	assert.True(errors.As(err, &fe))
	assert.Equal(2, fe.Line)
}

func TestLoadDialogueFile(t *testing.T) {
	assert := require.New(t)

	path := filepath.Join(t.TempDir(), "dialogue.txt")
	assert.NoError(os.WriteFile(path, []byte("# draft\nPETER: Roadhouse!\n\nStewie: Honestly.\n"), 0o644))

	entries, err := script.LoadDialogueFile(path, []cfg.Character{stewie, peter}, cfg.MalformedReject)
	assert.NoError(err)
	assert.Equal([]script.Entry{
		{Character: peter, Content: "Roadhouse!"},
		{Character: stewie, Content: "Honestly."},
	}, entries)
}
