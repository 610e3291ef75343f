package ai_test

import (
	"testing"

	"skitgen/pkg/ai"

	"github.com/stretchr/testify/require"
)

func TestVoiceCatalogDefaults(t *testing.T) {
	assert := require.New(t)

	catalog := ai.DefaultVoiceCatalog()
	assert.Len(catalog.Names(), 7)

	p, ok := catalog.Lookup("EXPRESSIVE_MONOLOGUE")
	assert.True(ok)
	assert.Equal(ai.VoiceProfile{Temperature: 0.75, Exaggeration: 1.1, CFGWeight: 0.6, SpeedFactor: 1.0, Language: "en"}, p)

	p, ok = catalog.Lookup("")
	assert.True(ok)
	assert.Equal(0.8, p.Temperature)
	assert.Equal(0.4, p.Exaggeration)

	_, ok = catalog.Lookup("whispering_ghost")
	assert.False(ok)
}

func TestVoiceCatalogCustom(t *testing.T) {
	assert := require.New(t)

	catalog := ai.NewVoiceCatalog(map[string]ai.VoiceProfile{
		"Whispering_Ghost":   {Temperature: 0.5, SpeedFactor: 0.8, Language: "en"},
		"standard_narration": {Temperature: 0.9, SpeedFactor: 1.0, Language: "de"},
	})

	p, ok := catalog.Lookup("whispering_ghost")
	assert.True(ok)
	assert.Equal(0.8, p.SpeedFactor)

	p, _ = catalog.Lookup("standard_narration")
	assert.Equal("de", p.Language)

	assert.Len(ai.DefaultVoiceCatalog(), 7)
}

func TestProfileApply(t *testing.T) {
	assert := require.New(t)

	base, _ := ai.DefaultVoiceCatalog().Lookup("standard_narration")

	exaggeration := 0.9
	seed := 42
	lang := "fr"
	p := base.Apply(&ai.ProfileOverrides{Exaggeration: &exaggeration, Seed: &seed, Language: &lang})

	assert.Equal(0.8, p.Temperature)
	assert.Equal(0.9, p.Exaggeration)
	assert.Equal(42, p.Seed)
	assert.Equal("fr", p.Language)
	assert.Equal(0.4, base.Exaggeration)

	assert.Equal(base, base.Apply(nil))
}

func TestSelectVoice(t *testing.T) {
	assert := require.New(t)

	v, ok := ai.SelectVoice("stewie.wav", "Emily.wav")
	assert.True(ok)
	assert.Equal(ai.Voice{Mode: ai.VoiceModeClone, ID: "stewie.wav"}, v)

	v, ok = ai.SelectVoice(" ", "Emily.wav")
	assert.True(ok)
	assert.Equal(ai.Voice{Mode: ai.VoiceModePredefined, ID: "Emily.wav"}, v)

	_, ok = ai.SelectVoice("", "")
	assert.False(ok)
}
