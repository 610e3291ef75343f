package ai

import (
	"maps"
	"slices"
	"strings"
)

const DefaultVoiceProfile = "standard_narration"

// VoiceProfile is a named preset of synthesis parameters.
type VoiceProfile struct {
	Temperature  float64 `yaml:"temperature" json:"temperature"`
	Exaggeration float64 `yaml:"exaggeration" json:"exaggeration"`
	CFGWeight    float64 `yaml:"cfg_weight" json:"cfg_weight"`
	Seed         int     `yaml:"seed" json:"seed"`
	SpeedFactor  float64 `yaml:"speed_factor" json:"speed_factor"`
	Language     string  `yaml:"language" json:"language"`
}

// ProfileOverrides replaces individual profile fields for one character.
type ProfileOverrides struct {
	Temperature  *float64 `yaml:"temperature" json:"temperature,omitempty"`
	Exaggeration *float64 `yaml:"exaggeration" json:"exaggeration,omitempty"`
	CFGWeight    *float64 `yaml:"cfg_weight" json:"cfg_weight,omitempty"`
	Seed         *int     `yaml:"seed" json:"seed,omitempty"`
	SpeedFactor  *float64 `yaml:"speed_factor" json:"speed_factor,omitempty"`
	Language     *string  `yaml:"language" json:"language,omitempty"`
}

func (p VoiceProfile) Apply(o *ProfileOverrides) VoiceProfile {
	if o == nil {
		return p
	}
	if o.Temperature != nil {
		p.Temperature = *o.Temperature
	}
	if o.Exaggeration != nil {
		p.Exaggeration = *o.Exaggeration
	}
	if o.CFGWeight != nil {
		p.CFGWeight = *o.CFGWeight
	}
	if o.Seed != nil {
		p.Seed = *o.Seed
	}
	if o.SpeedFactor != nil {
		p.SpeedFactor = *o.SpeedFactor
	}
	if o.Language != nil {
		p.Language = *o.Language
	}
	return p
}

// VoiceCatalog maps lower case profile names to presets.
type VoiceCatalog map[string]VoiceProfile

func DefaultVoiceCatalog() VoiceCatalog {
	return VoiceCatalog{
		"standard_narration":      {Temperature: 0.8, Exaggeration: 0.4, CFGWeight: 0.5, SpeedFactor: 1.0, Language: "en"},
		"expressive_monologue":    {Temperature: 0.75, Exaggeration: 1.1, CFGWeight: 0.6, SpeedFactor: 1.0, Language: "en"},
		"technical_explanation":   {Temperature: 0.85, Exaggeration: 0.4, CFGWeight: 0.5, SpeedFactor: 1.0, Language: "en"},
		"upbeat_advertisement":    {Temperature: 0.8, Exaggeration: 1.3, CFGWeight: 0.45, SpeedFactor: 1.0, Language: "en"},
		"thoughtful_reflection":   {Temperature: 0.7, Exaggeration: 0.4, CFGWeight: 0.6, SpeedFactor: 1.0, Language: "en"},
		"simple_punctuation_test": {Temperature: 0.8, Exaggeration: 0.5, CFGWeight: 0.5, SpeedFactor: 1.0, Language: "en"},
		"long_story_excerpt":      {Temperature: 0.78, Exaggeration: 1.1, CFGWeight: 0.55, SpeedFactor: 1.0, Language: "en"},
	}
}

// NewVoiceCatalog returns the built-in presets with custom entries layered on top.
func NewVoiceCatalog(custom map[string]VoiceProfile) VoiceCatalog {
	catalog := DefaultVoiceCatalog()
	for name, profile := range custom {
		catalog[normalizeProfileName(name)] = profile
	}
	return catalog
}

func (c VoiceCatalog) Lookup(name string) (VoiceProfile, bool) {
	if strings.TrimSpace(name) == "" {
		name = DefaultVoiceProfile
	}
	profile, ok := c[normalizeProfileName(name)]
	return profile, ok
}

func (c VoiceCatalog) Names() []string {
	return slices.Sorted(maps.Keys(c))
}

func normalizeProfileName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
