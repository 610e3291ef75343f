package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type TTSProvider string

const TTSProviderChatterbox TTSProvider = "chatterbox"

func ParseTTSProvider(s string) (TTSProvider, error) {
	switch p := TTSProvider(strings.ToLower(strings.TrimSpace(s))); p {
	case TTSProviderChatterbox:
		return p, nil
	default:
		return "", fmt.Errorf("unknown tts provider %q", s)
	}
}

type VoiceMode string

const (
	VoiceModeClone      VoiceMode = "clone"
	VoiceModePredefined VoiceMode = "predefined"
)

// Voice identifies either a reference sample to clone or a predefined voice on the server.
type Voice struct {
	Mode VoiceMode
	ID   string
}

// SelectVoice prefers the clone sample over the predefined voice.
func SelectVoice(clone, predefined string) (Voice, bool) {
	if clone = strings.TrimSpace(clone); clone != "" {
		return Voice{Mode: VoiceModeClone, ID: clone}, true
	}
	if predefined = strings.TrimSpace(predefined); predefined != "" {
		return Voice{Mode: VoiceModePredefined, ID: predefined}, true
	}
	return Voice{}, false
}

type Request struct {
	Text    string
	Voice   Voice
	Profile VoiceProfile
	Format  string
}

// Audio is the synthesized clip. Duration is measured on the returned bytes.
type Audio struct {
	Data     []byte
	Duration time.Duration
	Format   string
}

type TTSEngine interface {
	Synthesize(ctx context.Context, req *Request) (*Audio, error)
}
