package failure

import (
	"errors"
	"fmt"
)

// ValidationError reports a bad or missing configuration value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid config: " + e.Reason
	}
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// FormatError reports an LLM response line that is not prefixed by a configured character.
// Line is 1-based; zero means the response as a whole had no usable lines.
type FormatError struct {
	Line int
	Text string
}

func (e *FormatError) Error() string {
	if e.Line == 0 {
		return "malformed dialogue: " + e.Text
	}
	return fmt.Sprintf("malformed dialogue at line %d: %q", e.Line, e.Text)
}

type LengthError struct {
	Got int
	Min int
	Max int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("dialogue has %d lines, expected %d-%d", e.Got, e.Min, e.Max)
}

// SynthesisError names the dialogue entry whose audio could not be produced.
type SynthesisError struct {
	Index     int
	Character string
	Err       error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("failed to synthesize entry %d (%s): %v", e.Index, e.Character, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render video: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

type Stage string

const (
	StageConfig  Stage = "config"
	StageScript  Stage = "script"
	StageSpeech  Stage = "speech"
	StageVideo   Stage = "video"
	StagePublish Stage = "publish"
)

// StageError tags an error with the pipeline stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Item returns a human readable pointer to the failing item, if the error carries one.
func Item(err error) string {
	var (
		fe *FormatError
		se *SynthesisError
		ve *ValidationError
	)
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("entry %d (%s)", se.Index, se.Character)
	case errors.As(err, &fe) && fe.Line > 0:
		return fmt.Sprintf("line %d", fe.Line)
	case errors.As(err, &ve) && ve.Field != "":
		return ve.Field
	}
	return ""
}
