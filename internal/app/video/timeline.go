package video

import (
	"strings"
	"time"
	"unicode/utf8"

	"skitgen/internal/app/speech"
	"skitgen/pkg/ffmpeg"
)

// BuildTimeline places clips back to back: each segment starts where the
// previous one ended and lasts exactly the clip's reported duration.
func BuildTimeline(artifacts []speech.Artifact) []ffmpeg.Segment {
	segments := make([]ffmpeg.Segment, 0, len(artifacts))

	var start time.Duration
	for _, a := range artifacts {
		segments = append(segments, ffmpeg.Segment{
			Start:     start,
			Duration:  a.Duration,
			AudioPath: a.Path,
			Text:      a.Content,
		})
		start += a.Duration
	}

	return segments
}

// WrapText breaks text on spaces so no line exceeds width runes, unless a
// single word is longer. A width of zero or less disables wrapping.
func WrapText(text string, width int) string {
	words := strings.Fields(text)
	if width <= 0 || len(words) == 0 {
		return strings.TrimSpace(text)
	}

	var (
		b       strings.Builder
		lineLen int
	)
	for _, w := range words {
		n := utf8.RuneCountInString(w)
		switch {
		case lineLen == 0:
		case lineLen+1+n > width:
			b.WriteByte('\n')
			lineLen = 0
		default:
			b.WriteByte(' ')
			lineLen++
		}
		b.WriteString(w)
		lineLen += n
	}

	return b.String()
}
