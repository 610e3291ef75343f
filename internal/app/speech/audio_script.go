package speech

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"skitgen/cfg"
)

const (
	MetadataFile = "audio_script.json"
	SubtitleFile = "audio_script.srt"
)

// Artifact is one synthesized clip. Duration is what the TTS engine reported.
type Artifact struct {
	Index     int
	Path      string
	Character cfg.Character
	Content   string
	Duration  time.Duration
	FileSize  int64
	Start     time.Duration
}

func (a Artifact) End() time.Duration {
	return a.Start + a.Duration
}

type AudioScript struct {
	Format     string
	Artifacts  []Artifact
	MergedPath string
}

// NewAudioScript lays the clips back to back in the given order.
func NewAudioScript(format string, artifacts []Artifact) *AudioScript {
	var start time.Duration
	for i := range artifacts {
		artifacts[i].Start = start
		start += artifacts[i].Duration
	}

	return &AudioScript{
		Format:    format,
		Artifacts: artifacts,
	}
}

func (s *AudioScript) Total() time.Duration {
	if len(s.Artifacts) == 0 {
		return 0
	}
	return s.Artifacts[len(s.Artifacts)-1].End()
}

func (s *AudioScript) Paths() []string {
	paths := make([]string, 0, len(s.Artifacts))
	for _, a := range s.Artifacts {
		paths = append(paths, a.Path)
	}
	return paths
}

type audioScriptFile struct {
	Format               string        `json:"format"`
	TotalDurationSeconds float64       `json:"total_duration_seconds"`
	MergedFile           string        `json:"merged_file,omitempty"`
	AudioFiles           []audioRecord `json:"audio_files"`
}

type audioRecord struct {
	Index           int           `json:"index"`
	Character       cfg.Character `json:"character"`
	Dialogue        string        `json:"dialogue"`
	Filename        string        `json:"filename"`
	DurationSeconds float64       `json:"duration_seconds"`
	FileSizeBytes   int64         `json:"file_size_bytes"`
	StartTime       float64       `json:"start_time"`
	EndTime         float64       `json:"end_time"`
}

// Metadata renders the audio_script.json document.
func (s *AudioScript) Metadata() ([]byte, error) {
	doc := audioScriptFile{
		Format:               s.Format,
		TotalDurationSeconds: s.Total().Seconds(),
		AudioFiles:           make([]audioRecord, 0, len(s.Artifacts)),
	}
	if s.MergedPath != "" {
		doc.MergedFile = filepath.Base(s.MergedPath)
	}

	for _, a := range s.Artifacts {
		doc.AudioFiles = append(doc.AudioFiles, audioRecord{
			Index:           a.Index,
			Character:       a.Character,
			Dialogue:        a.Content,
			Filename:        filepath.Base(a.Path),
			DurationSeconds: a.Duration.Seconds(),
			FileSizeBytes:   a.FileSize,
			StartTime:       a.Start.Seconds(),
			EndTime:         a.End().Seconds(),
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audio script: %w", err)
	}

	return append(data, '\n'), nil
}

// Save writes the metadata and an SRT rendition into dir.
func (s *AudioScript) Save(dir string) error {
	data, err := s.Metadata()
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, MetadataFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write audio script: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, SubtitleFile), []byte(s.SRT()), 0o644); err != nil {
		return fmt.Errorf("failed to write subtitles: %w", err)
	}

	return nil
}

func (s *AudioScript) SRT() string {
	var b strings.Builder
	for i, a := range s.Artifacts {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n", i+1, srtTimestamp(a.Start), srtTimestamp(a.End()), a.Content)
	}
	return b.String()
}

func srtTimestamp(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3_600_000, ms/60_000%60, ms/1000%60, ms%1000)
}

func fromSeconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
