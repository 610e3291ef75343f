package speech

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"skitgen/cfg"
	"skitgen/internal/app/failure"
	"skitgen/pkg/ffmpeg"
	"skitgen/pkg/tools"
)

type Prober interface {
	FfprobePath(ctx context.Context, path string) (*ffmpeg.FfprobeResult, error)
}

// clipName matches the names Synthesize gives clips: NNN_<character>.<format>.
var clipName = regexp.MustCompile(`^(\d{3})_(.+)\.(wav|mp3|opus|flac|m4a)$`)

type clipFile struct {
	index     int
	path      string
	character string
	format    string
}

// LoadAudioScript rebuilds the clips of a previous run from dir. It reads
// audio_script.json when present, falls back to audio_script.srt and finally
// to the NNN_<character> clip files themselves, probing each for its duration.
// Characters are matched by name to fill in voice and image settings.
func LoadAudioScript(ctx context.Context, dir string, characters []cfg.Character, prober Prober) (*AudioScript, error) {
	switch ok, err := exists(filepath.Join(dir, MetadataFile)); {
	case err != nil:
		return nil, err
	case ok:
		return loadMetadata(dir)
	}

	clips, err := listClips(dir)
	if err != nil {
		return nil, err
	}

	switch ok, err := exists(filepath.Join(dir, SubtitleFile)); {
	case err != nil:
		return nil, err
	case ok:
		return loadSRT(dir, clips, characters)
	}

	return loadClips(ctx, clips, characters, prober)
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func loadMetadata(dir string) (*AudioScript, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read audio script: %w", err)
	}

	var doc audioScriptFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &failure.FormatError{Text: fmt.Sprintf("%s: %v", MetadataFile, err)}
	}

	if len(doc.AudioFiles) == 0 {
		return nil, &failure.FormatError{Text: MetadataFile + " lists no audio files"}
	}

	artifacts := make([]Artifact, 0, len(doc.AudioFiles))
	for i, rec := range doc.AudioFiles {
		index := i + 1
		if rec.Index != index || !strings.HasPrefix(rec.Filename, fmt.Sprintf("%03d_", index)) {
			return nil, &failure.FormatError{
				Line: index,
				Text: fmt.Sprintf("audio file %q is out of order", rec.Filename),
			}
		}

		path := filepath.Join(dir, rec.Filename)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to stat audio file: %w", err)
		}

		artifacts = append(artifacts, Artifact{
			Index:     rec.Index,
			Path:      path,
			Character: rec.Character,
			Content:   rec.Dialogue,
			Duration:  fromSeconds(rec.DurationSeconds),
			FileSize:  rec.FileSizeBytes,
		})
	}

	as := NewAudioScript(doc.Format, artifacts)
	if doc.MergedFile != "" {
		as.MergedPath = filepath.Join(dir, doc.MergedFile)
	}

	return as, nil
}

// listClips returns the clip files of dir ordered by index. Indices must run
// 1..n without gaps.
func listClips(dir string) ([]clipFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio dir: %w", err)
	}

	var clips []clipFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := clipName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		index, _ := strconv.Atoi(m[1])
		clips = append(clips, clipFile{
			index:     index,
			path:      filepath.Join(dir, e.Name()),
			character: m[2],
			format:    m[3],
		})
	}

	// ReadDir sorts by name and the index is zero padded.
	for i, c := range clips {
		if c.index != i+1 {
			return nil, &failure.FormatError{
				Line: i + 1,
				Text: fmt.Sprintf("audio file %q is out of order", filepath.Base(c.path)),
			}
		}
	}

	return clips, nil
}

type srtBlock struct {
	start, end time.Duration
	text       string
}

func loadSRT(dir string, clips []clipFile, characters []cfg.Character) (*AudioScript, error) {
	f, err := os.Open(filepath.Join(dir, SubtitleFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open subtitles: %w", err)
	}
	defer f.Close()

	blocks, err := parseSRT(f)
	if err != nil {
		return nil, err
	}

	if len(blocks) == 0 {
		return nil, &failure.FormatError{Text: SubtitleFile + " has no entries"}
	}
	if len(blocks) != len(clips) {
		return nil, &failure.FormatError{
			Text: fmt.Sprintf("%s has %d entries but %d audio files were found", SubtitleFile, len(blocks), len(clips)),
		}
	}

	artifacts := make([]Artifact, 0, len(clips))
	for i, clip := range clips {
		a, err := clip.artifact(characters)
		if err != nil {
			return nil, err
		}
		a.Content = blocks[i].text
		a.Duration = blocks[i].end - blocks[i].start
		artifacts = append(artifacts, a)
	}

	return NewAudioScript(clips[0].format, artifacts), nil
}

func parseSRT(r io.Reader) ([]srtBlock, error) {
	var (
		blocks []srtBlock
		lines  []string
		lineNo int
	)

	flush := func() error {
		defer func() { lines = lines[:0] }()
		if len(lines) == 0 {
			return nil
		}
		if len(lines) < 2 {
			return &failure.FormatError{Line: lineNo, Text: "incomplete subtitle entry"}
		}

		from, to, ok := strings.Cut(lines[1], " --> ")
		if !ok {
			return &failure.FormatError{Line: lineNo, Text: fmt.Sprintf("bad subtitle timing %q", lines[1])}
		}
		start, err := parseSRTTimestamp(from)
		if err != nil {
			return &failure.FormatError{Line: lineNo, Text: err.Error()}
		}
		end, err := parseSRTTimestamp(to)
		if err != nil {
			return &failure.FormatError{Line: lineNo, Text: err.Error()}
		}
		if end < start {
			return &failure.FormatError{Line: lineNo, Text: "subtitle ends before it starts"}
		}

		blocks = append(blocks, srtBlock{
			start: start,
			end:   end,
			text:  strings.Join(lines[2:], "\n"),
		})
		return nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subtitles: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return blocks, nil
}

// parseSRTTimestamp reads HH:MM:SS,mmm.
func parseSRTTimestamp(s string) (time.Duration, error) {
	var h, m, sec, ms int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d:%d,%d", &h, &m, &sec, &ms); err != nil {
		return 0, fmt.Errorf("bad subtitle timestamp %q", s)
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

func loadClips(ctx context.Context, clips []clipFile, characters []cfg.Character, prober Prober) (*AudioScript, error) {
	if len(clips) == 0 {
		return nil, &failure.FormatError{Text: "no audio script and no NNN_<character> audio files found"}
	}
	if prober == nil {
		return nil, errors.New("audio durations need ffprobe when no audio script is present")
	}

	artifacts := make([]Artifact, 0, len(clips))
	for _, clip := range clips {
		a, err := clip.artifact(characters)
		if err != nil {
			return nil, err
		}

		res, err := prober.FfprobePath(ctx, clip.path)
		if err != nil {
			return nil, fmt.Errorf("failed to probe %s: %w", filepath.Base(clip.path), err)
		}
		a.Duration = res.Duration
		artifacts = append(artifacts, a)
	}

	return NewAudioScript(clips[0].format, artifacts), nil
}

func (c clipFile) artifact(characters []cfg.Character) (Artifact, error) {
	info, err := os.Stat(c.path)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to stat audio file: %w", err)
	}

	return Artifact{
		Index:     c.index,
		Path:      c.path,
		Character: matchCharacter(c.character, characters),
		FileSize:  info.Size(),
	}, nil
}

// matchCharacter maps a file name part back to the configured character.
// Unknown names yield a bare character so the clip still renders.
func matchCharacter(name string, characters []cfg.Character) cfg.Character {
	for _, ch := range characters {
		if tools.Slug(ch.Name) == strings.ToLower(name) {
			return ch
		}
	}
	return cfg.Character{Name: name}
}
