package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"skitgen/cfg"
	"skitgen/internal/app/failure"
	"skitgen/internal/app/speech"
	"skitgen/pkg/dialogue"
	"skitgen/pkg/ffmpeg"

	pngstruct "github.com/dsoprea/go-png-image-structure"
	"github.com/google/uuid"
)

type Renderer interface {
	Render(ctx context.Context, job *ffmpeg.RenderJob) error
}

type Prober interface {
	FfprobePath(ctx context.Context, path string) (*ffmpeg.FfprobeResult, error)
}

type Rendered struct {
	Path       string
	Segments   []ffmpeg.Segment
	Duration   time.Duration
	FileSize   int64
	RenderTime time.Duration
}

type Assembler struct {
	renderer Renderer
	prober   Prober
	logger   *slog.Logger
}

func NewAssembler(renderer Renderer, prober Prober, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Assembler{
		renderer: renderer,
		prober:   prober,
		logger:   logger.WithGroup("video"),
	}
}

// Assemble renders the clips over the background video into outPath. Nothing
// is left at outPath unless rendering succeeds.
func (a *Assembler) Assemble(ctx context.Context, as *speech.AudioScript, chars []cfg.Character, vc *cfg.VideoConfig, outPath string) (*Rendered, error) {
	if as == nil || len(as.Artifacts) == 0 {
		return nil, errors.New("no audio clips to assemble")
	}

	if _, err := os.Stat(vc.BackgroundVideo); err != nil {
		return nil, failure.Invalid("video.background_video", "%v", err)
	}

	segments := BuildTimeline(as.Artifacts)
	if err := a.bindImages(segments, as.Artifacts, chars); err != nil {
		return nil, err
	}

	enc, err := a.encoding(ctx, vc)
	if err != nil {
		return nil, err
	}

	job := &ffmpeg.RenderJob{
		Background: vc.BackgroundVideo,
		Segments:   segments,
		Image:      imageStyle(&vc.CharacterImage),
		Encoding:   enc,
	}

	if vc.Subtitles.IsEnabled() {
		job.Subtitles = subtitleStyle(&vc.Subtitles)
		for i := range job.Segments {
			job.Segments[i].Text = WrapText(job.Segments[i].Text, vc.Subtitles.MaxCharsPerLine)
		}
	} else {
		for i := range job.Segments {
			job.Segments[i].Text = ""
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create videos dir: %w", err)
	}

	ext := filepath.Ext(outPath)
	tmp := strings.TrimSuffix(outPath, ext) + ".partial-" + uuid.NewString() + ext
	job.Output = tmp

	a.logger.Info("rendering video", "segments", len(segments), "duration", job.Total(), "size", fmt.Sprintf("%dx%d", enc.Width, enc.Height))

	start := time.Now()

	if err := a.renderer.Render(ctx, job); err != nil {
		_ = os.Remove(tmp)
		return nil, &failure.RenderError{Err: err}
	}

	if err := os.Rename(tmp, outPath); err != nil {
		_ = os.Remove(tmp)
		return nil, &failure.RenderError{Err: fmt.Errorf("failed to move rendered video: %w", err)}
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return nil, &failure.RenderError{Err: err}
	}

	return &Rendered{
		Path:       outPath,
		Segments:   job.Segments,
		Duration:   job.Total(),
		FileSize:   info.Size(),
		RenderTime: time.Since(start),
	}, nil
}

func (a *Assembler) bindImages(segments []ffmpeg.Segment, artifacts []speech.Artifact, chars []cfg.Character) error {
	names := make([]string, 0, len(chars))
	byName := make(map[string]cfg.Character, len(chars))
	for _, ch := range chars {
		names = append(names, ch.Name)
		byName[ch.Name] = ch
	}
	roster := dialogue.NewRoster(names...)

	checked := map[string]error{}
	for i, art := range artifacts {
		name, ok := roster.Lookup(art.Character.Name)
		if !ok {
			return failure.Invalid("characters", "clip %d is spoken by %q who is not configured", art.Index, art.Character.Name)
		}

		img := byName[name].ImagePath
		if img == "" {
			continue
		}

		err, seen := checked[img]
		if !seen {
			err = checkImage(img)
			checked[img] = err
		}
		if err != nil {
			return failure.Invalid("characters.image_path", "%s: %v", name, err)
		}

		segments[i].ImagePath = img
	}

	return nil
}

// checkImage makes sure the file exists and, for PNGs, that its chunk layout parses.
func checkImage(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if !strings.EqualFold(filepath.Ext(path), ".png") {
		return nil
	}

	mc, err := pngstruct.NewPngMediaParser().ParseBytes(data)
	if err != nil {
		return fmt.Errorf("failed to parse png: %w", err)
	}

	cs, ok := mc.(*pngstruct.ChunkSlice)
	if !ok {
		return errors.New("unexpected png structure")
	}
	if _, found := cs.Index()["IHDR"]; !found {
		return errors.New("png has no IHDR chunk")
	}

	return nil
}

func (a *Assembler) encoding(ctx context.Context, vc *cfg.VideoConfig) (ffmpeg.Encoding, error) {
	enc := ffmpeg.Encoding{
		Codec:   vc.Codec,
		FPS:     vc.FPS,
		Quality: ffmpeg.Qualities[vc.Quality],
		Width:   vc.Width,
		Height:  vc.Height,
	}

	if enc.Width > 0 && enc.Height > 0 {
		return enc, nil
	}

	if a.prober == nil {
		return enc, failure.Invalid("video.width", "width and height are required when the background cannot be probed")
	}

	res, err := a.prober.FfprobePath(ctx, vc.BackgroundVideo)
	if err != nil {
		return enc, fmt.Errorf("failed to probe background: %w", err)
	}
	if res.Width <= 0 || res.Height <= 0 {
		return enc, failure.Invalid("video.background_video", "has no video stream")
	}

	// yuv420p needs even dimensions
	enc.Width = res.Width &^ 1
	enc.Height = res.Height &^ 1

	return enc, nil
}

func subtitleStyle(s *cfg.SubtitleConfig) *ffmpeg.SubtitleStyle {
	pos, _ := ffmpeg.ParsePosition(s.Position)
	return &ffmpeg.SubtitleStyle{
		FontName:    s.FontName,
		FontFile:    s.FontFile,
		FontSize:    s.FontSize,
		FontColor:   s.FontColor,
		StrokeColor: s.StrokeColor,
		StrokeWidth: s.StrokeWidth,
		Position:    pos,
		Margin:      s.Margin,
	}
}

func imageStyle(c *cfg.ImageConfig) ffmpeg.ImageStyle {
	pos, _ := ffmpeg.ParsePosition(c.Position)
	return ffmpeg.ImageStyle{
		Width:    c.Width,
		Position: pos,
		Margin:   c.Margin,
	}
}
