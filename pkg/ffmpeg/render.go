package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Position string

const (
	PositionTop    Position = "top"
	PositionCenter Position = "center"
	PositionBottom Position = "bottom"
)

func ParsePosition(s string) (Position, bool) {
	switch p := Position(strings.ToLower(s)); p {
	case PositionTop, PositionCenter, PositionBottom:
		return p, true
	}
	return "", false
}

type Quality struct {
	CRF    int
	Preset string
}

var Qualities = map[string]Quality{
	"low":    {CRF: 28, Preset: "faster"},
	"medium": {CRF: 23, Preset: "medium"},
	"high":   {CRF: 18, Preset: "slow"},
	"ultra":  {CRF: 15, Preset: "slower"},
}

type SubtitleStyle struct {
	FontName    string
	FontFile    string
	FontSize    int
	FontColor   string
	StrokeColor string
	StrokeWidth int
	Position    Position
	Margin      int
}

type ImageStyle struct {
	Width    int
	Position Position
	Margin   int
}

type Encoding struct {
	Codec   string
	FPS     int
	Quality Quality
	Width   int
	Height  int
}

// Segment is one slice of the timeline. TextFile holds the subtitle text and is
// filled in by Render; an empty TextFile means no subtitle for the segment.
type Segment struct {
	Start     time.Duration
	Duration  time.Duration
	ImagePath string
	AudioPath string
	Text      string
	TextFile  string
}

func (s Segment) End() time.Duration {
	return s.Start + s.Duration
}

type RenderJob struct {
	Background string
	Segments   []Segment
	Subtitles  *SubtitleStyle
	Image      ImageStyle
	Encoding   Encoding
	Output     string
}

func (j *RenderJob) Total() time.Duration {
	if len(j.Segments) == 0 {
		return 0
	}
	return j.Segments[len(j.Segments)-1].End()
}

// BuildRenderArgs lays out the ffmpeg invocation for a job: the looped background
// scaled to the frame, one overlay per distinct image shown during its segments,
// one drawtext per subtitle and the segment audio padded or trimmed to length and
// concatenated in order.
func BuildRenderArgs(job *RenderJob) []string {
	w, h := job.Encoding.Width, job.Encoding.Height
	total := seconds(job.Total())

	args := []string{"-nostats", "-loglevel", "error", "-stream_loop", "-1", "-i", job.Background}

	var images []string
	imageInput := map[string]int{}
	for _, s := range job.Segments {
		if s.ImagePath == "" {
			continue
		}
		if _, ok := imageInput[s.ImagePath]; ok {
			continue
		}
		imageInput[s.ImagePath] = len(images) + 1
		images = append(images, s.ImagePath)
		args = append(args, "-loop", "1", "-i", s.ImagePath)
	}

	audioBase := len(images) + 1
	for _, s := range job.Segments {
		args = append(args, "-i", s.AudioPath)
	}

	var graph []string
	graph = append(graph, fmt.Sprintf(
		"[0:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1,fps=%d,trim=duration=%s,setpts=PTS-STARTPTS[bg]",
		w, h, w, h, job.Encoding.FPS, total,
	))

	last := "bg"
	for i, img := range images {
		input := imageInput[img]
		graph = append(graph, fmt.Sprintf("[%d:v]scale=%d:-1[img%d]", input, job.Image.Width, i))

		var windows []string
		for _, s := range job.Segments {
			if s.ImagePath == img {
				windows = append(windows, window(s))
			}
		}

		next := fmt.Sprintf("ov%d", i)
		graph = append(graph, fmt.Sprintf(
			"[%s][img%d]overlay=x=(W-w)/2:y=%s:enable='%s'[%s]",
			last, i, overlayY(job.Image.Position, job.Image.Margin), strings.Join(windows, "+"), next,
		))
		last = next
	}

	if job.Subtitles != nil {
		for i, s := range job.Segments {
			if s.TextFile == "" {
				continue
			}
			next := fmt.Sprintf("sub%d", i)
			graph = append(graph, fmt.Sprintf("[%s]%s[%s]", last, drawtext(job.Subtitles, s), next))
			last = next
		}
	}

	audioLabels := make([]string, 0, len(job.Segments))
	for i, s := range job.Segments {
		graph = append(graph, fmt.Sprintf(
			"[%d:a]aresample=%s,aformat=sample_fmts=fltp:channel_layouts=stereo,apad,atrim=duration=%s[a%d]",
			audioBase+i, sampleRate, seconds(s.Duration), i,
		))
		audioLabels = append(audioLabels, fmt.Sprintf("[a%d]", i))
	}
	graph = append(graph, fmt.Sprintf("%sconcat=n=%d:v=0:a=1[aout]", strings.Join(audioLabels, ""), len(audioLabels)))

	args = append(args,
		"-filter_complex", strings.Join(graph, ";"),
		"-map", "["+last+"]",
		"-map", "[aout]",
		"-c:v", job.Encoding.Codec,
		"-preset", job.Encoding.Quality.Preset,
		"-crf", strconv.Itoa(job.Encoding.Quality.CRF),
		"-r", strconv.Itoa(job.Encoding.FPS),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-t", total,
		"-movflags", "+faststart",
		"-f", "mp4",
		"-y",
		job.Output,
	)

	return args
}

func window(s Segment) string {
	return fmt.Sprintf("gte(t,%s)*lt(t,%s)", seconds(s.Start), seconds(s.End()))
}

func overlayY(p Position, margin int) string {
	switch p {
	case PositionTop:
		return strconv.Itoa(margin)
	case PositionBottom:
		return fmt.Sprintf("H-h-%d", margin)
	default:
		return "(H-h)/2"
	}
}

// filterArg quotes v as a filter option value inside -filter_complex. The
// graph parser and then the option parser each strip one level of quoting.
func filterArg(v string) string {
	v = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`).Replace(v)
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

func drawtext(style *SubtitleStyle, s Segment) string {
	opts := []string{"textfile=" + filterArg(s.TextFile), "expansion=none"}
	if style.FontFile != "" {
		opts = append(opts, "fontfile="+filterArg(style.FontFile))
	} else if style.FontName != "" {
		opts = append(opts, "font="+filterArg(style.FontName))
	}
	opts = append(opts,
		"fontsize="+strconv.Itoa(style.FontSize),
		"fontcolor="+style.FontColor,
		"line_spacing=8",
	)
	if style.StrokeWidth > 0 {
		opts = append(opts, "borderw="+strconv.Itoa(style.StrokeWidth), "bordercolor="+style.StrokeColor)
	}

	var y string
	switch style.Position {
	case PositionTop:
		y = strconv.Itoa(style.Margin)
	case PositionCenter:
		y = "(h-text_h)/2"
	default:
		y = fmt.Sprintf("h-text_h-%d", style.Margin)
	}
	opts = append(opts, "x=(w-text_w)/2", "y="+y, "enable='"+window(s)+"'")

	return "drawtext=" + strings.Join(opts, ":")
}

// Render writes subtitle text files to the temp dir, runs ffmpeg and cleans up.
func (c *Client) Render(ctx context.Context, job *RenderJob) error {
	if len(job.Segments) == 0 {
		return fmt.Errorf("no segments to render")
	}

	local := *job
	local.Segments = slices.Clone(job.Segments)

	if local.Subtitles != nil {
		for i := range local.Segments {
			if strings.TrimSpace(local.Segments[i].Text) == "" {
				continue
			}

			textPath := path.Join(c.TmpDir(), prefix+uuid.NewString()+".txt")
			if err := os.WriteFile(textPath, []byte(local.Segments[i].Text), 0644); err != nil {
				return fmt.Errorf("write subtitle file: %w", err)
			}
			defer os.Remove(textPath)

			local.Segments[i].TextFile = textPath
		}
	}

	start := time.Now()

	if err := c.run(ctx, "ffmpeg", BuildRenderArgs(&local)...); err != nil {
		metrics.RenderErrors.WithLabelValues("ffmpeg").Inc()
		return err
	}

	metrics.RenderTime.Observe(time.Since(start).Seconds())

	return nil
}
