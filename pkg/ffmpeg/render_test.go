package ffmpeg_test

import (
	"slices"
	"strings"
	"testing"
	"time"

	"skitgen/pkg/ffmpeg"

	"github.com/stretchr/testify/require"
)

func testJob() *ffmpeg.RenderJob {
	return &ffmpeg.RenderJob{
		Background: "bg.mp4",
		Segments: []ffmpeg.Segment{
			{Start: 0, Duration: 1500 * time.Millisecond, ImagePath: "stewie.png", AudioPath: "000_stewie.wav", TextFile: "/tmp/s0.txt"},
			{Start: 1500 * time.Millisecond, Duration: 2 * time.Second, ImagePath: "peter.png", AudioPath: "001_peter.wav", TextFile: "/tmp/s1.txt"},
			{Start: 3500 * time.Millisecond, Duration: time.Second, ImagePath: "stewie.png", AudioPath: "002_stewie.wav", TextFile: "/tmp/s2.txt"},
		},
		Subtitles: &ffmpeg.SubtitleStyle{
			FontName:    "Arial",
			FontSize:    48,
			FontColor:   "white",
			StrokeColor: "black",
			StrokeWidth: 2,
			Position:    ffmpeg.PositionBottom,
			Margin:      50,
		},
		Image:    ffmpeg.ImageStyle{Width: 400, Position: ffmpeg.PositionCenter},
		Encoding: ffmpeg.Encoding{Codec: "libx264", FPS: 30, Quality: ffmpeg.Qualities["high"], Width: 1080, Height: 1920},
		Output:   "out.mp4.part",
	}
}

func argValue(args []string, flag string) string {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}

func TestBuildRenderArgsInputs(t *testing.T) {
	assert := require.New(t)

	args := ffmpeg.BuildRenderArgs(testJob())

	var inputs []string
	for i, a := range args {
		if a == "-i" {
			inputs = append(inputs, args[i+1])
		}
	}
	assert.Equal([]string{"bg.mp4", "stewie.png", "peter.png", "000_stewie.wav", "001_peter.wav", "002_stewie.wav"}, inputs)

	assert.Equal("libx264", argValue(args, "-c:v"))
	assert.Equal("18", argValue(args, "-crf"))
	assert.Equal("slow", argValue(args, "-preset"))
	assert.Equal("30", argValue(args, "-r"))
	assert.Equal("4.500", argValue(args, "-t"))
	assert.Equal("out.mp4.part", args[len(args)-1])
}

func TestBuildRenderArgsGraph(t *testing.T) {
	assert := require.New(t)

	graph := argValue(ffmpeg.BuildRenderArgs(testJob()), "-filter_complex")
	parts := strings.Split(graph, ";")

	assert.Equal("[0:v]scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920,setsar=1,fps=30,trim=duration=4.500,setpts=PTS-STARTPTS[bg]", parts[0])
	assert.Contains(graph, "[bg][img0]overlay=x=(W-w)/2:y=(H-h)/2:enable='gte(t,0.000)*lt(t,1.500)+gte(t,3.500)*lt(t,4.500)'[ov0]")
	assert.Contains(graph, "[ov0][img1]overlay=x=(W-w)/2:y=(H-h)/2:enable='gte(t,1.500)*lt(t,3.500)'[ov1]")
	assert.Contains(graph, "[ov1]drawtext=textfile='/tmp/s0.txt':expansion=none:font='Arial':fontsize=48:fontcolor=white:line_spacing=8:borderw=2:bordercolor=black:x=(w-text_w)/2:y=h-text_h-50:enable='gte(t,0.000)*lt(t,1.500)'[sub0]")
	assert.Contains(graph, "[4:a]aresample=44100,aformat=sample_fmts=fltp:channel_layouts=stereo,apad,atrim=duration=2.000[a1]")
	assert.Equal("[a0][a1][a2]concat=n=3:v=0:a=1[aout]", parts[len(parts)-1])
}

// filterToken reads one token the way ffmpeg does: quotes group literally and
// a backslash outside quotes escapes the next byte.
func filterToken(s, term string) (string, string) {
	var b strings.Builder
	i := 0
	for i < len(s) && !strings.ContainsRune(term, rune(s[i])) {
		c := s[i]
		i++
		switch {
		case c == '\\' && i < len(s):
			b.WriteByte(s[i])
			i++
		case c == '\'':
			for i < len(s) && s[i] != '\'' {
				b.WriteByte(s[i])
				i++
			}
			if i < len(s) {
				i++
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), s[i:]
}

// filterOptions unescapes a filter description from the graph down to its
// key=value options.
func filterOptions(desc string) map[string]string {
	args, _ := filterToken(desc, "[],;")

	opts := map[string]string{}
	for args != "" {
		key, rest, _ := strings.Cut(args, "=")
		var val string
		val, args = filterToken(rest, ":")
		args = strings.TrimPrefix(args, ":")
		opts[key] = val
	}
	return opts
}

func TestBuildRenderArgsQuotesPaths(t *testing.T) {
	assert := require.New(t)

	job := testJob()
	job.Subtitles.FontFile = "/fonts/Bob's Font:Bold.ttf"
	job.Segments = job.Segments[:1]
	job.Segments[0].TextFile = `C:\tmp\it's here.txt`

	graph := argValue(ffmpeg.BuildRenderArgs(job), "-filter_complex")

	var desc string
	for _, part := range strings.Split(graph, ";") {
		if _, after, ok := strings.Cut(part, "drawtext="); ok {
			desc = after
		}
	}
	assert.NotEmpty(desc)
	assert.True(strings.HasSuffix(desc, "[sub0]"))

	opts := filterOptions(desc)
	assert.Equal(`C:\tmp\it's here.txt`, opts["textfile"])
	assert.Equal("/fonts/Bob's Font:Bold.ttf", opts["fontfile"])
	assert.Equal("none", opts["expansion"])
	assert.Equal("gte(t,0.000)*lt(t,1.500)", opts["enable"])
}

func TestBuildRenderArgsWithoutSubtitles(t *testing.T) {
	assert := require.New(t)

	job := testJob()
	job.Subtitles = nil

	args := ffmpeg.BuildRenderArgs(job)
	assert.NotContains(argValue(args, "-filter_complex"), "drawtext")

	maps := []string{}
	for i, a := range args {
		if a == "-map" {
			maps = append(maps, args[i+1])
		}
	}
	assert.Equal([]string{"[ov1]", "[aout]"}, maps)
}

func TestParsePosition(t *testing.T) {
	assert := require.New(t)

	p, ok := ffmpeg.ParsePosition("Bottom")
	assert.True(ok)
	assert.Equal(ffmpeg.PositionBottom, p)

	_, ok = ffmpeg.ParsePosition("left")
	assert.False(ok)
}
