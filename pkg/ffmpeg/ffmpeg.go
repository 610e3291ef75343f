package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const sampleRate = "44100"

// ConcatArgs joins audio clips in order, inserting gap seconds of silence between them.
func ConcatArgs(inputs []string, gap time.Duration, outputPath string) []string {
	args := []string{"-nostats", "-loglevel", "error"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}

	var (
		graph  strings.Builder
		labels []string
	)
	for i := range inputs {
		fmt.Fprintf(&graph, "[%d:a]aresample=%s,aformat=sample_fmts=fltp:channel_layouts=stereo[a%d];", i, sampleRate, i)
		labels = append(labels, fmt.Sprintf("[a%d]", i))

		if gap > 0 && i < len(inputs)-1 {
			fmt.Fprintf(&graph, "anullsrc=r=%s:cl=stereo,atrim=duration=%s[g%d];", sampleRate, seconds(gap), i)
			labels = append(labels, fmt.Sprintf("[g%d]", i))
		}
	}
	fmt.Fprintf(&graph, "%sconcat=n=%d:v=0:a=1[out]", strings.Join(labels, ""), len(labels))

	args = append(args,
		"-filter_complex", graph.String(),
		"-map", "[out]",
		"-y",
		outputPath,
	)
	return args
}

func (c *Client) ConcatAudio(ctx context.Context, inputs []string, gap time.Duration, outputPath string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no audio inputs")
	}

	if err := c.run(ctx, "ffmpeg", ConcatArgs(inputs, gap, outputPath)...); err != nil {
		return fmt.Errorf("failed to concat audio: %w", err)
	}

	return nil
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
