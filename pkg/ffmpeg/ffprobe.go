package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path"
	"time"

	"github.com/google/uuid"
)

type FfprobeResult struct {
	Duration time.Duration
	Width    int
	Height   int
}

type ffprobeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func (c *Client) FfprobePath(ctx context.Context, path string) (*FfprobeResult, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", path)

	res, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("exec ffprobe: %w", err)
	}

	return parseFfprobe(res)
}

func parseFfprobe(data []byte) (*FfprobeResult, error) {
	var result *ffprobeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal json: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("empty ffprobe output")
	}

	dur, err := time.ParseDuration(result.Format.Duration + "s")
	if err != nil {
		return nil, fmt.Errorf("parse duration: %w", err)
	}

	out := &FfprobeResult{
		Duration: dur,
	}

	for _, s := range result.Streams {
		if s.CodecType == "video" {
			out.Width = s.Width
			out.Height = s.Height
			break
		}
	}

	return out, nil
}

func (c *Client) Ffprobe(ctx context.Context, data []byte) (*FfprobeResult, error) {
	path := path.Join(c.TmpDir(), prefix+uuid.NewString())

	err := os.WriteFile(path, data, 0644)
	if err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	defer os.Remove(path)

	return c.FfprobePath(ctx, path)
}
