package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"skitgen/pkg/tools"
)

// writeSummary records what a finished run produced next to its artifacts.
func (r *run) writeSummary() (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Project: %s\n", r.cfg.ProjectName)
	fmt.Fprintf(&b, "Run: %s\n", r.id)
	fmt.Fprintf(&b, "Mode: %s\n", r.res.Mode)
	fmt.Fprintf(&b, "Created: %s\n", time.Now().Format(time.RFC3339))

	if r.cfg.Script != nil {
		fmt.Fprintf(&b, "Topic: %s\n", r.cfg.Script.MainTopic)
		fmt.Fprintf(&b, "Style: %s\n", r.cfg.Script.OverallConversationStyle)
	}

	if as := r.res.Audio; as != nil {
		fmt.Fprintf(&b, "\nDialogue (%d lines, %s):\n", len(as.Artifacts), as.Total().Round(time.Millisecond))
		for _, a := range as.Artifacts {
			fmt.Fprintf(&b, "  %03d [%s] %s: %s\n", a.Index, a.Duration.Round(time.Millisecond), a.Character.Name, tools.Truncate(a.Content, 80))
		}
		if as.MergedPath != "" {
			fmt.Fprintf(&b, "Merged audio: %s\n", as.MergedPath)
		}
	}

	if v := r.res.Video; v != nil {
		fmt.Fprintf(&b, "\nVideo: %s\n", v.Path)
		fmt.Fprintf(&b, "Duration: %s\n", v.Duration.Round(time.Millisecond))
		fmt.Fprintf(&b, "Size: %.2f MB\n", float64(v.FileSize)/(1<<20))
		fmt.Fprintf(&b, "Render time: %s\n", v.RenderTime.Round(time.Millisecond))
	}

	if r.res.PublishedURL != "" {
		fmt.Fprintf(&b, "Published: %s\n", r.res.PublishedURL)
	}

	path := filepath.Join(r.cfg.ProjectDir(), r.cfg.ProjectName+"_summary.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}

	return path, nil
}
