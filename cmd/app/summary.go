package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"skitgen/cfg"
	"skitgen/internal/app/failure"
	"skitgen/internal/app/pipeline"
	"skitgen/pkg/ai"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	colorPrimary = lipgloss.Color("#8B5CF6")
	colorSuccess = lipgloss.Color("#10B981")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#94A3B8")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	labelStyle = lipgloss.NewStyle().Foreground(colorMuted).Width(10)
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorError)

	boxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorPrimary).
		Padding(0, 1)

	errBoxStyle = boxStyle.BorderForeground(colorError)
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func renderSummary(c *cfg.Config, res *pipeline.Result) string {
	rows := []string{
		titleStyle.Render(c.ProjectName) + " " + okStyle.Render("done"),
		row("run", res.RunID),
		row("mode", string(res.Mode)),
	}

	if len(res.Entries) > 0 {
		rows = append(rows, row("dialogue", fmt.Sprintf("%d lines", len(res.Entries))))
	}

	if as := res.Audio; as != nil {
		rows = append(rows, row("audio", fmt.Sprintf("%d clips, %s", len(as.Artifacts), as.Total().Round(time.Millisecond))))
		if as.MergedPath != "" {
			rows = append(rows, row("merged", as.MergedPath))
		}
	}

	if v := res.Video; v != nil {
		rows = append(rows,
			row("video", v.Path),
			row("length", fmt.Sprintf("%s, %s", v.Duration.Round(time.Millisecond), humanize.Bytes(uint64(v.FileSize)))),
			row("render", v.RenderTime.Round(time.Millisecond).String()),
		)
	}

	if res.PublishedURL != "" {
		rows = append(rows, row("published", res.PublishedURL))
	}
	if res.SummaryPath != "" {
		rows = append(rows, row("summary", res.SummaryPath))
	}

	rows = append(rows, row("took", res.Duration.Round(time.Millisecond).String()))

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderFailure names the failing stage and item when the error carries them.
func renderFailure(err error) string {
	rows := []string{errStyle.Render("failed")}

	var se *failure.StageError
	if errors.As(err, &se) {
		rows = append(rows, row("stage", string(se.Stage)))
	}
	if item := failure.Item(err); item != "" {
		rows = append(rows, row("item", item))
	}
	rows = append(rows, row("error", err.Error()))

	return errBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderConfig(c *cfg.Config) string {
	names := make([]string, 0, len(c.Characters))
	for _, ch := range c.Characters {
		names = append(names, ch.Name)
	}

	rows := []string{
		titleStyle.Render(c.ProjectName) + " " + okStyle.Render("valid"),
		row("mode", string(pipeline.ModeOf(c))),
		row("cast", strings.Join(names, ", ")),
		row("output", c.ProjectDir()),
	}
	if c.Script != nil {
		rows = append(rows, row("llm", string(c.Script.LLM.Provider)), row("length", c.Script.DialogueLength))
	}
	if c.TTS != nil {
		rows = append(rows, row("tts", string(c.TTS.Provider)))
	}
	if c.Video != nil {
		rows = append(rows, row("video", fmt.Sprintf("%s, %s", c.Video.Provider, c.Video.Quality)))
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderVoices(predefined []ai.PredefinedVoice, references []string, catalog ai.VoiceCatalog) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("predefined voices (tts_voice_predefined)") + "\n")
	for _, v := range predefined {
		fmt.Fprintf(&b, "  %s  %s\n", v.Filename, lipgloss.NewStyle().Foreground(colorMuted).Render(v.DisplayName))
	}

	b.WriteString(titleStyle.Render("reference audio (tts_voice_clone)") + "\n")
	for _, f := range references {
		fmt.Fprintf(&b, "  %s\n", f)
	}

	b.WriteString(titleStyle.Render("voice profiles (tts_voice_profile)") + "\n")
	for _, name := range catalog.Names() {
		p, _ := catalog.Lookup(name)
		fmt.Fprintf(&b, "  %-24s temperature=%.2f exaggeration=%.2f cfg_weight=%.2f speed=%.2f\n",
			name, p.Temperature, p.Exaggeration, p.CFGWeight, p.SpeedFactor)
	}

	return strings.TrimRight(b.String(), "\n")
}
