package script

import (
	"fmt"
	"strings"

	"skitgen/cfg"
	"skitgen/pkg/llm"
)

const baseSystemPrompt = `You write short dialogue scripts for animated videos.
Output only dialogue lines, one per line, in the form "<CHARACTER_NAME>: <what they say>".
Use the character names exactly as given. Do not number lines.
Do not add stage directions, narration, headings, sound effects or markdown.
Every line must start with the speaking character's name followed by a colon.`

// BuildPrompt renders the system and user prompt for one script request.
func BuildPrompt(sc *cfg.ScriptConfig, chars []cfg.Character) llm.Prompt {
	system := baseSystemPrompt
	if extra := strings.TrimSpace(sc.SystemPromptExtra); extra != "" {
		system += "\n" + extra
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Write a dialogue in the style of: %s\n", sc.OverallConversationStyle)
	fmt.Fprintf(&b, "Topic: %s\n", sc.MainTopic)
	if s := strings.TrimSpace(sc.Scenario); s != "" {
		fmt.Fprintf(&b, "Scenario: %s\n", s)
	}
	fmt.Fprintf(&b, "Length: approximately %s\n", sc.DialogueLength)

	b.WriteString("\nCharacters:\n")
	for _, ch := range chars {
		fmt.Fprintf(&b, "- %s", ch.Name)
		if ch.ConversationalRole != "" {
			fmt.Fprintf(&b, " (role: %s)", ch.ConversationalRole)
		}
		if ch.SpeakingStyle != "" {
			fmt.Fprintf(&b, ", speaks: %s", ch.SpeakingStyle)
		}
		b.WriteString("\n")
	}

	names := make([]string, 0, len(chars))
	for _, ch := range chars {
		names = append(names, ch.Name)
	}
	fmt.Fprintf(&b, "\nEvery line must begin with one of: %s, followed by \": \".", strings.Join(names, ", "))

	if extra := strings.TrimSpace(sc.UserPromptExtra); extra != "" {
		b.WriteString("\n" + extra)
	}

	return llm.Prompt{
		System: system,
		User:   b.String(),
	}
}
