package dialogue

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

type Line struct {
	Number  int
	Speaker string
	Text    string
}

// Rejected is a non blank line whose prefix did not name a known speaker.
type Rejected struct {
	Number int
	Text   string
}

// Roster resolves speaker prefixes to canonical names, ignoring case.
type Roster struct {
	names map[string]string
}

func NewRoster(names ...string) *Roster {
	r := &Roster{names: make(map[string]string, len(names))}
	for _, name := range names {
		r.names[fold(name)] = name
	}
	return r
}

func (r *Roster) Lookup(name string) (string, bool) {
	canonical, ok := r.names[fold(name)]
	return canonical, ok
}

func (r *Roster) Len() int {
	return len(r.names)
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Split walks raw model output line by line. Blank lines, '#' comments and
// markdown fences are skipped. Everything else either becomes a Line or is
// reported as Rejected, in input order.
func Split(raw string, lookup func(string) (string, bool)) ([]Line, []Rejected) {
	var (
		lines    []Line
		rejected []Rejected
	)

	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	for i, text := range strings.Split(raw, "\n") {
		number := i + 1

		text = strings.TrimSpace(text)
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "```") {
			continue
		}

		speaker, content, ok := splitSpeaker(text)
		if !ok {
			rejected = append(rejected, Rejected{Number: number, Text: text})
			continue
		}

		name, known := lookup(speaker)
		if !known || content == "" {
			rejected = append(rejected, Rejected{Number: number, Text: text})
			continue
		}

		lines = append(lines, Line{
			Number:  number,
			Speaker: name,
			Text:    content,
		})
	}

	return lines, rejected
}

func splitSpeaker(text string) (string, string, bool) {
	text = stripNumbering(text)

	idx := strings.Index(text, ":")
	if idx <= 0 {
		return "", "", false
	}

	speaker := strings.Trim(text[:idx], "*_ \t")
	content := strings.TrimSpace(strings.TrimLeft(text[idx+1:], "*_"))
	if speaker == "" {
		return "", "", false
	}

	return speaker, content, true
}

// stripNumbering drops list markers such as "1.", "2)" or "-".
func stripNumbering(text string) string {
	if strings.HasPrefix(text, "- ") {
		return strings.TrimSpace(text[2:])
	}

	i := 0
	for i < len(text) && unicode.IsDigit(rune(text[i])) {
		i++
	}
	if i > 0 && i < len(text) && (text[i] == '.' || text[i] == ')') {
		return strings.TrimSpace(text[i+1:])
	}

	return text
}
