package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	roster := NewRoster("Stewie", "Peter Griffin")

	tests := []struct {
		name     string
		raw      string
		lines    []Line
		rejected []Rejected
	}{
		{
			name: "plain",
			raw:  "Stewie: Hello.\nPeter Griffin: Hey Stewie.",
			lines: []Line{
				{Number: 1, Speaker: "Stewie", Text: "Hello."},
				{Number: 2, Speaker: "Peter Griffin", Text: "Hey Stewie."},
			},
		},
		{
			name: "case insensitive and decorated",
			raw:  "```\n# scene one\n\n1. **STEWIE:** Blast!\n2) peter griffin: Hehehe\n- Stewie: Fine.\n```",
			lines: []Line{
				{Number: 4, Speaker: "Stewie", Text: "Blast!"},
				{Number: 5, Speaker: "Peter Griffin", Text: "Hehehe"},
				{Number: 6, Speaker: "Stewie", Text: "Fine."},
			},
		},
		{
			name: "unknown speaker and narration",
			raw:  "Stewie: one\nRandomGuy: hi\n(they leave)\nPeter Griffin: two",
			lines: []Line{
				{Number: 1, Speaker: "Stewie", Text: "one"},
				{Number: 4, Speaker: "Peter Griffin", Text: "two"},
			},
			rejected: []Rejected{
				{Number: 2, Text: "RandomGuy: hi"},
				{Number: 3, Text: "(they leave)"},
			},
		},
		{
			name: "colon inside content",
			raw:  "Stewie: The time is 10:30: late.",
			lines: []Line{
				{Number: 1, Speaker: "Stewie", Text: "The time is 10:30: late."},
			},
		},
		{
			name:     "empty content",
			raw:      "Stewie:   ",
			rejected: []Rejected{{Number: 1, Text: "Stewie:"}},
		},
		{
			name: "windows line endings",
			raw:  "Stewie: a\r\nPeter Griffin: b\r\n",
			lines: []Line{
				{Number: 1, Speaker: "Stewie", Text: "a"},
				{Number: 2, Speaker: "Peter Griffin", Text: "b"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, rejected := Split(tt.raw, roster.Lookup)
			assert.Equal(t, tt.lines, lines)
			assert.Equal(t, tt.rejected, rejected)
		})
	}
}

func TestRoster(t *testing.T) {
	assert := require.New(t)

	roster := NewRoster("Stewie", "Élodie")
	assert.Equal(2, roster.Len())

	name, ok := roster.Lookup("  STEWIE ")
	assert.True(ok)
	assert.Equal("Stewie", name)

	name, ok = roster.Lookup("élodie")
	assert.True(ok)
	assert.Equal("Élodie", name)

	_, ok = roster.Lookup("Brian")
	assert.False(ok)
}

func TestStripNumbering(t *testing.T) {
	assert.Equal(t, "Stewie: hi", stripNumbering("12. Stewie: hi"))
	assert.Equal(t, "Stewie: hi", stripNumbering("3) Stewie: hi"))
	assert.Equal(t, "Stewie: hi", stripNumbering("- Stewie: hi"))
	assert.Equal(t, "2024 Stewie: hi", stripNumbering("2024 Stewie: hi"))
}
