package tools_test

import (
	"testing"

	"skitgen/pkg/tools"

	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	assert := require.New(t)

	assert.Equal("peter_griffin", tools.Slug("Peter Griffin"))
	assert.Equal("stewie", tools.Slug("  Stewie "))
	assert.Equal("a_b", tools.Slug("A \t  B"))
	assert.Equal("", tools.Slug(""))
}

func TestTruncate(t *testing.T) {
	assert := require.New(t)

	assert.Equal("hello", tools.Truncate("hello", 5))
	assert.Equal("hel...", tools.Truncate("hello", 3))
	assert.Equal("привет...", tools.Truncate("приветствую", 6))
}
