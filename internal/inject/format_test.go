package inject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollapseNewlines(t *testing.T) {
	assert.Equal(t, "line oneline two", CollapseNewlines("line one\r\nline two\n"))
	assert.Equal(t, "", CollapseNewlines(""))
}

func TestWrapWords(t *testing.T) {
	in := "could not open process handle access is denied for target cs2.exe"
	want := "could not open process handle access is\ndenied for target cs2.exe"
	assert.Equal(t, want, WrapWords(in, 7))
	assert.Equal(t, want, WrapSeven(in))
}

func TestWrapWords_NormalizesWhitespace(t *testing.T) {
	assert.Equal(t, "a b\nc", WrapWords("  a\n\tb   c \n", 2))
	assert.Equal(t, "a b c", WrapWords("a\nb\nc", 0))
	assert.Equal(t, "", WrapWords(" \n ", 7))
}
