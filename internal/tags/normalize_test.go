package tags

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"JavaScript", "javascript"},
		{"JAVASCRIPT", "javascript"},
		{"javascript", "javascript"},
		{"  SpAcEs  ", "  spaces  "},
		{"C++/CLI", "c++/cli"},
		{"", ""},
		{"ÜBER", "über"},
		{"Go Lang!", "go lang!"},
		{"Straße", "straße"},
		{"tab\tInside", "tab\tinside"},
		{"ΟΔΟΣ", "οδοσ"},
		{"İstanbul", "istanbul"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Normalize(c.in), "input %q", c.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"JavaScript", "  SpAcEs  ", "İstanbul", "MiXeD-Case_42", ""}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestSame(t *testing.T) {
	assert.True(t, Same("JavaScript", "javascript"))
	assert.True(t, Same("DEV", "dev"))
	assert.False(t, Same("  spaces  ", "spaces"))
	assert.False(t, Same("go", "golang"))
}

func TestNormalizeKeepsLength(t *testing.T) {
	display := strings.Repeat("İ", MaxLength)
	got := Normalize(display)
	assert.Equal(t, MaxLength, utf8.RuneCountInString(got))
	assert.Equal(t, strings.Repeat("i", MaxLength), got)
}

func TestSameIgnoresPosition(t *testing.T) {
	assert.True(t, Same("ΟΔΟΣ", "οδοσ"))
	assert.True(t, Same("ΣΟΦΟΣ", "σοφοσ"))
}
