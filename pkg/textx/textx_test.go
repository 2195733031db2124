package textx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "hello", SanitizeText("  hello  "))
	assert.Equal(t, "ab", SanitizeText("a\x00\x01b"))
	assert.Equal(t, "a\tb\nc", SanitizeText("a\tb\nc"))
	assert.Equal(t, "héllo wörld", SanitizeText("héllo wörld"))
	assert.Equal(t, "", SanitizeText("\x00\x1f\x7f"))
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "a b c", CollapseSpaces("a   b\t\nc"))
	assert.Equal(t, "", CollapseSpaces("   "))
	assert.Equal(t, "one", CollapseSpaces("one"))
}
