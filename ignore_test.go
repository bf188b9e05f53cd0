package adex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIgnoreMatcher(t *testing.T) {
	t.Parallel()
	m := parseIgnorePatterns(`
# build artifacts
dist/
*.log
/secrets.txt
!keep.log
docs/**/*.pdf
`)

	assert.True(t, m.Match("dist", true))
	assert.True(t, m.Match("dist/bundle.js", false))
	assert.True(t, m.Match("sub/dist/bundle.js", false))
	assert.True(t, m.Match("debug.log", false))
	assert.True(t, m.Match("nested/deep/trace.log", false))
	assert.True(t, m.Match("secrets.txt", false))
	assert.True(t, m.Match("docs/a/b/manual.pdf", false))

	// Negation: later patterns win.
	assert.False(t, m.Match("keep.log", false))
	// Anchored pattern only matches at the root.
	assert.False(t, m.Match("sub/secrets.txt", false))
	assert.False(t, m.Match("src/main.go", false))
}

func TestIgnoreMatcher_Empty(t *testing.T) {
	t.Parallel()
	m := parseIgnorePatterns("")
	assert.False(t, m.Match("anything.go", false))
}
