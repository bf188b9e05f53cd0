package adex

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ignorePattern is one parsed ignore-file line.
type ignorePattern struct {
	glob    string
	negate  bool
	dirOnly bool
	// anchored patterns match from the root; unanchored ones match at
	// any depth.
	anchored bool
}

// ignoreMatcher evaluates gitignore-style patterns against root-relative
// paths. Later patterns win, matching commit-ignore semantics.
type ignoreMatcher struct {
	patterns []ignorePattern
}

func parseIgnorePatterns(content string) *ignoreMatcher {
	m := &ignoreMatcher{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		p := ignorePattern{glob: trimmed}
		if strings.HasPrefix(p.glob, "!") {
			p.negate = true
			p.glob = p.glob[1:]
		}
		if strings.HasSuffix(p.glob, "/") {
			p.dirOnly = true
			p.glob = strings.TrimSuffix(p.glob, "/")
		}
		if strings.HasPrefix(p.glob, "/") {
			p.anchored = true
			p.glob = strings.TrimPrefix(p.glob, "/")
		} else if strings.Contains(p.glob, "/") {
			p.anchored = true
		}
		m.patterns = append(m.patterns, p)
	}
	return m
}

// Match reports whether a root-relative path is ignored. isDir widens
// dir-only patterns to the directory itself.
func (m *ignoreMatcher) Match(rel string, isDir bool) bool {
	if len(m.patterns) == 0 {
		return false
	}
	rel = filepath.ToSlash(rel)
	ignored := false
	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			// A dir-only pattern still ignores files under the dir.
			if !matchUnder(p, rel) {
				continue
			}
		} else if !matchPattern(p, rel) && !matchUnder(p, rel) {
			continue
		}
		ignored = !p.negate
	}
	return ignored
}

func matchPattern(p ignorePattern, rel string) bool {
	glob := p.glob
	if !p.anchored {
		glob = "**/" + glob
	}
	ok, err := doublestar.Match(glob, rel)
	return err == nil && ok
}

// matchUnder reports whether rel sits beneath a directory the pattern
// names.
func matchUnder(p ignorePattern, rel string) bool {
	glob := p.glob + "/**"
	if !p.anchored {
		glob = "**/" + glob
	}
	ok, err := doublestar.Match(glob, rel)
	return err == nil && ok
}
