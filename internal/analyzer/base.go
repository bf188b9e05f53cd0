package analyzer

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/adex/internal/store"
)

func nodeLocation(node *sitter.Node) store.Location {
	start := node.StartPoint()
	end := node.EndPoint()
	return store.Location{
		StartLine: int(start.Row),
		StartCol:  int(start.Column),
		EndLine:   int(end.Row),
		EndCol:    int(end.Column),
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
	}
}

// nameNodeFor locates the identifier that names a declaration. Most
// grammars expose a "name" field; C/C++ function definitions bury the
// identifier in a declarator chain.
func nameNodeFor(node *sitter.Node) *sitter.Node {
	if n := node.ChildByFieldName("name"); n != nil {
		return n
	}
	if d := node.ChildByFieldName("declarator"); d != nil {
		for d != nil {
			switch d.Type() {
			case "identifier", "field_identifier", "qualified_identifier",
				"operator_name", "destructor_name":
				return d
			}
			next := d.ChildByFieldName("declarator")
			if next == nil {
				break
			}
			d = next
		}
	}
	return findNamedDescendant(node)
}

// findNamedDescendant digs for the first name-bearing descendant of a
// declaration wrapper (e.g. Go's type_declaration → type_spec → name).
func findNamedDescendant(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if name := child.ChildByFieldName("name"); name != nil {
			return name
		}
	}
	return nil
}

// signatureOf returns the declaration head: node text up to the body
// child, or the first line when there is no body field.
func signatureOf(node *sitter.Node, source []byte) *string {
	text := node.Content(source)
	if body := node.ChildByFieldName("body"); body != nil {
		head := int(body.StartByte()) - int(node.StartByte())
		if head > 0 && head <= len(text) {
			text = text[:head]
		}
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return &text
}

// docComment collects the contiguous run of comments immediately above a
// node, strips comment markers and common indentation, and joins them.
func docComment(node *sitter.Node, source []byte) *string {
	var lines []string
	expectedEnd := int(node.StartPoint().Row)

	sib := node.PrevNamedSibling()
	for sib != nil && sib.Type() == "comment" {
		endRow := int(sib.EndPoint().Row)
		if endRow < expectedEnd-1 {
			break
		}
		text := sib.Content(source)
		var chunk []string
		for _, line := range strings.Split(text, "\n") {
			chunk = append(chunk, stripCommentMarkers(line))
		}
		lines = append(chunk, lines...)
		expectedEnd = int(sib.StartPoint().Row)
		sib = sib.PrevNamedSibling()
	}

	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil
	}
	doc := strings.Join(lines, "\n")
	return &doc
}

func stripCommentMarkers(line string) string {
	s := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(s, "///"):
		s = strings.TrimPrefix(s, "///")
	case strings.HasPrefix(s, "//"):
		s = strings.TrimPrefix(s, "//")
	case strings.HasPrefix(s, "/**"):
		s = strings.TrimPrefix(s, "/**")
	case strings.HasPrefix(s, "/*"):
		s = strings.TrimPrefix(s, "/*")
	case strings.HasPrefix(s, "*/"):
		s = strings.TrimPrefix(s, "*/")
	case strings.HasPrefix(s, "*"):
		s = strings.TrimPrefix(s, "*")
	case strings.HasPrefix(s, "#"):
		s = strings.TrimPrefix(s, "#")
	}
	s = strings.TrimSuffix(s, "*/")
	return strings.TrimPrefix(s, " ")
}

// trimQuotes removes matched string delimiters from import paths.
func trimQuotes(s string) string {
	return strings.Trim(s, "\"'`")
}

// trimIncludeDelims strips quote and angle-bracket delimiters from a
// C/C++ include path.
func trimIncludeDelims(s string) string {
	return strings.Trim(s, "\"<>")
}

func setOf(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}
