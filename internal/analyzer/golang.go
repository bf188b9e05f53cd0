package analyzer

import (
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/adex/internal/store"
)

var goSpec = &langSpec{
	name: "go",
	symbolKinds: map[string]store.SymbolKind{
		"function_declaration": store.KindFunction,
		"method_declaration":   store.KindMethod,
		"type_declaration":     store.KindType,
	},
	builtins: setOf(
		"append", "cap", "close", "complex", "copy", "delete", "imag",
		"len", "make", "new", "panic", "print", "println", "real",
		"recover",
	),
	primitives: setOf(
		"bool", "string", "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64", "uintptr", "byte",
		"rune", "float32", "float64", "complex64", "complex128", "error",
		"any",
	),
	collectRefs: collectGoRefs,
	visibility: func(name string, _ *sitter.Node) store.Visibility {
		for _, r := range name {
			if unicode.IsUpper(r) {
				return store.VisPublic
			}
			return store.VisPrivate
		}
		return store.VisUnknown
	},
	entryPoint: func(name string, kind store.SymbolKind) bool {
		return name == "main" && kind == store.KindFunction
	},
}

func collectGoRefs(a *treeAnalyzer, node *sitter.Node, source []byte, refs *[]ParsedReference) {
	switch node.Type() {
	case "call_expression":
		fn := node.ChildByFieldName("function")
		if fn == nil {
			return
		}
		name := goCallName(fn, source)
		if name == "" || a.spec.builtins[name] {
			return
		}
		*refs = append(*refs, ParsedReference{
			Name:     name,
			Kind:     store.RefCall,
			Location: nodeLocation(fn),
		})

	case "import_declaration":
		collectGoImports(node, source, refs)

	case "selector_expression":
		if field := node.ChildByFieldName("field"); field != nil {
			*refs = append(*refs, ParsedReference{
				Name:     field.Content(source),
				Kind:     store.RefFieldAccess,
				Location: nodeLocation(field),
			})
		}

	case "type_identifier":
		name := node.Content(source)
		if !a.spec.primitives[name] {
			*refs = append(*refs, ParsedReference{
				Name:     name,
				Kind:     store.RefTypeReference,
				Location: nodeLocation(node),
			})
		}
	}
}

func goCallName(node *sitter.Node, source []byte) string {
	switch node.Type() {
	case "identifier":
		return node.Content(source)
	case "selector_expression":
		if field := node.ChildByFieldName("field"); field != nil {
			return field.Content(source)
		}
	}
	return node.Content(source)
}

// collectGoImports emits one reference per import spec, named by the
// unquoted import path.
func collectGoImports(node *sitter.Node, source []byte, refs *[]ParsedReference) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child == nil {
				continue
			}
			switch child.Type() {
			case "import_spec":
				if path := child.ChildByFieldName("path"); path != nil {
					*refs = append(*refs, ParsedReference{
						Name:     trimQuotes(path.Content(source)),
						Kind:     store.RefImport,
						Location: nodeLocation(path),
					})
				}
			case "import_spec_list":
				walk(child)
			}
		}
	}
	walk(node)
}
