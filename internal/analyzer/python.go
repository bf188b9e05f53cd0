package analyzer

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/adex/internal/store"
)

var pythonSpec = &langSpec{
	name: "python",
	symbolKinds: map[string]store.SymbolKind{
		"function_definition": store.KindFunction,
		"class_definition":    store.KindClass,
	},
	builtins: setOf(
		"print", "len", "range", "str", "int", "float", "bool", "list",
		"dict", "set", "tuple", "type", "isinstance", "issubclass",
		"hasattr", "getattr", "setattr", "delattr", "id", "hash", "repr",
		"abs", "round", "min", "max", "sum", "sorted", "reversed",
		"enumerate", "zip", "map", "filter", "any", "all", "open",
		"input", "super", "object", "None", "True", "False",
	),
	collectRefs: collectPythonRefs,
	visibility: func(name string, _ *sitter.Node) store.Visibility {
		if strings.HasPrefix(name, "_") {
			return store.VisPrivate
		}
		return store.VisPublic
	},
}

func collectPythonRefs(a *treeAnalyzer, node *sitter.Node, source []byte, refs *[]ParsedReference) {
	switch node.Type() {
	case "call":
		fn := node.ChildByFieldName("function")
		if fn == nil {
			return
		}
		name := pythonCallName(fn, source)
		if name == "" || a.spec.builtins[name] {
			return
		}
		*refs = append(*refs, ParsedReference{
			Name:     name,
			Kind:     store.RefCall,
			Location: nodeLocation(fn),
		})

	case "import_statement", "import_from_statement":
		collectPythonImports(node, source, refs)

	case "attribute":
		if attr := node.ChildByFieldName("attribute"); attr != nil {
			*refs = append(*refs, ParsedReference{
				Name:     attr.Content(source),
				Kind:     store.RefFieldAccess,
				Location: nodeLocation(attr),
			})
		}

	case "class_definition":
		supers := node.ChildByFieldName("superclasses")
		if supers == nil {
			return
		}
		for i := 0; i < int(supers.ChildCount()); i++ {
			arg := supers.Child(i)
			if arg == nil {
				continue
			}
			if arg.Type() == "identifier" || arg.Type() == "attribute" {
				*refs = append(*refs, ParsedReference{
					Name:     arg.Content(source),
					Kind:     store.RefInheritance,
					Location: nodeLocation(arg),
				})
			}
		}
	}
}

// pythonCallName reduces a call target to its final identifier:
// obj.method() references "method", plain foo() references "foo".
func pythonCallName(node *sitter.Node, source []byte) string {
	switch node.Type() {
	case "identifier":
		return node.Content(source)
	case "attribute":
		if attr := node.ChildByFieldName("attribute"); attr != nil {
			return attr.Content(source)
		}
	}
	return node.Content(source)
}

// collectPythonImports emits import references. `from M import X` yields
// "M.X"; plain `import M` yields "M"; aliases reference the original
// name, not the alias.
func collectPythonImports(node *sitter.Node, source []byte, refs *[]ParsedReference) {
	switch node.Type() {
	case "import_statement":
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child == nil {
				continue
			}
			var name string
			switch child.Type() {
			case "dotted_name":
				name = child.Content(source)
			case "aliased_import":
				if orig := child.ChildByFieldName("name"); orig != nil {
					name = orig.Content(source)
				}
			default:
				continue
			}
			if name == "" {
				continue
			}
			*refs = append(*refs, ParsedReference{
				Name:     name,
				Kind:     store.RefImport,
				Location: nodeLocation(child),
			})
		}

	case "import_from_statement":
		var module string
		if mod := node.ChildByFieldName("module_name"); mod != nil {
			module = mod.Content(source)
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child == nil {
				continue
			}
			// The module_name child also matches dotted_name; skip it.
			if mod := node.ChildByFieldName("module_name"); mod != nil && child.StartByte() == mod.StartByte() {
				continue
			}
			var name string
			switch child.Type() {
			case "dotted_name", "identifier":
				name = child.Content(source)
			case "aliased_import":
				if orig := child.ChildByFieldName("name"); orig != nil {
					name = orig.Content(source)
				}
			default:
				continue
			}
			if name == "" {
				continue
			}
			if module != "" {
				name = module + "." + name
			}
			*refs = append(*refs, ParsedReference{
				Name:     name,
				Kind:     store.RefImport,
				Location: nodeLocation(child),
			})
		}
	}
}
