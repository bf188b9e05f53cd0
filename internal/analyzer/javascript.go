package analyzer

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/adex/internal/store"
)

var jsBuiltins = setOf(
	"console", "log", "error", "warn", "info", "debug", "parseInt",
	"parseFloat", "isNaN", "isFinite", "encodeURI", "decodeURI",
	"encodeURIComponent", "decodeURIComponent", "eval", "setTimeout",
	"setInterval", "clearTimeout", "clearInterval", "fetch", "require",
	"module", "exports", "process", "JSON", "Math", "Date", "RegExp",
	"Error", "Promise", "Array", "Object", "String", "Number", "Boolean",
	"Symbol", "Map", "Set", "WeakMap", "WeakSet", "Proxy", "Reflect",
)

var tsPrimitives = setOf(
	"string", "number", "boolean", "null", "undefined", "void", "any",
	"never", "unknown", "object", "symbol", "bigint",
)

var jsSpec = &langSpec{
	name: "javascript",
	symbolKinds: map[string]store.SymbolKind{
		"function_declaration": store.KindFunction,
		"class_declaration":    store.KindClass,
		"method_definition":    store.KindMethod,
	},
	builtins:    jsBuiltins,
	collectRefs: collectJSRefs,
}

var tsSpec = &langSpec{
	name: "typescript",
	symbolKinds: map[string]store.SymbolKind{
		"function_declaration":  store.KindFunction,
		"class_declaration":     store.KindClass,
		"method_definition":     store.KindMethod,
		"interface_declaration": store.KindInterface,
	},
	builtins:    jsBuiltins,
	primitives:  tsPrimitives,
	collectRefs: collectJSRefs,
}

func collectJSRefs(a *treeAnalyzer, node *sitter.Node, source []byte, refs *[]ParsedReference) {
	switch node.Type() {
	case "call_expression":
		fn := node.ChildByFieldName("function")
		if fn == nil {
			return
		}
		name := jsCallName(fn, source)
		if name == "" || a.spec.builtins[name] {
			return
		}
		*refs = append(*refs, ParsedReference{
			Name:     name,
			Kind:     store.RefCall,
			Location: nodeLocation(fn),
		})

	case "new_expression":
		if ctor := node.ChildByFieldName("constructor"); ctor != nil {
			*refs = append(*refs, ParsedReference{
				Name:     ctor.Content(source),
				Kind:     store.RefCall,
				Location: nodeLocation(ctor),
			})
		}

	case "import_statement":
		collectJSImports(node, source, refs)

	case "member_expression":
		if prop := node.ChildByFieldName("property"); prop != nil {
			name := prop.Content(source)
			if !a.spec.builtins[name] {
				*refs = append(*refs, ParsedReference{
					Name:     name,
					Kind:     store.RefFieldAccess,
					Location: nodeLocation(prop),
				})
			}
		}

	case "class_declaration", "class":
		collectJSHeritage(node, source, refs)

	case "type_identifier":
		// TypeScript only; plain JS grammars never produce this kind.
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

func jsCallName(node *sitter.Node, source []byte) string {
	switch node.Type() {
	case "identifier":
		return node.Content(source)
	case "member_expression":
		if prop := node.ChildByFieldName("property"); prop != nil {
			return prop.Content(source)
		}
	}
	return node.Content(source)
}

// collectJSImports emits "module:name" references for every imported
// binding, default imports included.
func collectJSImports(node *sitter.Node, source []byte, refs *[]ParsedReference) {
	src := node.ChildByFieldName("source")
	if src == nil {
		return
	}
	module := trimQuotes(src.Content(source))

	var emit func(n *sitter.Node)
	emit = func(n *sitter.Node) {
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child == nil {
				continue
			}
			switch child.Type() {
			case "identifier":
				*refs = append(*refs, ParsedReference{
					Name:     module + ":" + child.Content(source),
					Kind:     store.RefImport,
					Location: nodeLocation(child),
				})
			case "import_specifier":
				if name := child.ChildByFieldName("name"); name != nil {
					*refs = append(*refs, ParsedReference{
						Name:     module + ":" + name.Content(source),
						Kind:     store.RefImport,
						Location: nodeLocation(name),
					})
				}
			case "import_clause", "named_imports":
				emit(child)
			}
		}
	}
	emit(node)
}

func collectJSHeritage(node *sitter.Node, source []byte, refs *[]ParsedReference) {
	for i := 0; i < int(node.ChildCount()); i++ {
		clause := node.Child(i)
		if clause == nil || (clause.Type() != "class_heritage" && clause.Type() != "extends_clause") {
			continue
		}
		var scan func(n *sitter.Node)
		scan = func(n *sitter.Node) {
			for j := 0; j < int(n.ChildCount()); j++ {
				base := n.Child(j)
				if base == nil {
					continue
				}
				switch base.Type() {
				case "identifier", "member_expression":
					*refs = append(*refs, ParsedReference{
						Name:     base.Content(source),
						Kind:     store.RefInheritance,
						Location: nodeLocation(base),
					})
				case "extends_clause", "implements_clause":
					scan(base)
				}
			}
		}
		scan(clause)
	}
}
