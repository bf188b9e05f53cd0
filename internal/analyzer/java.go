package analyzer

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/adex/internal/store"
)

var javaSpec = &langSpec{
	name: "java",
	symbolKinds: map[string]store.SymbolKind{
		"method_declaration":    store.KindMethod,
		"class_declaration":     store.KindClass,
		"interface_declaration": store.KindInterface,
		"enum_declaration":      store.KindEnum,
	},
	primitives: setOf(
		"int", "long", "short", "byte", "float", "double", "boolean",
		"char", "void", "String", "Object", "Integer", "Long", "Short",
		"Byte", "Float", "Double", "Boolean", "Character", "Void",
	),
	collectRefs: collectJavaRefs,
	entryPoint: func(name string, kind store.SymbolKind) bool {
		return name == "main" && kind == store.KindMethod
	},
}

func collectJavaRefs(a *treeAnalyzer, node *sitter.Node, source []byte, refs *[]ParsedReference) {
	switch node.Type() {
	case "method_invocation":
		if name := node.ChildByFieldName("name"); name != nil {
			*refs = append(*refs, ParsedReference{
				Name:     name.Content(source),
				Kind:     store.RefCall,
				Location: nodeLocation(name),
			})
		}

	case "object_creation_expression":
		if typ := node.ChildByFieldName("type"); typ != nil {
			*refs = append(*refs, ParsedReference{
				Name:     typ.Content(source),
				Kind:     store.RefCall,
				Location: nodeLocation(typ),
			})
		}

	case "import_declaration":
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child != nil && child.Type() == "scoped_identifier" {
				*refs = append(*refs, ParsedReference{
					Name:     child.Content(source),
					Kind:     store.RefImport,
					Location: nodeLocation(child),
				})
			}
		}

	case "field_access":
		if field := node.ChildByFieldName("field"); field != nil {
			*refs = append(*refs, ParsedReference{
				Name:     field.Content(source),
				Kind:     store.RefFieldAccess,
				Location: nodeLocation(field),
			})
		}

	case "class_declaration":
		if superclass := node.ChildByFieldName("superclass"); superclass != nil {
			name := superclass.Content(source)
			// The superclass field includes the "extends" keyword node;
			// prefer the type child when present.
			for i := 0; i < int(superclass.ChildCount()); i++ {
				if c := superclass.Child(i); c != nil && c.Type() == "type_identifier" {
					name = c.Content(source)
					break
				}
			}
			*refs = append(*refs, ParsedReference{
				Name:     name,
				Kind:     store.RefInheritance,
				Location: nodeLocation(superclass),
			})
		}
		if interfaces := node.ChildByFieldName("interfaces"); interfaces != nil {
			var scan func(n *sitter.Node)
			scan = func(n *sitter.Node) {
				for i := 0; i < int(n.ChildCount()); i++ {
					child := n.Child(i)
					if child == nil {
						continue
					}
					if child.Type() == "type_identifier" {
						*refs = append(*refs, ParsedReference{
							Name:     child.Content(source),
							Kind:     store.RefInheritance,
							Location: nodeLocation(child),
						})
					} else {
						scan(child)
					}
				}
			}
			scan(interfaces)
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
