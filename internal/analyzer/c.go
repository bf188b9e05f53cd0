package analyzer

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/adex/internal/store"
)

var cBuiltins = setOf(
	"printf", "scanf", "malloc", "free", "realloc", "calloc", "memcpy",
	"memset", "memmove", "memcmp", "strlen", "strcpy", "strcat", "strcmp",
	"strncpy", "strncmp", "fopen", "fclose", "fread", "fwrite", "fprintf",
	"fscanf", "exit", "abort", "assert", "sizeof", "alignof",
)

var cPrimitives = setOf(
	"int", "long", "short", "char", "float", "double", "void", "unsigned",
	"signed", "size_t", "ptrdiff_t", "intptr_t", "uintptr_t", "int8_t",
	"int16_t", "int32_t", "int64_t", "uint8_t", "uint16_t", "uint32_t",
	"uint64_t", "bool", "_Bool", "auto",
)

var cSpec = &langSpec{
	name: "c",
	symbolKinds: map[string]store.SymbolKind{
		"function_definition": store.KindFunction,
		"struct_specifier":    store.KindStruct,
		"enum_specifier":      store.KindEnum,
	},
	builtins:    cBuiltins,
	primitives:  cPrimitives,
	collectRefs: collectCRefs,
	entryPoint: func(name string, kind store.SymbolKind) bool {
		return name == "main" && kind == store.KindFunction
	},
}

var cppSpec = &langSpec{
	name: "cpp",
	symbolKinds: map[string]store.SymbolKind{
		"function_definition": store.KindFunction,
		"class_specifier":     store.KindClass,
		"struct_specifier":    store.KindStruct,
		"enum_specifier":      store.KindEnum,
	},
	builtins:    cBuiltins,
	primitives:  cPrimitives,
	collectRefs: collectCRefs,
	entryPoint: func(name string, kind store.SymbolKind) bool {
		return name == "main" && kind == store.KindFunction
	},
}

func collectCRefs(a *treeAnalyzer, node *sitter.Node, source []byte, refs *[]ParsedReference) {
	switch node.Type() {
	case "call_expression":
		fn := node.ChildByFieldName("function")
		if fn == nil {
			return
		}
		name := fn.Content(source)
		if name == "" || a.spec.builtins[name] {
			return
		}
		*refs = append(*refs, ParsedReference{
			Name:     name,
			Kind:     store.RefCall,
			Location: nodeLocation(fn),
		})

	case "preproc_include":
		if path := node.ChildByFieldName("path"); path != nil {
			*refs = append(*refs, ParsedReference{
				Name:     trimIncludeDelims(path.Content(source)),
				Kind:     store.RefImport,
				Location: nodeLocation(path),
			})
		}

	case "field_expression":
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

	case "base_class_clause":
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child == nil {
				continue
			}
			if child.Type() == "type_identifier" || child.Type() == "qualified_identifier" {
				*refs = append(*refs, ParsedReference{
					Name:     child.Content(source),
					Kind:     store.RefInheritance,
					Location: nodeLocation(child),
				})
			}
		}
	}
}
