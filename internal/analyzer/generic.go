package analyzer

import (
	"github.com/jward/adex/internal/store"
)

// Ruby, PHP and Rust declare their symbol node kinds but fall back to
// the generic reference collector (bare calls only).

var rubySpec = &langSpec{
	name: "ruby",
	symbolKinds: map[string]store.SymbolKind{
		"method": store.KindMethod,
		"class":  store.KindClass,
		"module": store.KindModule,
	},
	builtins: setOf(
		"puts", "print", "p", "require", "require_relative", "attr_accessor",
		"attr_reader", "attr_writer", "raise", "lambda", "proc",
	),
}

var phpSpec = &langSpec{
	name: "php",
	symbolKinds: map[string]store.SymbolKind{
		"function_definition":   store.KindFunction,
		"method_declaration":    store.KindMethod,
		"class_declaration":     store.KindClass,
		"interface_declaration": store.KindInterface,
		"trait_declaration":     store.KindTrait,
	},
	builtins: setOf(
		"echo", "print", "isset", "unset", "empty", "array", "count",
		"strlen", "var_dump", "die", "exit", "require", "include",
		"require_once", "include_once",
	),
}

var rustSpec = &langSpec{
	name: "rust",
	symbolKinds: map[string]store.SymbolKind{
		"function_item": store.KindFunction,
		"struct_item":   store.KindStruct,
		"enum_item":     store.KindEnum,
		"trait_item":    store.KindTrait,
		"mod_item":      store.KindModule,
	},
	builtins: setOf(
		"println", "print", "eprintln", "eprint", "format", "vec",
		"panic", "assert", "assert_eq", "assert_ne", "todo",
		"unimplemented", "unreachable",
	),
	entryPoint: func(name string, kind store.SymbolKind) bool {
		return name == "main" && kind == store.KindFunction
	},
}
