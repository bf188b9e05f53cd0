// Package analyzer turns parsed trees into flat symbol and reference
// lists. One implementation per supported language plus a generic
// fallback; per-language differences (node kinds, built-ins, primitive
// types, import-name shapes) are data tables, not type hierarchies.
package analyzer

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/adex/internal/store"
)

// ParsedSymbol is analyzer output, pre-persistence. Container kinds
// (class, struct, interface) carry nested children; everything else is
// flat.
type ParsedSymbol struct {
	Name         string
	Kind         store.SymbolKind
	Location     store.Location
	Signature    *string
	DocComment   *string
	Visibility   store.Visibility
	IsEntryPoint bool
	Children     []ParsedSymbol
}

// ParsedReference is a pre-resolution edge: the target is a textual name
// and the source is an index into the file's flat symbol list, or nil
// for file-level references.
type ParsedReference struct {
	Name                  string
	Kind                  store.ReferenceKind
	Location              store.Location
	ContainingSymbolIndex *int
}

// FlatSymbol is a ParsedSymbol with nesting expressed as a parent index
// into the same flat list (pre-order: parents precede children).
type FlatSymbol struct {
	ParsedSymbol
	ParentIndex *int
}

// Flatten converts a nested symbol list to pre-order flat form. The
// resulting order is the insertion order the indexer relies on for
// parent fixup.
func Flatten(symbols []ParsedSymbol) []FlatSymbol {
	var flat []FlatSymbol
	var walk func(syms []ParsedSymbol, parent *int)
	walk = func(syms []ParsedSymbol, parent *int) {
		for _, sym := range syms {
			entry := FlatSymbol{ParsedSymbol: sym, ParentIndex: parent}
			entry.Children = nil
			idx := len(flat)
			flat = append(flat, entry)
			if len(sym.Children) > 0 {
				walk(sym.Children, &idx)
			}
		}
	}
	walk(symbols, nil)
	return flat
}

// Analyzer extracts symbols and references from one parsed file.
type Analyzer interface {
	// ExtractSymbols returns the file's symbols, nested for container
	// kinds. Unknown node kinds are ignored, never an error.
	ExtractSymbols(source []byte, tree *sitter.Tree) []ParsedSymbol

	// ExtractReferences returns the file's references with containment
	// indices resolved against the flat symbol list.
	ExtractReferences(source []byte, tree *sitter.Tree) []ParsedReference
}

// ForLanguage returns the analyzer for a canonical language name. Every
// language gets at least the generic fallback.
func ForLanguage(lang string) Analyzer {
	spec, ok := specs[lang]
	if !ok {
		spec = genericSpec(lang)
	}
	return &treeAnalyzer{spec: spec}
}

// specs maps canonical language names to their dispatch tables.
var specs = map[string]*langSpec{
	"python":     pythonSpec,
	"javascript": jsSpec,
	"typescript": tsSpec,
	"go":         goSpec,
	"java":       javaSpec,
	"c":          cSpec,
	"cpp":        cppSpec,
	"ruby":       rubySpec,
	"php":        phpSpec,
	"rust":       rustSpec,
}

// langSpec is one language's dispatch table.
type langSpec struct {
	name string

	// symbolKinds maps source node kinds to symbol kinds.
	symbolKinds map[string]store.SymbolKind

	// builtins are call names excluded from reference output.
	builtins map[string]bool

	// primitives are type names excluded from type-reference output.
	primitives map[string]bool

	// collectRefs emits references for one node; the shared walker
	// visits every node in the tree. Nil falls back to bare call
	// collection.
	collectRefs func(a *treeAnalyzer, node *sitter.Node, source []byte, refs *[]ParsedReference)

	// visibility derives a symbol's visibility from its name and node.
	// Nil means unknown.
	visibility func(name string, node *sitter.Node) store.Visibility

	// entryPoint reports whether a symbol is a program entry point.
	entryPoint func(name string, kind store.SymbolKind) bool
}

func genericSpec(lang string) *langSpec {
	return &langSpec{name: lang, symbolKinds: map[string]store.SymbolKind{}}
}

// treeAnalyzer is the single Analyzer implementation, driven entirely by
// its langSpec.
type treeAnalyzer struct {
	spec *langSpec
}

func (a *treeAnalyzer) ExtractSymbols(source []byte, tree *sitter.Tree) []ParsedSymbol {
	var symbols []ParsedSymbol
	a.extractSymbols(tree.RootNode(), source, &symbols)
	return symbols
}

func (a *treeAnalyzer) extractSymbols(node *sitter.Node, source []byte, out *[]ParsedSymbol) {
	if kind, ok := a.spec.symbolKinds[node.Type()]; ok {
		if sym, ok := a.symbolFromNode(node, source, kind); ok {
			*out = append(*out, sym)
			return
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil {
			a.extractSymbols(child, source, out)
		}
	}
}

func (a *treeAnalyzer) symbolFromNode(node *sitter.Node, source []byte, kind store.SymbolKind) (ParsedSymbol, bool) {
	nameNode := nameNodeFor(node)
	if nameNode == nil {
		return ParsedSymbol{}, false
	}
	name := nameNode.Content(source)
	if name == "" {
		return ParsedSymbol{}, false
	}

	sym := ParsedSymbol{
		Name:       name,
		Kind:       kind,
		Location:   nodeLocation(node),
		Signature:  signatureOf(node, source),
		DocComment: docComment(node, source),
		Visibility: store.VisUnknown,
	}
	if a.spec.visibility != nil {
		sym.Visibility = a.spec.visibility(name, node)
	}
	if a.spec.entryPoint != nil && a.spec.entryPoint(name, kind) {
		sym.IsEntryPoint = true
	}

	if kind == store.KindClass || kind == store.KindStruct || kind == store.KindInterface {
		if body := node.ChildByFieldName("body"); body != nil {
			a.extractSymbols(body, source, &sym.Children)
		}
		// Functions declared inside a container are methods.
		for i := range sym.Children {
			if sym.Children[i].Kind == store.KindFunction {
				sym.Children[i].Kind = store.KindMethod
			}
		}
	}
	return sym, true
}

func (a *treeAnalyzer) ExtractReferences(source []byte, tree *sitter.Tree) []ParsedReference {
	var refs []ParsedReference
	a.collectReferences(tree.RootNode(), source, &refs)

	flat := Flatten(a.ExtractSymbols(source, tree))
	assignContainment(flat, refs)
	return refs
}

func (a *treeAnalyzer) collectReferences(node *sitter.Node, source []byte, refs *[]ParsedReference) {
	if a.spec.collectRefs != nil {
		a.spec.collectRefs(a, node, source, refs)
	} else {
		collectGenericCalls(a, node, source, refs)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil {
			a.collectReferences(child, source, refs)
		}
	}
}

// assignContainment points each reference at the innermost flat symbol
// whose byte span contains it. Pre-order flattening makes the last
// containing entry the innermost one.
func assignContainment(flat []FlatSymbol, refs []ParsedReference) {
	for i := range refs {
		at := refs[i].Location.StartByte
		idx := -1
		for j := range flat {
			loc := flat[j].Location
			if loc.StartByte <= at && at < loc.EndByte {
				idx = j
			}
		}
		if idx >= 0 {
			v := idx
			refs[i].ContainingSymbolIndex = &v
		}
	}
}

// collectGenericCalls is the fallback reference collector: bare call
// expressions only.
func collectGenericCalls(a *treeAnalyzer, node *sitter.Node, source []byte, refs *[]ParsedReference) {
	kind := node.Type()
	if kind != "call_expression" && kind != "call" {
		return
	}
	fn := node.ChildByFieldName("function")
	if fn == nil {
		fn = node.ChildByFieldName("name")
	}
	if fn == nil {
		fn = node.Child(0)
	}
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
}
