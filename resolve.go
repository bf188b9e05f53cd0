package adex

import (
	"context"
	"strings"

	"github.com/jward/adex/internal/store"
)

// refTargetKinds constrains which symbol kinds a reference kind may
// resolve to. An empty set means any kind is acceptable.
var refTargetKinds = map[store.ReferenceKind][]store.SymbolKind{
	store.RefCall: {store.KindFunction, store.KindMethod},
	store.RefInheritance: {
		store.KindClass, store.KindInterface, store.KindTrait,
	},
	store.RefImport: nil,
	store.RefTypeReference: {
		store.KindClass, store.KindStruct, store.KindInterface,
		store.KindEnum, store.KindType, store.KindTrait, store.KindModule,
	},
	store.RefFieldAccess: {
		store.KindProperty, store.KindVariable, store.KindConst,
		store.KindMethod,
	},
	store.RefImplementation: {store.KindInterface, store.KindTrait},
}

// resolveReferences drains the pending queue: each textual reference is
// matched against the now-complete symbol table and promoted to a
// persistent edge, or dropped. Runs single-threaded after all writes.
//
// Resolution order: exact name in the same file; then project-wide
// preferring kind-consistent targets; remaining ties break same-file
// first, then lowest symbol id. References with no containing symbol
// have no from-endpoint and are dropped.
func (e *Engine) resolveReferences(ctx context.Context) error {
	if len(e.pending) == 0 {
		return nil
	}
	defer func() { e.pending = nil }()

	// Bulk-load the symbol table once; per-reference queries would be
	// quadratic on large runs.
	all, err := e.store.GetAllSymbols()
	if err != nil {
		return err
	}
	byName := make(map[string][]*store.Symbol)
	for i := range all {
		byName[all[i].Name] = append(byName[all[i].Name], &all[i])
	}

	byFile := make(map[int64][]store.Reference)
	for _, p := range e.pending {
		if err := ctx.Err(); err != nil {
			return &Error{Kind: KindCancelled, Err: err}
		}
		if p.fromSymbolID == 0 {
			continue // file-level reference, no from endpoint
		}
		candidates := byName[p.ref.Name]
		if len(candidates) == 0 {
			// Qualified import names (a.foo, pkg:foo, path/to/pkg)
			// fall back to their last segment.
			if tail := lastSegment(p.ref.Name); tail != p.ref.Name {
				candidates = byName[tail]
			}
		}
		target := pickTarget(candidates, p)
		if target == nil {
			continue // dropped, never a dangling row
		}
		byFile[p.fileID] = append(byFile[p.fileID], store.Reference{
			FromSymbolID: p.fromSymbolID,
			ToSymbolID:   target.ID,
			Kind:         p.ref.Kind,
			Location:     p.ref.Location,
		})
	}

	for _, refs := range byFile {
		if err := ctx.Err(); err != nil {
			return &Error{Kind: KindCancelled, Err: err}
		}
		if err := e.store.InsertReferencesBatch(refs); err != nil {
			return &Error{Kind: KindStorage, Msg: err.Error(), Err: err}
		}
	}
	return nil
}

// lastSegment strips module qualifiers from an import name: the text
// after the final ':', '.', or '/' separator.
func lastSegment(name string) string {
	for _, sep := range []byte{':', '.', '/'} {
		if i := strings.LastIndexByte(name, sep); i >= 0 {
			name = name[i+1:]
		}
	}
	return name
}

// pickTarget applies the resolution order to a candidate list.
func pickTarget(candidates []*store.Symbol, p pendingRef) *store.Symbol {
	if len(candidates) == 0 {
		return nil
	}

	wanted := refTargetKinds[p.ref.Kind]
	consistent := func(sym *store.Symbol) bool {
		if len(wanted) == 0 {
			return true
		}
		for _, k := range wanted {
			if sym.Kind == k {
				return true
			}
		}
		return false
	}

	pick := func(pool []*store.Symbol) *store.Symbol {
		var best *store.Symbol
		for _, sym := range pool {
			if best == nil {
				best = sym
				continue
			}
			symSame := sym.FileID == p.fileID
			bestSame := best.FileID == p.fileID
			if symSame != bestSame {
				if symSame {
					best = sym
				}
				continue
			}
			if sym.ID < best.ID {
				best = sym
			}
		}
		return best
	}

	// Same-file exact matches come first.
	var sameFile []*store.Symbol
	for _, sym := range candidates {
		if sym.FileID == p.fileID {
			sameFile = append(sameFile, sym)
		}
	}
	if len(sameFile) > 0 {
		if filtered := filterSymbols(sameFile, consistent); len(filtered) > 0 {
			return pick(filtered)
		}
		return pick(sameFile)
	}

	// Project-wide, preferring kind-consistent targets.
	if filtered := filterSymbols(candidates, consistent); len(filtered) > 0 {
		return pick(filtered)
	}
	return pick(candidates)
}

func filterSymbols(symbols []*store.Symbol, keep func(*store.Symbol) bool) []*store.Symbol {
	var out []*store.Symbol
	for _, sym := range symbols {
		if keep(sym) {
			out = append(out, sym)
		}
	}
	return out
}
