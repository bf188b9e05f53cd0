package adex

import "github.com/jward/adex/internal/store"

// Public type aliases for internal store types surfaced by the Engine
// and QueryBuilder APIs. These are Go type aliases (=) — identical to
// the internal types at compile time; no conversion is needed.

type Store = store.Store
type File = store.File
type Symbol = store.Symbol
type Reference = store.Reference
type Status = store.Status
type SymbolUsage = store.SymbolUsage
type Tree = store.Tree
type FileNode = store.FileNode
type SymbolNode = store.SymbolNode
type Location = store.Location
type SymbolKind = store.SymbolKind
type Visibility = store.Visibility
type ReferenceKind = store.ReferenceKind
