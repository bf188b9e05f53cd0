package treesitter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrNoTree means tree-sitter could not produce a tree for the input.
var ErrNoTree = errors.New("parser produced no tree")

// Pool hands out reusable parsers keyed by language. A parser is checked
// out for the duration of one Parse call; concurrent parses of the same
// language each get their own instance.
type Pool struct {
	mu   sync.Mutex
	idle map[string][]*sitter.Parser
}

// NewPool creates an empty parser pool.
func NewPool() *Pool {
	return &Pool{idle: make(map[string][]*sitter.Parser)}
}

func (p *Pool) get(lang string) (*sitter.Parser, error) {
	grammar, ok := Grammar(lang)
	if !ok {
		return nil, fmt.Errorf("no grammar for language %q", lang)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if parsers := p.idle[lang]; len(parsers) > 0 {
		parser := parsers[len(parsers)-1]
		p.idle[lang] = parsers[:len(parsers)-1]
		return parser, nil
	}
	parser := sitter.NewParser()
	parser.SetLanguage(grammar)
	return parser, nil
}

func (p *Pool) put(lang string, parser *sitter.Parser) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idle[lang] = append(p.idle[lang], parser)
}

// Parse parses source as lang and returns the tree. A nil tree from the
// runtime is reported as ErrNoTree.
func (p *Pool) Parse(ctx context.Context, lang string, source []byte) (*sitter.Tree, error) {
	parser, err := p.get(lang)
	if err != nil {
		return nil, err
	}
	defer p.put(lang, parser)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", lang, err)
	}
	if tree == nil {
		return nil, ErrNoTree
	}
	return tree, nil
}
