//go:build cgo

package includes

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

// TreeSitter extracts includes from a C++ syntax tree. Directives nested
// in #if/#ifdef blocks are found the same way as top-level ones.
type TreeSitter struct {
	pool sync.Pool
}

// NewTreeSitter creates a tree-sitter backed extractor.
func NewTreeSitter() (*TreeSitter, error) {
	return &TreeSitter{
		pool: sync.Pool{New: func() any {
			p := sitter.NewParser()
			p.SetLanguage(cpp.GetLanguage())
			return p
		}},
	}, nil
}

// Extract implements Extractor.
func (t *TreeSitter) Extract(ctx context.Context, src []byte) ([]Include, error) {
	parser := t.pool.Get().(*sitter.Parser)
	defer t.pool.Put(parser)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	defer tree.Close()

	var out []Include
	walk(tree.RootNode(), func(n *sitter.Node) {
		if n.Type() != "preproc_include" {
			return
		}
		p := n.ChildByFieldName("path")
		if p == nil {
			return
		}
		raw := p.Content(src)
		inc := Include{Line: int(n.StartPoint().Row) + 1}
		switch p.Type() {
		case "system_lib_string":
			inc.Token = strings.TrimSuffix(strings.TrimPrefix(raw, "<"), ">")
		case "string_literal":
			inc.Token = strings.Trim(raw, `"`)
			inc.Quoted = true
		default:
			return
		}
		if inc.Token != "" {
			out = append(out, inc)
		}
	})
	return out, nil
}

func walk(n *sitter.Node, visit func(*sitter.Node)) {
	visit(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), visit)
	}
}
