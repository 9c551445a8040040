//go:build !cgo

package includes

import (
	"context"
	"errors"
)

// ErrNoCGO is returned when the tree-sitter extractor is requested without CGO.
var ErrNoCGO = errors.New("tree-sitter include extraction requires CGO")

// TreeSitter is unavailable in non-CGO builds.
type TreeSitter struct{}

// NewTreeSitter always fails without CGO.
func NewTreeSitter() (*TreeSitter, error) {
	return nil, ErrNoCGO
}

// Extract implements Extractor.
func (*TreeSitter) Extract(context.Context, []byte) ([]Include, error) {
	return nil, ErrNoCGO
}
