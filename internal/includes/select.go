package includes

import "fmt"

// Extractor names accepted by New.
const (
	ExtractorLexical    = "lexical"
	ExtractorTreeSitter = "treesitter"
)

// New returns the extractor with the given name. An empty name is lexical.
func New(name string) (Extractor, error) {
	switch name {
	case "", ExtractorLexical:
		return Lexical{}, nil
	case ExtractorTreeSitter:
		ts, err := NewTreeSitter()
		if err != nil {
			return nil, err
		}
		return ts, nil
	default:
		return nil, fmt.Errorf("unknown include extractor %q", name)
	}
}
