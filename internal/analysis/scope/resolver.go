package scope

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"strata/internal/analysis/shape"
	"strata/internal/parser"
)

// Resolver answers "what construct encloses this position". The chain
// is innermost first and always ends with a module symbol for the file
// itself, so callers never see an empty result.
type Resolver struct {
	parser *parser.Parser
}

func NewResolver(p *parser.Parser) *Resolver {
	return &Resolver{parser: p}
}

// At returns the enclosing symbols for a 1-indexed (line, column)
// position. Positions outside the tree still yield the file root.
func (r *Resolver) At(path, language string, source []byte, line, column int) ([]shape.Symbol, error) {
	tree, err := r.parser.Parse(language, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	point := sitter.Point{Row: uint(line - 1), Column: uint(column - 1)}
	if line < 1 || column < 1 {
		point = sitter.Point{}
	}

	var chain []shape.Symbol
	node := root.NamedDescendantForPointRange(point, point)
	for ; node != nil; node = node.Parent() {
		if sym, ok := shape.SymbolForNode(language, source, node); ok {
			chain = append(chain, sym)
		}
	}

	chain = append(chain, shape.Symbol{
		Kind: shape.KindModule,
		Name: path,
		Range: shape.Range{
			StartLine: int(root.StartPosition().Row) + 1,
			EndLine:   int(root.EndPosition().Row) + 1,
		},
	})
	return chain, nil
}
