package scope

import (
	"context"

	"strata/internal/core/ports"
	"strata/internal/mcp/contracts"
)

// HandleAtPosition returns the enclosing scope chain, innermost first.
// The chain is small and bounded by nesting depth, so it is returned
// plain rather than budget-encoded.
func HandleAtPosition(ctx context.Context, svc ports.AnalysisService, in contracts.ScopeAtPositionInput) (contracts.ScopeAtPositionOutput, error) {
	chain, err := svc.ScopeAt(ctx, ports.ScopeRequest{Path: in.Path, Line: in.Line, Column: in.Column})
	if err != nil {
		return contracts.ScopeAtPositionOutput{}, err
	}

	out := contracts.ScopeAtPositionOutput{
		Path:   in.Path,
		Line:   in.Line,
		Column: in.Column,
		Chain:  make([]contracts.ScopeFrame, 0, len(chain)),
	}
	for _, sym := range chain {
		out.Chain = append(out.Chain, contracts.ScopeFrame{
			Kind:      string(sym.Kind),
			Name:      sym.Name,
			StartLine: sym.Range.StartLine,
			EndLine:   sym.Range.EndLine,
		})
	}
	return out, nil
}
