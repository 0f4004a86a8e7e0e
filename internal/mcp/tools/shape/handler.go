package shape

import (
	"context"
	"strconv"

	analysis "strata/internal/analysis/shape"
	"strata/internal/core/ports"
	"strata/internal/encode"
	"strata/internal/mcp/contracts"
	"strata/internal/shared/observability"
)

const symbolHeader = "kind|name|container|signature|start_line|end_line|implements|doc"

func HandleExtract(ctx context.Context, svc ports.AnalysisService, in contracts.ShapeExtractInput, defaultBudget int) (contracts.ShapeExtractOutput, error) {
	budget := in.MaxTokens
	if budget <= 0 {
		budget = defaultBudget
	}

	fileShape, err := svc.ExtractShape(ctx, ports.ShapeRequest{
		Path:                in.Path,
		IncludeBody:         in.IncludeBody,
		IncludeDependencies: in.IncludeDependencies,
	})
	if err != nil {
		return contracts.ShapeExtractOutput{}, err
	}

	rows := symbolRows(fileShape.Symbols)
	out := contracts.ShapeExtractOutput{
		Path:        fileShape.Path,
		Language:    fileShape.Language,
		SymbolCount: len(rows),
		Symbols:     encodeBlock(rows, budget),
	}

	// Dependencies share the remaining budget evenly so one large
	// neighbor cannot starve the rest.
	if len(fileShape.Dependencies) > 0 {
		perDep := budget / len(fileShape.Dependencies)
		for _, dep := range fileShape.Dependencies {
			depRows := symbolRows(dep.Symbols)
			out.Dependencies = append(out.Dependencies, contracts.DependencyShape{
				Path:     dep.Path,
				Language: dep.Language,
				Symbols:  encodeBlock(depRows, perDep),
			})
		}
	}

	return out, nil
}

func symbolRows(symbols []analysis.Symbol) []encode.Row {
	var rows []encode.Row
	for _, sym := range symbols {
		rows = append(rows, symbolRow(sym, ""))
		for _, member := range sym.Members {
			rows = append(rows, symbolRow(member, sym.Name))
		}
	}
	return rows
}

func symbolRow(sym analysis.Symbol, container string) encode.Row {
	return encode.Row{
		sym.Kind.Abbrev(),
		sym.Name,
		container,
		sym.Signature,
		strconv.Itoa(sym.Range.StartLine),
		strconv.Itoa(sym.Range.EndLine),
		sym.Implements,
		sym.DocComment,
	}
}

func encodeBlock(rows []encode.Row, budget int) contracts.EncodedBlock {
	payload := encode.Encode(rows, symbolHeader, budget)
	if payload.Truncated {
		observability.EncoderTruncationsTotal.Inc()
	}
	return contracts.EncodedBlock{
		Header:    payload.Header,
		Rows:      payload.Rows,
		RowCount:  payload.RowCount,
		TotalRows: len(rows),
		Truncated: payload.Truncated,
	}
}
