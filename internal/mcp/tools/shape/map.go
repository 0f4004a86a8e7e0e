package shape

import (
	"context"
	"sort"
	"strconv"
	"strings"

	analysis "strata/internal/analysis/shape"
	"strata/internal/core/ports"
	"strata/internal/encode"
	"strata/internal/mcp/contracts"
	"strata/internal/shared/observability"
)

const (
	outlineMinimalHeader    = "kind|name|container|start_line"
	outlineSignaturesHeader = "kind|name|container|signature|start_line"
	outlineFullHeader       = "kind|name|container|signature|start_line|end_line|doc|body"
)

// HandleMap outlines every supported file under a root. Files are
// admitted whole, densest first, until the token budget runs out; the
// first file is always admitted so a tight budget still answers.
func HandleMap(ctx context.Context, svc ports.AnalysisService, in contracts.ShapeMapInput, defaultBudget int) (contracts.ShapeMapOutput, error) {
	budget := in.MaxTokens
	if budget <= 0 {
		budget = defaultBudget
	}
	detail := in.Detail
	if detail == "" {
		detail = contracts.MapDetailSignatures
	}

	shapes, err := svc.MapShapes(ctx, ports.MapRequest{
		Root:        in.Path,
		Pattern:     in.Pattern,
		IncludeBody: detail == contracts.MapDetailFull,
	})
	if err != nil {
		return contracts.ShapeMapOutput{}, err
	}

	type outlined struct {
		shape *analysis.FileShape
		rows  []string
		cost  int
	}
	candidates := make([]outlined, 0, len(shapes))
	for _, fileShape := range shapes {
		var rows []string
		cost := 0
		for _, row := range outlineRows(fileShape.Symbols, detail) {
			formatted := encode.FormatRow(row)
			rows = append(rows, formatted)
			cost += encode.EstimateTokens(len(formatted))
		}
		candidates = append(candidates, outlined{fileShape, rows, cost})
	}

	// Densest files first; ties keep path order from the scan.
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].rows) > len(candidates[j].rows)
	})

	// A tenth of the budget stays in reserve for the envelope around
	// the rows.
	tracker := encode.NewBudgetTracker(budget - budget/10)
	out := contracts.ShapeMapOutput{Path: in.Path, Detail: detail}
	for i, c := range candidates {
		if !tracker.Add(c.cost) && i > 0 {
			out.Truncated = true
			continue
		}
		out.Files = append(out.Files, contracts.FileOutline{
			Path:        c.shape.Path,
			Language:    c.shape.Language,
			SymbolCount: len(c.rows),
			Symbols: contracts.EncodedBlock{
				Header:    outlineHeader(detail),
				Rows:      strings.Join(c.rows, "\n"),
				RowCount:  len(c.rows),
				TotalRows: len(c.rows),
			},
		})
	}
	if out.Truncated {
		observability.EncoderTruncationsTotal.Inc()
	}
	out.FileCount = len(out.Files)
	return out, nil
}

func outlineHeader(detail string) string {
	switch detail {
	case contracts.MapDetailMinimal:
		return outlineMinimalHeader
	case contracts.MapDetailFull:
		return outlineFullHeader
	default:
		return outlineSignaturesHeader
	}
}

func outlineRows(symbols []analysis.Symbol, detail string) []encode.Row {
	var rows []encode.Row
	for _, sym := range symbols {
		rows = append(rows, outlineRow(sym, "", detail))
		for _, member := range sym.Members {
			rows = append(rows, outlineRow(member, sym.Name, detail))
		}
	}
	return rows
}

func outlineRow(sym analysis.Symbol, container, detail string) encode.Row {
	row := encode.Row{sym.Kind.Abbrev(), sym.Name, container}
	switch detail {
	case contracts.MapDetailMinimal:
		return append(row, strconv.Itoa(sym.Range.StartLine))
	case contracts.MapDetailFull:
		return append(row,
			sym.Signature,
			strconv.Itoa(sym.Range.StartLine),
			strconv.Itoa(sym.Range.EndLine),
			sym.DocComment,
			sym.Body)
	default:
		return append(row, sym.Signature, strconv.Itoa(sym.Range.StartLine))
	}
}
