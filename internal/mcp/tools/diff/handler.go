package diff

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	analysis "strata/internal/analysis/diff"
	"strata/internal/core/ports"
	"strata/internal/encode"
	"strata/internal/mcp/contracts"
	"strata/internal/shared/observability"
)

const changeHeader = "change_type|kind|name|container|before_signature|after_signature|line|details"

func HandleStructural(ctx context.Context, svc ports.AnalysisService, in contracts.DiffStructuralInput, defaultBudget int) (contracts.DiffStructuralOutput, error) {
	budget := in.MaxTokens
	if budget <= 0 {
		budget = defaultBudget
	}

	result, err := svc.DiffStructural(ctx, ports.DiffRequest{Path: in.Path, Revision: in.Revision})
	if err != nil {
		return contracts.DiffStructuralOutput{}, err
	}

	rows := changeRows(result.Changes)
	payload := encode.Encode(rows, changeHeader, budget)
	if payload.Truncated {
		observability.EncoderTruncationsTotal.Inc()
	}

	return contracts.DiffStructuralOutput{
		Path:        in.Path,
		Revision:    in.Revision,
		NoChange:    result.NoChange,
		ChangeCount: len(result.Changes),
		Changes: contracts.EncodedBlock{
			Header:    payload.Header,
			Rows:      payload.Rows,
			RowCount:  payload.RowCount,
			TotalRows: len(rows),
			Truncated: payload.Truncated,
		},
	}, nil
}

func changeRows(changes []analysis.ChangeRecord) []encode.Row {
	var rows []encode.Row
	for _, change := range changes {
		rows = append(rows, encode.Row{
			string(change.ChangeType),
			string(change.SymbolKind),
			change.Name,
			change.Container,
			change.BeforeSignature,
			change.AfterSignature,
			strconv.Itoa(change.Line),
			detailSummary(change.Details),
		})
	}
	return rows
}

func detailSummary(details []analysis.Detail) string {
	if len(details) == 0 {
		return ""
	}
	parts := make([]string, 0, len(details))
	for _, d := range details {
		switch d.Kind {
		case analysis.DetailParameterAdded:
			parts = append(parts, fmt.Sprintf("%s(%s) %s", d.Kind, d.Field, d.To))
		case analysis.DetailParameterRemoved:
			parts = append(parts, fmt.Sprintf("%s(%s) %s", d.Kind, d.Field, d.From))
		default:
			parts = append(parts, fmt.Sprintf("%s(%s) %s => %s", d.Kind, d.Field, d.From, d.To))
		}
	}
	return strings.Join(parts, "; ")
}
