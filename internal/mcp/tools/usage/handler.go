package usage

import (
	"context"
	"strconv"

	analysis "strata/internal/analysis/usage"
	"strata/internal/core/ports"
	"strata/internal/encode"
	"strata/internal/mcp/contracts"
	"strata/internal/shared/observability"
)

const usageHeader = "file|line|column|usage_type|context"

func HandleFind(ctx context.Context, svc ports.AnalysisService, in contracts.UsageFindInput, defaultBudget int) (contracts.UsageFindOutput, error) {
	budget := in.MaxTokens
	if budget <= 0 {
		budget = defaultBudget
	}

	usages, err := svc.FindUsages(ctx, ports.UsageRequest{
		Symbol:        in.Symbol,
		SearchRoot:    in.SearchRoot,
		ContextRadius: in.ContextRadius,
	})
	if err != nil {
		return contracts.UsageFindOutput{}, err
	}

	rows := usageRows(usages)
	payload := encode.Encode(rows, usageHeader, budget)
	if payload.Truncated {
		observability.EncoderTruncationsTotal.Inc()
	}

	return contracts.UsageFindOutput{
		Symbol:     in.Symbol,
		UsageCount: len(usages),
		Usages: contracts.EncodedBlock{
			Header:    payload.Header,
			Rows:      payload.Rows,
			RowCount:  payload.RowCount,
			TotalRows: len(rows),
			Truncated: payload.Truncated,
		},
	}, nil
}

func usageRows(usages []analysis.Usage) []encode.Row {
	var rows []encode.Row
	for _, u := range usages {
		rows = append(rows, encode.Row{
			u.File,
			strconv.Itoa(u.Line),
			strconv.Itoa(u.Column),
			string(u.UsageType),
			u.Context,
		})
	}
	return rows
}
