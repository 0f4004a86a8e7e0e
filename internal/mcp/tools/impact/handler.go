package impact

import (
	"context"
	"strconv"

	analysis "strata/internal/analysis/impact"
	"strata/internal/core/ports"
	"strata/internal/encode"
	"strata/internal/mcp/contracts"
	"strata/internal/shared/observability"
)

const affectedHeader = "file|line|column|usage_type|risk|reason"

func HandleAffected(ctx context.Context, svc ports.AnalysisService, in contracts.ImpactAffectedInput, defaultBudget int) (contracts.ImpactAffectedOutput, error) {
	budget := in.MaxTokens
	if budget <= 0 {
		budget = defaultBudget
	}

	affected, err := svc.AffectedBy(ctx, ports.ImpactRequest{
		Path:       in.Path,
		Revision:   in.Revision,
		SearchRoot: in.SearchRoot,
	})
	if err != nil {
		return contracts.ImpactAffectedOutput{}, err
	}

	out := contracts.ImpactAffectedOutput{
		Path:          in.Path,
		Revision:      in.Revision,
		AffectedCount: len(affected),
	}

	rows := make([]encode.Row, 0, len(affected))
	for _, a := range affected {
		switch a.Risk {
		case analysis.RiskHigh:
			out.HighCount++
		case analysis.RiskMedium:
			out.MediumCount++
		case analysis.RiskLow:
			out.LowCount++
		}
		rows = append(rows, encode.Row{
			a.File,
			strconv.Itoa(a.Line),
			strconv.Itoa(a.Column),
			string(a.UsageType),
			string(a.Risk),
			a.Reason,
		})
	}

	payload := encode.Encode(rows, affectedHeader, budget)
	if payload.Truncated {
		observability.EncoderTruncationsTotal.Inc()
	}
	out.Affected = contracts.EncodedBlock{
		Header:    payload.Header,
		Rows:      payload.Rows,
		RowCount:  payload.RowCount,
		TotalRows: len(rows),
		Truncated: payload.Truncated,
	}
	return out, nil
}
