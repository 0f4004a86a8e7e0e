package impact

import (
	"context"
	"testing"

	analysis "strata/internal/analysis/impact"
	"strata/internal/analysis/usage"
	"strata/internal/core/ports"
	"strata/internal/encode"
	"strata/internal/mcp/contracts"
)

type fakeAnalysis struct {
	ports.AnalysisService
	affectedFn func(ctx context.Context, req ports.ImpactRequest) ([]analysis.AffectedUsage, error)
}

func (f *fakeAnalysis) AffectedBy(ctx context.Context, req ports.ImpactRequest) ([]analysis.AffectedUsage, error) {
	return f.affectedFn(ctx, req)
}

func TestHandleAffected(t *testing.T) {
	affected := []analysis.AffectedUsage{
		{
			Usage:  usage.Usage{File: "a.rs", Line: 4, Column: 9, UsageType: usage.UsageCall},
			Risk:   analysis.RiskHigh,
			Reason: "Parameter types changed - arguments may be incompatible",
		},
		{
			Usage:  usage.Usage{File: "b.rs", Line: 7, Column: 2, UsageType: usage.UsageTypeReference},
			Risk:   analysis.RiskMedium,
			Reason: "Type signature changed - type annotations may need updating",
		},
		{
			Usage:  usage.Usage{File: "c.rs", Line: 1, Column: 1, UsageType: usage.UsageImport},
			Risk:   analysis.RiskLow,
			Reason: "Signature changed - indirect reference, verify usage",
		},
	}

	svc := &fakeAnalysis{
		affectedFn: func(_ context.Context, req ports.ImpactRequest) ([]analysis.AffectedUsage, error) {
			if req.Path != "src/lib.rs" || req.Revision != "HEAD~1" {
				t.Fatalf("unexpected request: %+v", req)
			}
			return affected, nil
		},
	}

	out, err := HandleAffected(context.Background(), svc, contracts.ImpactAffectedInput{Path: "src/lib.rs", Revision: "HEAD~1"}, 10000)
	if err != nil {
		t.Fatalf("handle affected: %v", err)
	}
	if out.AffectedCount != 3 {
		t.Fatalf("expected 3 affected usages, got %d", out.AffectedCount)
	}
	if out.HighCount != 1 || out.MediumCount != 1 || out.LowCount != 1 {
		t.Fatalf("unexpected risk counts: high=%d medium=%d low=%d", out.HighCount, out.MediumCount, out.LowCount)
	}

	rows := encode.SplitRows(out.Affected.Rows)
	if len(rows) != 3 {
		t.Fatalf("expected 3 encoded rows, got %d", len(rows))
	}
	first := encode.ParseRow(rows[0])
	if first[0] != "a.rs" || first[4] != string(analysis.RiskHigh) {
		t.Fatalf("unexpected first row: %v", first)
	}
}

func TestHandleAffectedEmpty(t *testing.T) {
	svc := &fakeAnalysis{
		affectedFn: func(_ context.Context, _ ports.ImpactRequest) ([]analysis.AffectedUsage, error) {
			return nil, nil
		},
	}

	out, err := HandleAffected(context.Background(), svc, contracts.ImpactAffectedInput{Path: "main.go", Revision: "HEAD"}, 10000)
	if err != nil {
		t.Fatalf("handle affected: %v", err)
	}
	if out.AffectedCount != 0 || out.Affected.RowCount != 0 {
		t.Fatalf("expected empty result, got %+v", out)
	}
}
