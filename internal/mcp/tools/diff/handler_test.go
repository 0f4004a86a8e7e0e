package diff

import (
	"context"
	"testing"

	analysis "strata/internal/analysis/diff"
	"strata/internal/analysis/shape"
	"strata/internal/core/ports"
	"strata/internal/encode"
	"strata/internal/mcp/contracts"
)

type fakeAnalysis struct {
	ports.AnalysisService
	diffFn func(ctx context.Context, req ports.DiffRequest) (ports.DiffResult, error)
}

func (f *fakeAnalysis) DiffStructural(ctx context.Context, req ports.DiffRequest) (ports.DiffResult, error) {
	return f.diffFn(ctx, req)
}

func TestHandleStructural(t *testing.T) {
	changes := []analysis.ChangeRecord{
		{
			ChangeType:      analysis.ChangeSignatureChanged,
			SymbolKind:      shape.KindFunction,
			Name:            "process",
			BeforeSignature: "fn process(a: i32) -> i32",
			AfterSignature:  "fn process(a: i64) -> i64",
			Line:            12,
			Details: []analysis.Detail{
				{Kind: analysis.DetailParameterChanged, Field: "a", From: "a: i32", To: "a: i64"},
				{Kind: analysis.DetailReturnTypeChanged, Field: "return", From: "i32", To: "i64"},
			},
		},
	}

	svc := &fakeAnalysis{
		diffFn: func(_ context.Context, req ports.DiffRequest) (ports.DiffResult, error) {
			if req.Revision != "HEAD~1" {
				t.Fatalf("unexpected revision: %s", req.Revision)
			}
			return ports.DiffResult{Changes: changes}, nil
		},
	}

	out, err := HandleStructural(context.Background(), svc, contracts.DiffStructuralInput{Path: "src/lib.rs", Revision: "HEAD~1"}, 10000)
	if err != nil {
		t.Fatalf("handle structural: %v", err)
	}
	if out.NoChange {
		t.Fatal("expected a reported change")
	}
	if out.ChangeCount != 1 {
		t.Fatalf("expected 1 change, got %d", out.ChangeCount)
	}

	rows := encode.SplitRows(out.Changes.Rows)
	if len(rows) != 1 {
		t.Fatalf("expected 1 encoded row, got %d", len(rows))
	}
	fields := encode.ParseRow(rows[0])
	if fields[0] != "signature_changed" || fields[2] != "process" {
		t.Fatalf("unexpected row fields: %v", fields)
	}
	if fields[7] == "" {
		t.Fatal("expected detail summary in row")
	}
}

func TestHandleStructuralNoChange(t *testing.T) {
	svc := &fakeAnalysis{
		diffFn: func(_ context.Context, _ ports.DiffRequest) (ports.DiffResult, error) {
			return ports.DiffResult{NoChange: true}, nil
		},
	}

	out, err := HandleStructural(context.Background(), svc, contracts.DiffStructuralInput{Path: "main.go", Revision: "HEAD"}, 10000)
	if err != nil {
		t.Fatalf("handle structural: %v", err)
	}
	if !out.NoChange {
		t.Fatal("expected no_change to be set")
	}
	if out.Changes.RowCount != 0 {
		t.Fatalf("expected no rows, got %d", out.Changes.RowCount)
	}
}

func TestDetailSummary(t *testing.T) {
	details := []analysis.Detail{
		{Kind: analysis.DetailParameterAdded, Field: "b", To: "b: bool"},
		{Kind: analysis.DetailParameterRemoved, Field: "c", From: "c: u8"},
		{Kind: analysis.DetailReturnTypeChanged, Field: "return", From: "i32", To: "i64"},
	}

	got := detailSummary(details)
	want := "parameter_added(b) b: bool; parameter_removed(c) c: u8; return_type_changed(return) i32 => i64"
	if got != want {
		t.Fatalf("unexpected summary:\n got %q\nwant %q", got, want)
	}

	if detailSummary(nil) != "" {
		t.Fatal("expected empty summary for no details")
	}
}
