package impact

import (
	"testing"

	"strata/internal/analysis/diff"
	"strata/internal/analysis/usage"
)

func signatureChange(name string, details ...diff.Detail) diff.ChangeRecord {
	return diff.ChangeRecord{
		ChangeType:      diff.ChangeSignatureChanged,
		Name:            name,
		BeforeSignature: "fn " + name + "(a: i32, b: i32) -> i32",
		AfterSignature:  "fn " + name + "(a: i64, b: i64) -> i64",
		Details:         details,
	}
}

func TestClassifySignatureChangedCallsAreHigh(t *testing.T) {
	changes := []diff.ChangeRecord{signatureChange("add",
		diff.Detail{Kind: diff.DetailParameterChanged, Field: "a", From: "a: i32", To: "a: i64"},
		diff.Detail{Kind: diff.DetailParameterChanged, Field: "b", From: "b: i32", To: "b: i64"},
		diff.Detail{Kind: diff.DetailReturnTypeChanged, Field: "return", From: "i32", To: "i64"},
	)}
	usages := []usage.Usage{
		{File: "y.py", Line: 3, Column: 7, UsageType: usage.UsageCall},
		{File: "z.py", Line: 1, Column: 9, UsageType: usage.UsageCall},
	}

	affected := Classify(changes, usages, "add")
	if len(affected) != 2 {
		t.Fatalf("affected = %+v", affected)
	}
	for _, a := range affected {
		if a.Risk != RiskHigh {
			t.Errorf("risk for %s:%d = %s, want high", a.File, a.Line, a.Risk)
		}
		if a.Reason != "Parameter types changed - arguments may be incompatible" {
			t.Errorf("reason = %q", a.Reason)
		}
	}
}

func TestClassifyRiskTable(t *testing.T) {
	cases := []struct {
		name       string
		changeType diff.ChangeType
		usageType  usage.UsageType
		want       Risk
	}{
		{"removed call", diff.ChangeRemoved, usage.UsageCall, RiskHigh},
		{"removed reference", diff.ChangeRemoved, usage.UsageReference, RiskHigh},
		{"removed import", diff.ChangeRemoved, usage.UsageImport, RiskHigh},
		{"signature type reference", diff.ChangeSignatureChanged, usage.UsageTypeReference, RiskMedium},
		{"signature plain reference", diff.ChangeSignatureChanged, usage.UsageReference, RiskLow},
		{"signature import", diff.ChangeSignatureChanged, usage.UsageImport, RiskLow},
		{"body changed call", diff.ChangeBodyChanged, usage.UsageCall, RiskLow},
		{"added reference", diff.ChangeAdded, usage.UsageReference, RiskLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			changes := []diff.ChangeRecord{{ChangeType: tc.changeType, Name: "sym"}}
			usages := []usage.Usage{{File: "f", Line: 1, Column: 1, UsageType: tc.usageType}}
			affected := Classify(changes, usages, "sym")
			if len(affected) != 1 {
				t.Fatalf("affected = %+v", affected)
			}
			if affected[0].Risk != tc.want {
				t.Errorf("risk = %s, want %s", affected[0].Risk, tc.want)
			}
			if affected[0].Reason == "" {
				t.Error("reason is empty")
			}
		})
	}
}

func TestClassifyNoChangeRecordYieldsNothing(t *testing.T) {
	changes := []diff.ChangeRecord{{ChangeType: diff.ChangeBodyChanged, Name: "other"}}
	usages := []usage.Usage{{File: "f", Line: 1, Column: 1, UsageType: usage.UsageCall}}
	if affected := Classify(changes, usages, "sym"); len(affected) != 0 {
		t.Fatalf("affected = %+v, want none", affected)
	}
}

func TestClassifyMostSevereChangeWins(t *testing.T) {
	changes := []diff.ChangeRecord{
		{ChangeType: diff.ChangeBodyChanged, Name: "sym"},
		{ChangeType: diff.ChangeRemoved, Name: "sym"},
	}
	usages := []usage.Usage{{File: "f", Line: 1, Column: 1, UsageType: usage.UsageReference}}
	affected := Classify(changes, usages, "sym")
	if len(affected) != 1 || affected[0].Risk != RiskHigh {
		t.Fatalf("affected = %+v, want the removal to dominate", affected)
	}
}

func TestClassifyParameterCountReason(t *testing.T) {
	changes := []diff.ChangeRecord{signatureChange("sym",
		diff.Detail{Kind: diff.DetailParameterAdded, Field: "c", To: "c: bool"},
	)}
	usages := []usage.Usage{{File: "f", Line: 1, Column: 1, UsageType: usage.UsageCall}}
	affected := Classify(changes, usages, "sym")
	if len(affected) != 1 {
		t.Fatalf("affected = %+v", affected)
	}
	if affected[0].Reason != "Parameter count changed - call sites must be updated" {
		t.Errorf("reason = %q", affected[0].Reason)
	}
}
