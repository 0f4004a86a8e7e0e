package impact

import (
	"strata/internal/analysis/diff"
	"strata/internal/analysis/usage"
)

type Risk string

const (
	RiskHigh   Risk = "high"
	RiskMedium Risk = "medium"
	RiskLow    Risk = "low"
)

// AffectedUsage pairs a located usage with the risk implied by the
// change to the symbol it references.
type AffectedUsage struct {
	usage.Usage
	Risk   Risk   `json:"risk"`
	Reason string `json:"reason"`
}

// Classify assigns a risk to every usage whose symbol name has a
// change record. Usages of unchanged symbols are dropped. When a name
// changed more than once, the most severe record wins.
func Classify(changes []diff.ChangeRecord, usages []usage.Usage, symbol string) []AffectedUsage {
	change, ok := mostSevere(changes, symbol)
	if !ok {
		return nil
	}
	out := make([]AffectedUsage, 0, len(usages))
	for _, u := range usages {
		risk, reason := classifyOne(change, u)
		out = append(out, AffectedUsage{Usage: u, Risk: risk, Reason: reason})
	}
	return out
}

func classifyOne(change diff.ChangeRecord, u usage.Usage) (Risk, string) {
	switch change.ChangeType {
	case diff.ChangeRemoved:
		return RiskHigh, "Symbol removed - this reference is now dangling"
	case diff.ChangeAdded:
		return RiskLow, "New symbol - this is a new usage"
	case diff.ChangeBodyChanged:
		return RiskLow, "Implementation changed - behavior may differ"
	case diff.ChangeSignatureChanged:
		switch u.UsageType {
		case usage.UsageCall:
			return RiskHigh, signatureCallReason(change.Details)
		case usage.UsageTypeReference:
			return RiskMedium, "Type signature changed - type annotations may need updating"
		case usage.UsageReference, usage.UsageImport:
			return RiskLow, "Signature changed - indirect reference, verify usage"
		default:
			return RiskMedium, "Signature changed - review this usage"
		}
	}
	return RiskMedium, "Symbol changed - review this usage"
}

func signatureCallReason(details []diff.Detail) string {
	var countChanged, typeChanged, returnChanged bool
	for _, d := range details {
		switch d.Kind {
		case diff.DetailParameterAdded, diff.DetailParameterRemoved:
			countChanged = true
		case diff.DetailParameterChanged:
			typeChanged = true
		case diff.DetailReturnTypeChanged:
			returnChanged = true
		}
	}
	switch {
	case countChanged:
		return "Parameter count changed - call sites must be updated"
	case typeChanged:
		return "Parameter types changed - arguments may be incompatible"
	case returnChanged:
		return "Return type changed - result handling may break"
	default:
		return "Signature changed - call may no longer match"
	}
}

var severity = map[diff.ChangeType]int{
	diff.ChangeRemoved:          4,
	diff.ChangeSignatureChanged: 3,
	diff.ChangeBodyChanged:      2,
	diff.ChangeAdded:            1,
}

func mostSevere(changes []diff.ChangeRecord, symbol string) (diff.ChangeRecord, bool) {
	var best diff.ChangeRecord
	found := false
	for _, change := range changes {
		if change.Name != symbol {
			continue
		}
		if !found || severity[change.ChangeType] > severity[best.ChangeType] {
			best = change
			found = true
		}
	}
	return best, found
}
