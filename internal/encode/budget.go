package encode

// BudgetTracker enforces a token ceiling while rows are appended. The
// estimate is conservative and monotonic: once a row does not fit, no
// later row is admitted either.
type BudgetTracker struct {
	maxTokens int
	current   int
}

func NewBudgetTracker(maxTokens int) *BudgetTracker {
	return &BudgetTracker{maxTokens: maxTokens}
}

func (b *BudgetTracker) CanAdd(estimatedTokens int) bool {
	return b.current+estimatedTokens <= b.maxTokens
}

// Add admits the given cost if it fits and reports whether it did.
func (b *BudgetTracker) Add(estimatedTokens int) bool {
	if !b.CanAdd(estimatedTokens) {
		return false
	}
	b.current += estimatedTokens
	return true
}

func (b *BudgetTracker) Remaining() int {
	if b.current >= b.maxTokens {
		return 0
	}
	return b.maxTokens - b.current
}

// EstimateTokens approximates the token cost of a row from its character
// count: roughly 4 chars per token plus a small per-row overhead.
func EstimateTokens(totalChars int) int {
	return (totalChars / 4) + 3
}
