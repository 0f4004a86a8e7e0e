package encode

import "strings"

// Row is one emittable record: an ordered list of raw (unescaped) fields.
type Row []string

// Payload is the budgeted result of encoding a row collection.
type Payload struct {
	Header    string
	Rows      string
	RowCount  int
	Truncated bool
}

// Encode appends rows greedily in caller order until the next row would
// exceed maxBudget. Rows are all-or-nothing: a row that does not fit is
// dropped whole and the truncation flag is set. The header describes the
// column layout and is not charged against the budget.
func Encode(rows []Row, header string, maxBudget int) Payload {
	tracker := NewBudgetTracker(maxBudget)
	var out []string
	truncated := false

	for _, row := range rows {
		formatted := FormatRow(row)
		cost := EstimateTokens(len(formatted))
		if !tracker.Add(cost) {
			truncated = true
			break
		}
		out = append(out, formatted)
	}

	return Payload{
		Header:    header,
		Rows:      strings.Join(out, "\n"),
		RowCount:  len(out),
		Truncated: truncated,
	}
}

// Decode reverses Encode for the rows that were emitted, with one
// blind spot: a row whose every field is empty formats to "", and an
// empty payload carries no row boundary, so a payload of nothing but
// such rows decodes to nil. No emitter in this module produces a row
// without at least one non-empty field.
func Decode(payload string) []Row {
	raw := SplitRows(payload)
	rows := make([]Row, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, ParseRow(r))
	}
	return rows
}
