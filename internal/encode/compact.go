// Package encode assembles analysis results into a pipe-delimited row
// format bounded by a token budget. Rows split on "\n" and fields on "|",
// so both characters (and the escape character itself) are escaped inside
// field values. Decoding is exact: ParseRow(FormatRow(fields)) == fields.
package encode

import "strings"

// EscapeField makes a field value safe for row framing. Backslashes are
// escaped first so the other replacements cannot double-escape.
func EscapeField(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	s = strings.ReplaceAll(s, "|", `\|`)
	return s
}

// FormatRow joins escaped fields with the column delimiter.
func FormatRow(fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = EscapeField(f)
	}
	return strings.Join(escaped, "|")
}

// ParseRow splits a formatted row back into its original field values.
// Unknown escape sequences keep the backslash verbatim, a trailing
// backslash is preserved.
func ParseRow(row string) []string {
	var fields []string
	var current strings.Builder
	escaped := false

	for _, ch := range row {
		if escaped {
			switch ch {
			case 'n':
				current.WriteByte('\n')
			case 'r':
				current.WriteByte('\r')
			case '|':
				current.WriteByte('|')
			case '\\':
				current.WriteByte('\\')
			default:
				current.WriteByte('\\')
				current.WriteRune(ch)
			}
			escaped = false
			continue
		}

		switch ch {
		case '\\':
			escaped = true
		case '|':
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}

	if escaped {
		current.WriteByte('\\')
	}
	fields = append(fields, current.String())
	return fields
}

// SplitRows separates a multi-row payload into individual rows. Embedded
// newlines inside field values were escaped by FormatRow, so a bare "\n"
// is always a row boundary.
func SplitRows(payload string) []string {
	if payload == "" {
		return nil
	}
	return strings.Split(payload, "\n")
}
