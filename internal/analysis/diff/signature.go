package diff

import (
	"fmt"
	"strings"
)

// signatureDetails derives the positional parameter and return-type
// differences between two signatures. name anchors the parameter list:
// in a Go method signature the first parenthesis opens the receiver,
// not the parameters.
func signatureDetails(name, before, after string) []Detail {
	var details []Detail

	beforeParams := splitParameters(parameterList(before, name))
	afterParams := splitParameters(parameterList(after, name))

	common := len(beforeParams)
	if len(afterParams) < common {
		common = len(afterParams)
	}
	for i := 0; i < common; i++ {
		b := normalizeWhitespace(beforeParams[i])
		a := normalizeWhitespace(afterParams[i])
		if b == a {
			continue
		}
		details = append(details, Detail{
			Kind:  DetailParameterChanged,
			Field: parameterName(beforeParams[i], i),
			From:  b,
			To:    a,
		})
	}
	for i := common; i < len(afterParams); i++ {
		details = append(details, Detail{
			Kind:  DetailParameterAdded,
			Field: parameterName(afterParams[i], i),
			To:    normalizeWhitespace(afterParams[i]),
		})
	}
	for i := common; i < len(beforeParams); i++ {
		details = append(details, Detail{
			Kind:  DetailParameterRemoved,
			Field: parameterName(beforeParams[i], i),
			From:  normalizeWhitespace(beforeParams[i]),
		})
	}

	beforeReturn := normalizeWhitespace(returnType(before, name))
	afterReturn := normalizeWhitespace(returnType(after, name))
	if beforeReturn != afterReturn {
		details = append(details, Detail{
			Kind:  DetailReturnTypeChanged,
			Field: "return",
			From:  beforeReturn,
			To:    afterReturn,
		})
	}
	return details
}

// parameterList returns the text between the parameter list's opening
// parenthesis and its matching close, respecting nesting and string
// literals.
func parameterList(signature, name string) string {
	start, end := parameterSpan(signature, name)
	if start < 0 {
		return ""
	}
	if end < 0 {
		return signature[start+1:]
	}
	return signature[start+1 : end]
}

// parameterSpan locates the opening parenthesis of the parameter list
// and its matching close. end is -1 when the close is missing.
func parameterSpan(signature, name string) (start, end int) {
	start = parameterStart(signature, name)
	if start < 0 {
		return -1, -1
	}
	depth := 0
	inString := byte(0)
	escaped := false
	for i := start; i < len(signature); i++ {
		c := signature[i]
		switch {
		case escaped:
			escaped = false
		case inString != 0:
			if c == '\\' {
				escaped = true
			} else if c == inString {
				inString = 0
			}
		case c == '"' || c == '\'':
			inString = c
		case c == '>' && i > start && signature[i-1] == '-':
			// arrow, not a closing bracket
		case c == '(' || c == '[' || c == '<':
			depth++
		case c == ')' || c == ']' || c == '>':
			depth--
			if depth == 0 && c == ')' {
				return start, i
			}
		}
	}
	return start, -1
}

// parameterStart finds the parenthesis opening the parameter list: the
// first one following the symbol name, so a Go method's receiver list
// is skipped and a type-parameter bracket between name and parenthesis
// is stepped over. Signatures that never mention the name fall back to
// the first parenthesis.
func parameterStart(signature, name string) int {
	from := 0
	for name != "" {
		i := strings.Index(signature[from:], name)
		if i < 0 {
			break
		}
		i += from
		from = i + len(name)
		if i > 0 && isIdentByte(signature[i-1]) {
			continue
		}
		j := i + len(name)
		if j < len(signature) && isIdentByte(signature[j]) {
			continue
		}
		j = skipSpaces(signature, j)
		if j < len(signature) && (signature[j] == '[' || signature[j] == '<') {
			j = skipSpaces(signature, skipBalanced(signature, j))
		}
		if j < len(signature) && signature[j] == '(' {
			return j
		}
	}
	return strings.IndexByte(signature, '(')
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func skipSpaces(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

// skipBalanced steps over a bracket group starting at i, returning the
// index just past its matching close.
func skipBalanced(s string, i int) int {
	depth := 0
	for ; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '<':
			depth++
		case ')', ']', '>':
			if s[i] == '>' && i > 0 && s[i-1] == '-' {
				continue
			}
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return i
}

// splitParameters splits at commas outside any bracket or string.
func splitParameters(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	var params []string
	depth := 0
	inString := byte(0)
	escaped := false
	start := 0
	for i := 0; i < len(list); i++ {
		c := list[i]
		switch {
		case escaped:
			escaped = false
		case inString != 0:
			if c == '\\' {
				escaped = true
			} else if c == inString {
				inString = 0
			}
		case c == '"' || c == '\'':
			inString = c
		case c == '>' && i > 0 && list[i-1] == '-':
			// arrow, not a closing bracket
		case c == '(' || c == '[' || c == '<':
			depth++
		case c == ')' || c == ']' || c == '>':
			depth--
		case c == ',' && depth == 0:
			params = append(params, strings.TrimSpace(list[start:i]))
			start = i + 1
		}
	}
	if last := strings.TrimSpace(list[start:]); last != "" {
		params = append(params, last)
	}
	return params
}

// parameterName is the declared name when one is visible, otherwise a
// positional placeholder.
func parameterName(param string, position int) string {
	param = strings.TrimSpace(param)
	if colon := strings.IndexByte(param, ':'); colon >= 0 {
		if name := strings.TrimSpace(param[:colon]); name != "" {
			return strings.TrimPrefix(name, "mut ")
		}
	}
	if fields := strings.Fields(param); len(fields) > 1 {
		return fields[0]
	}
	return fmt.Sprintf("param_%d", position)
}

// returnType extracts the text after an arrow, or after the parameter
// list's closing parenthesis for languages without one.
func returnType(signature, name string) string {
	if i := strings.LastIndex(signature, "->"); i >= 0 {
		return strings.TrimSpace(signature[i+2:])
	}
	_, end := parameterSpan(signature, name)
	if end < 0 || end+1 >= len(signature) {
		return ""
	}
	rest := strings.TrimSpace(signature[end+1:])
	return strings.TrimSpace(strings.TrimPrefix(rest, ":"))
}
