// Package shape normalizes per-language syntax trees into one symbol
// model. Each supported language contributes a declaration table mapping
// grammar node kinds onto the closed SymbolKind set; the walker and all
// algorithms built on the model are language-agnostic.
package shape

type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindStruct    SymbolKind = "struct"
	KindInterface SymbolKind = "interface"
	KindEnum      SymbolKind = "enum"
	KindTypeAlias SymbolKind = "type_alias"
	KindImport    SymbolKind = "import"
	KindModule    SymbolKind = "module"
)

// Range is a 1-indexed, inclusive line span.
type Range struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// Symbol is one declaration found in a file. Members are owned
// exclusively: a method listed under its type does not reappear in the
// file's top-level list.
type Symbol struct {
	Kind       SymbolKind `json:"kind"`
	Name       string     `json:"name"`
	Signature  string     `json:"signature"`
	DocComment string     `json:"doc_comment,omitempty"`
	Range      Range      `json:"range"`
	Body       string     `json:"body,omitempty"`
	Implements string     `json:"implements,omitempty"`
	Members    []Symbol   `json:"members,omitempty"`
}

// FileShape lists the symbols declared directly in one file, in source
// order. Path is always project-relative. Dependencies are depth-1:
// a dependency's own Dependencies slice is empty.
type FileShape struct {
	Path         string      `json:"path"`
	Language     string      `json:"language"`
	Symbols      []Symbol    `json:"symbols"`
	Dependencies []FileShape `json:"dependencies,omitempty"`
}

// Abbrev returns the short kind tag used in compact rows.
func (k SymbolKind) Abbrev() string {
	switch k {
	case KindFunction:
		return "fn"
	case KindMethod:
		return "m"
	case KindStruct:
		return "s"
	case KindInterface:
		return "iface"
	case KindEnum:
		return "e"
	case KindTypeAlias:
		return "alias"
	case KindImport:
		return "imp"
	case KindModule:
		return "mod"
	default:
		return string(k)
	}
}
