package shape

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// declRule maps one grammar node kind onto the symbol model. Adding a
// language means adding a table of these rules; the walker never
// changes.
type declRule struct {
	kind      SymbolKind
	nameField string   // field holding the identifier, defaults to "name"
	nameKinds []string // fallback child kinds when the grammar has no name field
	bodyField string   // field holding the body node, defaults to "body"

	useParent   bool // take signature/range from the parent node (go type_spec)
	sigBraceCut bool // cut signature at the first brace instead of the body offset

	members    map[string]SymbolKind // node kind -> member kind, walked inside the body
	membersAll bool                  // walk the body with the full table (inline modules)

	implementsField string // field holding the implemented contract
	implementsKind  string // child kind fallback (js class_heritage)

	unwrapField    string // descend into this field instead of emitting
	unwrapChildren bool   // descend into every child instead of emitting

	importModuleField string   // field naming the imported module
	importPathKinds   []string // descendant kinds naming imported modules

	receiverField string // method receiver; attaches to the container by type name
	mergeField    string // impl target type; merges members into that container
	traitField    string // implemented trait on an impl block

	resolve func(source []byte, node *sitter.Node) (declRule, bool)
}

type languageTable struct {
	comments map[string]bool
	trimDoc  func(string) string
	rules    map[string]declRule
}

// tableFor returns the declaration table for a language. tsx shares the
// typescript table. Languages that parse but have no table (html, css)
// return false.
func tableFor(language string) (*languageTable, bool) {
	switch language {
	case "go":
		return goTable, true
	case "python":
		return pythonTable, true
	case "rust":
		return rustTable, true
	case "java":
		return javaTable, true
	case "javascript":
		return javascriptTable, true
	case "typescript", "tsx":
		return typescriptTable, true
	default:
		return nil, false
	}
}

// KindForNode reports the symbol kind a node kind maps to, for the
// scope-chain walk. Import and unwrap rules do not form scopes.
func KindForNode(language, nodeKind string) (SymbolKind, bool) {
	tbl, ok := tableFor(language)
	if !ok {
		return "", false
	}
	rule, ok := tbl.rules[nodeKind]
	if !ok || rule.unwrapField != "" || rule.unwrapChildren {
		return "", false
	}
	if rule.importModuleField != "" || len(rule.importPathKinds) > 0 {
		return "", false
	}
	if rule.resolve != nil {
		return KindStruct, true
	}
	return rule.kind, true
}

var goTable = &languageTable{
	comments: set("comment"),
	trimDoc:  trimLineDoc("//"),
	rules: map[string]declRule{
		"package_clause": {kind: KindModule, nameKinds: []string{"package_identifier"}},
		"import_declaration": {
			kind:            KindImport,
			importPathKinds: []string{"import_spec"},
		},
		"function_declaration": {kind: KindFunction},
		"method_declaration":   {kind: KindMethod, receiverField: "receiver"},
		"type_declaration":     {unwrapChildren: true},
		"type_spec":            {resolve: resolveGoTypeSpec},
		"type_alias":           {kind: KindTypeAlias, useParent: true},
	},
}

func resolveGoTypeSpec(source []byte, node *sitter.Node) (declRule, bool) {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return declRule{}, false
	}
	switch typeNode.Kind() {
	case "struct_type":
		return declRule{kind: KindStruct, useParent: true, sigBraceCut: true, bodyField: "type"}, true
	case "interface_type":
		return declRule{
			kind:        KindInterface,
			useParent:   true,
			sigBraceCut: true,
			bodyField:   "type",
			members:     map[string]SymbolKind{"method_elem": KindMethod},
		}, true
	default:
		return declRule{kind: KindTypeAlias, useParent: true}, true
	}
}

var pythonTable = &languageTable{
	comments: set("comment"),
	trimDoc:  trimLineDoc("#"),
	rules: map[string]declRule{
		"function_definition": {kind: KindFunction},
		"class_definition": {
			kind:            KindStruct,
			implementsField: "superclasses",
			members: map[string]SymbolKind{
				"function_definition": KindMethod,
			},
		},
		"decorated_definition":  {unwrapField: "definition"},
		"import_statement":      {kind: KindImport, importPathKinds: []string{"dotted_name", "aliased_import"}},
		"import_from_statement": {kind: KindImport, importModuleField: "module_name"},
	},
}

var rustTable = &languageTable{
	comments: set("line_comment", "block_comment"),
	trimDoc:  trimRustDoc,
	rules: map[string]declRule{
		"function_item": {kind: KindFunction},
		"struct_item":   {kind: KindStruct},
		"union_item":    {kind: KindStruct},
		"enum_item":     {kind: KindEnum},
		"type_item":     {kind: KindTypeAlias},
		"trait_item": {
			kind: KindInterface,
			members: map[string]SymbolKind{
				"function_item":           KindMethod,
				"function_signature_item": KindMethod,
			},
		},
		"impl_item": {
			kind:       KindStruct,
			mergeField: "type",
			traitField: "trait",
			members: map[string]SymbolKind{
				"function_item": KindMethod,
			},
		},
		"mod_item":        {kind: KindModule, membersAll: true},
		"use_declaration": {kind: KindImport, importModuleField: "argument"},
	},
}

var javaTable = &languageTable{
	comments: set("line_comment", "block_comment"),
	trimDoc:  trimBlockDoc,
	rules: map[string]declRule{
		"package_declaration": {kind: KindModule, nameKinds: []string{"scoped_identifier", "identifier"}},
		"import_declaration":  {kind: KindImport, importPathKinds: []string{"scoped_identifier", "identifier"}},
		"class_declaration": {
			kind:            KindStruct,
			implementsField: "interfaces",
			members: map[string]SymbolKind{
				"method_declaration":      KindMethod,
				"constructor_declaration": KindMethod,
			},
		},
		"record_declaration": {
			kind:            KindStruct,
			implementsField: "interfaces",
			members:         map[string]SymbolKind{"method_declaration": KindMethod},
		},
		"interface_declaration": {
			kind:    KindInterface,
			members: map[string]SymbolKind{"method_declaration": KindMethod},
		},
		"enum_declaration": {kind: KindEnum},
	},
}

var javascriptTable = &languageTable{
	comments: set("comment"),
	trimDoc:  trimBlockDoc,
	rules: map[string]declRule{
		"function_declaration":           {kind: KindFunction},
		"generator_function_declaration": {kind: KindFunction},
		"class_declaration": {
			kind:           KindStruct,
			implementsKind: "class_heritage",
			members:        map[string]SymbolKind{"method_definition": KindMethod},
		},
		"import_statement": {kind: KindImport, importModuleField: "source"},
		"export_statement": {unwrapField: "declaration"},
	},
}

var typescriptTable = &languageTable{
	comments: set("comment"),
	trimDoc:  trimBlockDoc,
	rules: map[string]declRule{
		"function_declaration":           {kind: KindFunction},
		"generator_function_declaration": {kind: KindFunction},
		"class_declaration": {
			kind:           KindStruct,
			implementsKind: "class_heritage",
			members:        map[string]SymbolKind{"method_definition": KindMethod},
		},
		"abstract_class_declaration": {
			kind:           KindStruct,
			implementsKind: "class_heritage",
			members:        map[string]SymbolKind{"method_definition": KindMethod},
		},
		"interface_declaration": {
			kind: KindInterface,
			members: map[string]SymbolKind{
				"method_signature": KindMethod,
			},
		},
		"type_alias_declaration": {kind: KindTypeAlias},
		"enum_declaration":       {kind: KindEnum},
		"internal_module":        {kind: KindModule, membersAll: true},
		"import_statement":       {kind: KindImport, importModuleField: "source"},
		"export_statement":       {unwrapField: "declaration"},
	},
}

func set(kinds ...string) map[string]bool {
	out := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		out[k] = true
	}
	return out
}

func trimLineDoc(prefix string) func(string) string {
	return func(comment string) string {
		trimmed := strings.TrimSpace(comment)
		if strings.HasPrefix(trimmed, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))
		}
		return ""
	}
}

func trimRustDoc(comment string) string {
	trimmed := strings.TrimSpace(comment)
	switch {
	case strings.HasPrefix(trimmed, "///"):
		return strings.TrimSpace(strings.TrimPrefix(trimmed, "///"))
	case strings.HasPrefix(trimmed, "//!"):
		return strings.TrimSpace(strings.TrimPrefix(trimmed, "//!"))
	case strings.HasPrefix(trimmed, "//"):
		return strings.TrimSpace(strings.TrimPrefix(trimmed, "//"))
	default:
		return ""
	}
}

func trimBlockDoc(comment string) string {
	trimmed := strings.TrimSpace(comment)
	if strings.HasPrefix(trimmed, "/**") && strings.HasSuffix(trimmed, "*/") {
		inner := strings.TrimSuffix(strings.TrimPrefix(trimmed, "/**"), "*/")
		var lines []string
		for _, line := range strings.Split(inner, "\n") {
			line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
			if line != "" {
				lines = append(lines, line)
			}
		}
		return strings.Join(lines, "\n")
	}
	if strings.HasPrefix(trimmed, "/*") && strings.HasSuffix(trimmed, "*/") {
		return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(trimmed, "/*"), "*/"))
	}
	if strings.HasPrefix(trimmed, "//") {
		return strings.TrimSpace(strings.TrimPrefix(trimmed, "//"))
	}
	return ""
}
