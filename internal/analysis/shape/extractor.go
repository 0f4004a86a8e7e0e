package shape

import (
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"strata/internal/parser"
)

// Options controls how much of each symbol is captured. Bodies are
// only needed by the structural diff, so they stay off by default.
type Options struct {
	IncludeBody bool
}

// Extractor turns parsed syntax trees into FileShape values using the
// per-language declaration tables.
type Extractor struct {
	parser *parser.Parser
}

func NewExtractor(p *parser.Parser) *Extractor {
	return &Extractor{parser: p}
}

// Extract parses source in the given language and collects its
// top-level symbols. Trees with error nodes still yield the symbols
// outside the damaged regions.
func (e *Extractor) Extract(path, language string, source []byte, opts Options) (*FileShape, error) {
	tree, err := e.parser.Parse(language, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return FromRoot(path, language, source, tree.RootNode(), opts), nil
}

// ExtractFile detects the language from the path before extracting.
func (e *Extractor) ExtractFile(path string, source []byte, opts Options) (*FileShape, error) {
	tree, language, err := e.parser.ParseFile(path, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return FromRoot(path, language, source, tree.RootNode(), opts), nil
}

// FromRoot extracts symbols from an already-parsed tree. Languages
// without a declaration table yield an empty symbol list.
func FromRoot(path, language string, source []byte, root *sitter.Node, opts Options) *FileShape {
	out := &FileShape{Path: path, Language: language}
	tbl, ok := tableFor(language)
	if !ok {
		return out
	}
	w := &walker{tbl: tbl, source: source, opts: opts}
	out.Symbols = resolveEntries(w.collect(root))
	return out
}

// SymbolForNode builds the Symbol a single declaration node maps to,
// without walking its members. Used by position lookups that only need
// the enclosing construct.
func SymbolForNode(language string, source []byte, node *sitter.Node) (Symbol, bool) {
	tbl, ok := tableFor(language)
	if !ok {
		return Symbol{}, false
	}
	rule, ok := tbl.rules[node.Kind()]
	if !ok || rule.unwrapField != "" || rule.unwrapChildren {
		return Symbol{}, false
	}
	if rule.importModuleField != "" || len(rule.importPathKinds) > 0 {
		return Symbol{}, false
	}
	if rule.resolve != nil {
		if rule, ok = rule.resolve(source, node); !ok {
			return Symbol{}, false
		}
	}
	rule.members = nil
	rule.membersAll = false
	w := &walker{tbl: tbl, source: source}
	if rule.mergeField != "" {
		target := node.ChildByFieldName(rule.mergeField)
		if target == nil {
			return Symbol{}, false
		}
		sym, ok := w.build(rule, node, node)
		if !ok {
			return Symbol{}, false
		}
		sym.Name = baseTypeName(w.text(target))
		return sym, true
	}
	return w.build(rule, node, node)
}

type entry struct {
	sym      Symbol
	receiver string // attach as member of the container with this name
	merge    string // merge members into the container with this name
}

type walker struct {
	tbl    *languageTable
	source []byte
	opts   Options
}

func (w *walker) collect(parent *sitter.Node) []entry {
	var entries []entry
	for i := uint(0); i < parent.ChildCount(); i++ {
		w.decl(parent.Child(i), parent.Child(i), &entries)
	}
	return entries
}

func (w *walker) decl(node, anchor *sitter.Node, entries *[]entry) {
	if node == nil || node.IsError() || node.IsMissing() {
		return
	}
	rule, ok := w.tbl.rules[node.Kind()]
	if !ok {
		return
	}
	if rule.unwrapField != "" {
		if inner := node.ChildByFieldName(rule.unwrapField); inner != nil {
			w.decl(inner, node, entries)
		}
		return
	}
	if rule.unwrapChildren {
		for i := uint(0); i < node.ChildCount(); i++ {
			w.decl(node.Child(i), node, entries)
		}
		return
	}
	if rule.resolve != nil {
		rule, ok = rule.resolve(w.source, node)
		if !ok {
			return
		}
	}
	if rule.importModuleField != "" || len(rule.importPathKinds) > 0 {
		w.imports(rule, node, entries)
		return
	}

	en := entry{}
	if rule.receiverField != "" {
		if recv := node.ChildByFieldName(rule.receiverField); recv != nil {
			en.receiver = lastTypeIdentifier(w.source, recv)
		}
	}
	if rule.mergeField != "" {
		if target := node.ChildByFieldName(rule.mergeField); target != nil {
			en.merge = baseTypeName(w.text(target))
		}
		if en.merge == "" {
			return
		}
	}

	sym, ok := w.build(rule, node, anchor)
	if !ok {
		return
	}
	if en.merge != "" {
		sym.Name = en.merge
		if rule.traitField != "" {
			if trait := node.ChildByFieldName(rule.traitField); trait != nil {
				sym.Implements = baseTypeName(w.text(trait))
			}
		}
	}
	en.sym = sym
	*entries = append(*entries, en)
}

func (w *walker) build(rule declRule, node, anchor *sitter.Node) (Symbol, bool) {
	sigNode := node
	if rule.useParent && node.Parent() != nil {
		sigNode = node.Parent()
		anchor = sigNode
	}

	name := w.nameOf(rule, node)
	if name == "" && rule.mergeField == "" {
		return Symbol{}, false
	}

	bodyField := rule.bodyField
	if bodyField == "" {
		bodyField = "body"
	}
	body := node.ChildByFieldName(bodyField)

	sym := Symbol{
		Kind:       rule.kind,
		Name:       name,
		Signature:  w.signature(rule, sigNode, body),
		DocComment: w.docComment(anchor),
		Range: Range{
			StartLine: int(sigNode.StartPosition().Row) + 1,
			EndLine:   int(sigNode.EndPosition().Row) + 1,
		},
		Members: w.memberSymbols(rule, body),
	}
	if w.opts.IncludeBody && body != nil {
		sym.Body = w.text(body)
	}
	if rule.implementsField != "" {
		if f := node.ChildByFieldName(rule.implementsField); f != nil {
			sym.Implements = cleanImplements(w.text(f))
		}
	}
	if sym.Implements == "" && rule.implementsKind != "" {
		for i := uint(0); i < node.ChildCount(); i++ {
			if child := node.Child(i); child.Kind() == rule.implementsKind {
				sym.Implements = cleanImplements(w.text(child))
				break
			}
		}
	}
	return sym, true
}

func (w *walker) nameOf(rule declRule, node *sitter.Node) string {
	field := rule.nameField
	if field == "" {
		field = "name"
	}
	if n := node.ChildByFieldName(field); n != nil {
		return w.text(n)
	}
	for _, kind := range rule.nameKinds {
		for i := uint(0); i < node.ChildCount(); i++ {
			if child := node.Child(i); child.Kind() == kind {
				return w.text(child)
			}
		}
	}
	return ""
}

// signature is the declaration text up to the body. Python keeps its
// header colon off, brace languages stop before the opening brace.
func (w *walker) signature(rule declRule, sigNode, body *sitter.Node) string {
	var sig string
	switch {
	case !rule.sigBraceCut && body != nil && body.StartByte() > sigNode.StartByte():
		sig = string(w.source[sigNode.StartByte():body.StartByte()])
	default:
		text := w.text(sigNode)
		if i := strings.IndexByte(text, '{'); i >= 0 {
			sig = text[:i]
		} else if line, _, found := strings.Cut(text, "\n"); found {
			sig = line
		} else {
			sig = text
		}
	}
	sig = strings.TrimSpace(sig)
	sig = strings.TrimSuffix(sig, ":")
	return strings.TrimSpace(sig)
}

func (w *walker) memberSymbols(rule declRule, body *sitter.Node) []Symbol {
	if body == nil {
		return nil
	}
	if rule.membersAll {
		return resolveEntries(w.collect(body))
	}
	if len(rule.members) == 0 {
		return nil
	}
	var out []Symbol
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		anchor := child
		if child.Kind() == "decorated_definition" {
			if inner := child.ChildByFieldName("definition"); inner != nil {
				child = inner
			}
		}
		memberKind, ok := rule.members[child.Kind()]
		if !ok {
			continue
		}
		memberRule := w.tbl.rules[child.Kind()]
		memberRule.kind = memberKind
		memberRule.receiverField = ""
		memberRule.mergeField = ""
		memberRule.members = nil
		memberRule.membersAll = false
		if sym, ok := w.build(memberRule, child, anchor); ok {
			out = append(out, sym)
		}
	}
	return out
}

func (w *walker) imports(rule declRule, node *sitter.Node, entries *[]entry) {
	if rule.importModuleField != "" {
		if f := node.ChildByFieldName(rule.importModuleField); f != nil {
			w.addImport(node, f, entries)
		}
		return
	}
	kinds := set(rule.importPathKinds...)
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if kinds[n.Kind()] {
			w.addImport(n, n, entries)
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			visit(n.Child(i))
		}
	}
	visit(node)
}

func (w *walker) addImport(node, nameNode *sitter.Node, entries *[]entry) {
	name := importName(w.text(nameNode))
	if name == "" {
		return
	}
	*entries = append(*entries, entry{sym: Symbol{
		Kind:      KindImport,
		Name:      name,
		Signature: firstLine(w.text(node)),
		Range: Range{
			StartLine: int(node.StartPosition().Row) + 1,
			EndLine:   int(node.EndPosition().Row) + 1,
		},
	}})
}

// docComment joins the run of comment siblings directly above the
// declaration. A blank line ends the run.
func (w *walker) docComment(anchor *sitter.Node) string {
	var lines []string
	expected := int(anchor.StartPosition().Row)
	for sib := anchor.PrevSibling(); sib != nil; sib = sib.PrevSibling() {
		if !w.tbl.comments[sib.Kind()] {
			break
		}
		if int(sib.EndPosition().Row) < expected-1 {
			break
		}
		if line := w.tbl.trimDoc(w.text(sib)); line != "" {
			lines = append(lines, line)
		}
		expected = int(sib.StartPosition().Row)
	}
	if len(lines) == 0 {
		return ""
	}
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.Join(lines, "\n")
}

func (w *walker) text(n *sitter.Node) string {
	return string(w.source[n.StartByte():n.EndByte()])
}

// resolveEntries places receiver methods and impl-block members inside
// their containers and restores source order.
func resolveEntries(entries []entry) []Symbol {
	var out []Symbol
	index := make(map[string]int)
	for _, en := range entries {
		if en.receiver != "" || en.merge != "" {
			continue
		}
		out = append(out, en.sym)
		switch en.sym.Kind {
		case KindStruct, KindInterface, KindEnum:
			if _, seen := index[en.sym.Name]; !seen {
				index[en.sym.Name] = len(out) - 1
			}
		}
	}
	for _, en := range entries {
		switch {
		case en.receiver != "":
			if i, ok := index[en.receiver]; ok {
				out[i].Members = append(out[i].Members, en.sym)
			} else {
				out = append(out, en.sym)
			}
		case en.merge != "":
			if i, ok := index[en.merge]; ok {
				out[i].Members = append(out[i].Members, en.sym.Members...)
				if out[i].Implements == "" {
					out[i].Implements = en.sym.Implements
				}
			} else {
				out = append(out, en.sym)
				index[en.merge] = len(out) - 1
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Range.StartLine < out[j].Range.StartLine
	})
	for i := range out {
		members := out[i].Members
		sort.SliceStable(members, func(a, b int) bool {
			return members[a].Range.StartLine < members[b].Range.StartLine
		})
	}
	return out
}

func lastTypeIdentifier(source []byte, node *sitter.Node) string {
	var name string
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.Kind() == "type_identifier" {
			name = string(source[n.StartByte():n.EndByte()])
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			visit(n.Child(i))
		}
	}
	visit(node)
	return name
}

// baseTypeName strips generic arguments, "Vec<T>" names the Vec impl.
func baseTypeName(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '<'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

func cleanImplements(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "implements ")
	text = strings.TrimPrefix(text, "extends ")
	text = strings.TrimPrefix(text, "(")
	text = strings.TrimSuffix(text, ")")
	text = strings.TrimPrefix(text, ":")
	return strings.TrimSpace(text)
}

func importName(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, " as "); i >= 0 {
		text = text[:i]
	}
	if i := strings.IndexAny(text, "\"'`"); i >= 0 {
		quote := text[i]
		rest := text[i+1:]
		if j := strings.IndexByte(rest, quote); j >= 0 {
			return rest[:j]
		}
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(text)
}

func firstLine(text string) string {
	if line, _, found := strings.Cut(text, "\n"); found {
		return strings.TrimSpace(line)
	}
	return strings.TrimSpace(text)
}
