package diff

import (
	"sort"
	"strings"

	"strata/internal/analysis/shape"
)

type ChangeType string

const (
	ChangeAdded            ChangeType = "added"
	ChangeRemoved          ChangeType = "removed"
	ChangeSignatureChanged ChangeType = "signature_changed"
	ChangeBodyChanged      ChangeType = "body_changed"
)

type DetailKind string

const (
	DetailParameterAdded    DetailKind = "parameter_added"
	DetailParameterRemoved  DetailKind = "parameter_removed"
	DetailParameterChanged  DetailKind = "parameter_changed"
	DetailReturnTypeChanged DetailKind = "return_type_changed"
)

// Detail pinpoints one difference inside a changed signature.
type Detail struct {
	Kind  DetailKind `json:"kind"`
	Field string     `json:"field"`
	From  string     `json:"from,omitempty"`
	To    string     `json:"to,omitempty"`
}

// ChangeRecord is one symbol-level difference between two snapshots of
// a file. Details are populated only for signature changes.
type ChangeRecord struct {
	ChangeType      ChangeType       `json:"change_type"`
	SymbolKind      shape.SymbolKind `json:"symbol_kind"`
	Name            string           `json:"name"`
	Container       string           `json:"container,omitempty"`
	BeforeSignature string           `json:"before_signature,omitempty"`
	AfterSignature  string           `json:"after_signature,omitempty"`
	Line            int              `json:"line"`
	Details         []Detail         `json:"details,omitempty"`
}

// Differ extracts both snapshots with bodies and compares them
// symbol by symbol.
type Differ struct {
	extractor *shape.Extractor
}

func NewDiffer(extractor *shape.Extractor) *Differ {
	return &Differ{extractor: extractor}
}

// Diff compares a file's content at two revisions. An empty result
// means no structural change, which callers report distinctly from a
// failed comparison.
func (d *Differ) Diff(path string, beforeSource, currentSource []byte, language string) ([]ChangeRecord, error) {
	before, err := d.extractor.Extract(path, language, beforeSource, shape.Options{IncludeBody: true})
	if err != nil {
		return nil, err
	}
	current, err := d.extractor.Extract(path, language, currentSource, shape.Options{IncludeBody: true})
	if err != nil {
		return nil, err
	}
	return Compare(before, current), nil
}

type flatSymbol struct {
	kind      shape.SymbolKind
	name      string
	container string
	signature string
	body      string
	line      int
}

type symbolKey struct {
	kind      shape.SymbolKind
	name      string
	container string
}

// Compare matches symbols by (kind, name, container) and classifies
// Added, Removed, SignatureChanged and BodyChanged. Duplicate names
// are paired in declaration order, a best-effort policy that can
// mis-pair reordered overloads.
func Compare(before, current *shape.FileShape) []ChangeRecord {
	beforeSyms := flatten(before)
	currentSyms := flatten(current)

	beforeByKey := groupByKey(beforeSyms)
	currentByKey := groupByKey(currentSyms)

	var removed, added, modified []ChangeRecord

	seenBefore := make(map[symbolKey]int)
	for _, sym := range beforeSyms {
		key := symbolKey{sym.kind, sym.name, sym.container}
		ordinal := seenBefore[key]
		seenBefore[key]++
		matches := currentByKey[key]
		if ordinal >= len(matches) {
			removed = append(removed, ChangeRecord{
				ChangeType:      ChangeRemoved,
				SymbolKind:      sym.kind,
				Name:            sym.name,
				Container:       sym.container,
				BeforeSignature: sym.signature,
				Line:            sym.line,
			})
			continue
		}
		if rec, changed := compareMatched(sym, matches[ordinal]); changed {
			modified = append(modified, rec)
		}
	}

	seenCurrent := make(map[symbolKey]int)
	for _, sym := range currentSyms {
		key := symbolKey{sym.kind, sym.name, sym.container}
		ordinal := seenCurrent[key]
		seenCurrent[key]++
		if ordinal >= len(beforeByKey[key]) {
			added = append(added, ChangeRecord{
				ChangeType:     ChangeAdded,
				SymbolKind:     sym.kind,
				Name:           sym.name,
				Container:      sym.container,
				AfterSignature: sym.signature,
				Line:           sym.line,
			})
		}
	}

	sortRecords(removed)
	sortRecords(added)
	sortRecords(modified)

	out := make([]ChangeRecord, 0, len(removed)+len(added)+len(modified))
	out = append(out, removed...)
	out = append(out, added...)
	out = append(out, modified...)
	return out
}

func compareMatched(before, current flatSymbol) (ChangeRecord, bool) {
	if normalizeWhitespace(before.signature) != normalizeWhitespace(current.signature) {
		return ChangeRecord{
			ChangeType:      ChangeSignatureChanged,
			SymbolKind:      before.kind,
			Name:            before.name,
			Container:       before.container,
			BeforeSignature: before.signature,
			AfterSignature:  current.signature,
			Line:            current.line,
			Details:         signatureDetails(before.name, before.signature, current.signature),
		}, true
	}
	if before.body != "" || current.body != "" {
		if normalizeWhitespace(before.body) != normalizeWhitespace(current.body) {
			return ChangeRecord{
				ChangeType:      ChangeBodyChanged,
				SymbolKind:      before.kind,
				Name:            before.name,
				Container:       before.container,
				BeforeSignature: before.signature,
				AfterSignature:  current.signature,
				Line:            current.line,
			}, true
		}
	}
	return ChangeRecord{}, false
}

func flatten(fs *shape.FileShape) []flatSymbol {
	if fs == nil {
		return nil
	}
	var out []flatSymbol
	for _, sym := range fs.Symbols {
		out = append(out, flatSymbol{
			kind:      sym.Kind,
			name:      sym.Name,
			signature: sym.Signature,
			body:      sym.Body,
			line:      sym.Range.StartLine,
		})
		for _, member := range sym.Members {
			out = append(out, flatSymbol{
				kind:      member.Kind,
				name:      member.Name,
				container: sym.Name,
				signature: member.Signature,
				body:      member.Body,
				line:      member.Range.StartLine,
			})
		}
	}
	return out
}

func groupByKey(syms []flatSymbol) map[symbolKey][]flatSymbol {
	out := make(map[symbolKey][]flatSymbol)
	for _, sym := range syms {
		key := symbolKey{sym.kind, sym.name, sym.container}
		out[key] = append(out[key], sym)
	}
	return out
}

func sortRecords(records []ChangeRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Line < records[j].Line
	})
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
