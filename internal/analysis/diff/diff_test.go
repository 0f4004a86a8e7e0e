package diff

import (
	"testing"

	"strata/internal/analysis/shape"
	"strata/internal/parser"
)

func newTestDiffer(t *testing.T) *Differ {
	t.Helper()
	loader, err := parser.NewGrammarLoader()
	if err != nil {
		t.Fatalf("load grammars: %v", err)
	}
	return NewDiffer(shape.NewExtractor(parser.NewParser(loader)))
}

func TestDiffNoOp(t *testing.T) {
	d := newTestDiffer(t)
	src := []byte("fn add(a: i32, b: i32) -> i32 { a + b }\n")
	records, err := d.Diff("lib.rs", src, src, "rust")
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("self-diff produced records: %+v", records)
	}
}

func TestDiffParameterAndReturnTypeChange(t *testing.T) {
	d := newTestDiffer(t)
	before := []byte("fn add(a: i32, b: i32) -> i32 { a + b }\n")
	current := []byte("fn add(a: i64, b: i64) -> i64 { a + b }\n")

	records, err := d.Diff("lib.rs", before, current, "rust")
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %+v, want exactly one", records)
	}
	rec := records[0]
	if rec.ChangeType != ChangeSignatureChanged {
		t.Fatalf("change type = %s", rec.ChangeType)
	}
	if rec.Name != "add" || rec.SymbolKind != shape.KindFunction {
		t.Errorf("matched symbol = %s %s", rec.SymbolKind, rec.Name)
	}

	var paramChanged, returnChanged int
	for _, detail := range rec.Details {
		switch detail.Kind {
		case DetailParameterChanged:
			paramChanged++
		case DetailReturnTypeChanged:
			returnChanged++
			if detail.From != "i32" || detail.To != "i64" {
				t.Errorf("return detail = %+v", detail)
			}
		default:
			t.Errorf("unexpected detail %+v", detail)
		}
	}
	if paramChanged != 2 || returnChanged != 1 {
		t.Fatalf("details = %+v, want two parameter_changed and one return_type_changed", rec.Details)
	}
	if rec.Details[0].Field != "a" || rec.Details[1].Field != "b" {
		t.Errorf("parameter fields = %q, %q", rec.Details[0].Field, rec.Details[1].Field)
	}
}

func TestDiffAddedAndRemoved(t *testing.T) {
	d := newTestDiffer(t)
	before := []byte("def old(x):\n    return x\n\ndef kept(y):\n    return y\n")
	current := []byte("def kept(y):\n    return y\n\ndef fresh(z):\n    return z\n")

	records, err := d.Diff("m.py", before, current, "python")
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %+v", records)
	}
	if records[0].ChangeType != ChangeRemoved || records[0].Name != "old" {
		t.Errorf("first record = %+v, want removal of old", records[0])
	}
	if records[1].ChangeType != ChangeAdded || records[1].Name != "fresh" {
		t.Errorf("second record = %+v, want addition of fresh", records[1])
	}
}

func TestDiffBodyChanged(t *testing.T) {
	d := newTestDiffer(t)
	before := []byte("package m\n\nfunc f(a int) int {\n\treturn a\n}\n")
	current := []byte("package m\n\nfunc f(a int) int {\n\treturn a + 1\n}\n")

	records, err := d.Diff("m.go", before, current, "go")
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(records) != 1 || records[0].ChangeType != ChangeBodyChanged {
		t.Fatalf("records = %+v, want one body change", records)
	}
	if len(records[0].Details) != 0 {
		t.Errorf("body change carries details: %+v", records[0].Details)
	}
}

func TestDiffWhitespaceOnlyIsNoChange(t *testing.T) {
	d := newTestDiffer(t)
	before := []byte("package m\n\nfunc f(a int) int {\n\treturn a\n}\n")
	current := []byte("package m\n\nfunc f(a  int)  int {\n\treturn   a\n}\n")

	records, err := d.Diff("m.go", before, current, "go")
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("whitespace-only edit produced records: %+v", records)
	}
}

func TestDiffParameterAddedRemoved(t *testing.T) {
	d := newTestDiffer(t)
	before := []byte("fn f(a: i32) {}\n")
	current := []byte("fn f(a: i32, b: bool) {}\n")

	records, err := d.Diff("lib.rs", before, current, "rust")
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(records) != 1 || len(records[0].Details) != 1 {
		t.Fatalf("records = %+v", records)
	}
	detail := records[0].Details[0]
	if detail.Kind != DetailParameterAdded || detail.Field != "b" || detail.To != "b: bool" {
		t.Errorf("detail = %+v", detail)
	}

	records, err = d.Diff("lib.rs", current, before, "rust")
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(records) != 1 || len(records[0].Details) != 1 {
		t.Fatalf("reverse records = %+v", records)
	}
	detail = records[0].Details[0]
	if detail.Kind != DetailParameterRemoved || detail.Field != "b" {
		t.Errorf("reverse detail = %+v", detail)
	}
}

func TestDiffMatchesMembersByContainer(t *testing.T) {
	d := newTestDiffer(t)
	before := []byte(`class A:
    def run(self):
        pass

class B:
    def run(self):
        pass
`)
	current := []byte(`class A:
    def run(self):
        pass

class B:
    def run(self, fast):
        pass
`)

	records, err := d.Diff("m.py", before, current, "python")
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %+v, want only B.run", records)
	}
	if records[0].Container != "B" || records[0].Name != "run" {
		t.Errorf("record = %+v", records[0])
	}
}

func TestSplitParametersNested(t *testing.T) {
	params := splitParameters("f: fn(i32, i32) -> i32, m: HashMap<String, Vec<u8>>, s: &str")
	if len(params) != 3 {
		t.Fatalf("params = %v", params)
	}
	if params[1] != "m: HashMap<String, Vec<u8>>" {
		t.Errorf("nested generic split wrong: %q", params[1])
	}
}

func TestReturnTypeExtraction(t *testing.T) {
	cases := []struct {
		signature string
		name      string
		want      string
	}{
		{"fn add(a: i32) -> i32", "add", "i32"},
		{"func f(a int) int", "f", "int"},
		{"func f(a int) (int, error)", "f", "(int, error)"},
		{"func (s *Store) Get(key string) ([]byte, error)", "Get", "([]byte, error)"},
		{"get(key: string): string", "get", "string"},
		{"def f(x)", "f", ""},
	}
	for _, tc := range cases {
		if got := returnType(tc.signature, tc.name); got != tc.want {
			t.Errorf("returnType(%q) = %q, want %q", tc.signature, got, tc.want)
		}
	}
}

func TestParameterStartSkipsReceiver(t *testing.T) {
	cases := []struct {
		signature string
		name      string
		want      string
	}{
		{"func (s *S) Add(a int) int", "Add", "a int"},
		{"func (s *S) Add[T any](a T) T", "Add", "a T"},
		{"func Add(a int) int", "Add", "a int"},
		{"fn add(a: i32) -> i32", "add", "a: i32"},
		{"def run(self, fast)", "run", "self, fast"},
	}
	for _, tc := range cases {
		if got := parameterList(tc.signature, tc.name); got != tc.want {
			t.Errorf("parameterList(%q, %q) = %q, want %q", tc.signature, tc.name, got, tc.want)
		}
	}
}

func TestDiffGoMethodParameterDetails(t *testing.T) {
	d := newTestDiffer(t)
	before := []byte(`package calc

type S struct{}

func (s *S) Add(a int) int {
	return a
}
`)
	current := []byte(`package calc

type S struct{}

func (s *S) Add(a int, b int) int {
	return a + b
}
`)

	records, err := d.Diff("calc.go", before, current, "go")
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(records) != 1 || records[0].ChangeType != ChangeSignatureChanged {
		t.Fatalf("records = %+v", records)
	}
	if len(records[0].Details) != 1 {
		t.Fatalf("details = %+v", records[0].Details)
	}
	detail := records[0].Details[0]
	if detail.Kind != DetailParameterAdded || detail.Field != "b" {
		t.Errorf("detail = %+v", detail)
	}
	for _, det := range records[0].Details {
		if det.Kind == DetailReturnTypeChanged {
			t.Errorf("unchanged return type reported: %+v", det)
		}
	}
}
