package project

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindRootByMarker(t *testing.T) {
	tmp := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp, "go.mod"), []byte("module demo\n"), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(tmp, "internal", "pkg")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(nested, "thing.go")
	if err := os.WriteFile(file, []byte("package pkg\n"), 0644); err != nil {
		t.Fatal(err)
	}

	root, ok := FindRoot(file)
	if !ok {
		t.Fatal("expected a root")
	}
	if root != tmp {
		t.Errorf("expected root %s, got %s", tmp, root)
	}
}

func TestFindRootNearestWins(t *testing.T) {
	tmp := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp, "Cargo.toml"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(tmp, "frontend")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "package.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	root, ok := FindRoot(filepath.Join(sub, "app.ts"))
	if !ok {
		t.Fatal("expected a root")
	}
	if root != sub {
		t.Errorf("nearest marker should win: expected %s, got %s", sub, root)
	}
}

func TestRelPath(t *testing.T) {
	root := filepath.FromSlash("/work/proj")

	cases := []struct {
		path string
		want string
	}{
		{filepath.FromSlash("/work/proj/src/main.rs"), "src/main.rs"},
		{"src/main.rs", "src/main.rs"},
		{filepath.FromSlash("/elsewhere/file.py"), "/elsewhere/file.py"},
	}
	for _, tc := range cases {
		if got := RelPath(root, tc.path); got != tc.want {
			t.Errorf("RelPath(%q): want %q, got %q", tc.path, tc.want, got)
		}
	}
}

func TestContains(t *testing.T) {
	root := filepath.FromSlash("/work/proj")
	if !Contains(root, filepath.FromSlash("/work/proj/a/b.go")) {
		t.Error("expected path under root to be contained")
	}
	if Contains(root, filepath.FromSlash("/work/other/b.go")) {
		t.Error("expected sibling tree to be outside root")
	}
	if !Contains(root, root) {
		t.Error("root contains itself")
	}
}
