package usage

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	sitter "github.com/tree-sitter/go-tree-sitter"

	"strata/internal/analysis/shape"
	"strata/internal/parser"
	"strata/internal/project"
)

type UsageType string

const (
	UsageDefinition    UsageType = "definition"
	UsageCall          UsageType = "call"
	UsageTypeReference UsageType = "type_reference"
	UsageImport        UsageType = "import"
	UsageReference     UsageType = "reference"
)

// Usage is one syntactic occurrence of a name. Line and Column are
// 1-indexed. Classification is by immediate syntactic context, not by
// scope resolution, so shadowed names match too.
type Usage struct {
	File      string    `json:"file"`
	Line      int       `json:"line"`
	Column    int       `json:"column"`
	UsageType UsageType `json:"usage_type"`
	Context   string    `json:"context,omitempty"`
}

// directories never worth scanning, independent of exclude patterns
var skippedDirs = map[string]bool{
	"node_modules": true,
	"target":       true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
}

type Locator struct {
	parser   *parser.Parser
	excludes []glob.Glob
	logger   *slog.Logger
}

func NewLocator(p *parser.Parser, excludePatterns []string, logger *slog.Logger) (*Locator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	excludes := make([]glob.Glob, 0, len(excludePatterns))
	for _, pattern := range excludePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		excludes = append(excludes, g)
	}
	return &Locator{parser: p, excludes: excludes, logger: logger}, nil
}

// Find locates every occurrence of symbol under searchRoot, which may
// be a single file or a directory. contextRadius > 0 attaches that
// many lines around each occurrence. Per-file failures are collected
// as absences, never as errors.
func (l *Locator) Find(symbol, searchRoot string, contextRadius int) ([]Usage, error) {
	info, err := os.Stat(searchRoot)
	if err != nil {
		return nil, err
	}
	root := project.RootFor(searchRoot)

	var files []string
	if !info.IsDir() {
		files = []string{searchRoot}
	} else {
		files = l.scanFiles(searchRoot)
	}

	var usages []Usage
	for _, file := range files {
		usages = append(usages, l.findInFile(symbol, file, root, contextRadius)...)
	}
	return usages, nil
}

func (l *Locator) scanFiles(dir string) []string {
	var files []string
	walkErr := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := entry.Name()
		if entry.IsDir() {
			if path != dir && (strings.HasPrefix(name, ".") || skippedDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		if l.excluded(filepath.ToSlash(rel)) {
			return nil
		}
		if l.parser.IsSupportedPath(path) {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		l.logger.Debug("usage scan aborted", "dir", dir, "error", walkErr)
	}
	sort.Strings(files)
	return files
}

func (l *Locator) excluded(rel string) bool {
	for _, g := range l.excludes {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func (l *Locator) findInFile(symbol, path, root string, contextRadius int) []Usage {
	content, err := os.ReadFile(path)
	if err != nil {
		l.logger.Debug("usage read failed", "path", path, "error", err)
		return nil
	}
	tree, language, err := l.parser.ParseFile(path, content)
	if err != nil {
		l.logger.Debug("usage parse failed", "path", path, "error", err)
		return nil
	}
	defer tree.Close()

	var lines []string
	if contextRadius > 0 {
		lines = strings.Split(string(content), "\n")
	}

	relPath := project.RelPath(root, path)
	var usages []Usage
	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		if isIdentifierKind(node.Kind()) && string(content[node.StartByte():node.EndByte()]) == symbol {
			u := Usage{
				File:      relPath,
				Line:      int(node.StartPosition().Row) + 1,
				Column:    int(node.StartPosition().Column) + 1,
				UsageType: classify(language, node),
			}
			if contextRadius > 0 {
				u.Context = contextAround(lines, u.Line, contextRadius)
			}
			usages = append(usages, u)
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			visit(node.Child(i))
		}
	}
	visit(tree.RootNode())
	return usages
}

func isIdentifierKind(kind string) bool {
	return kind == "identifier" || strings.HasSuffix(kind, "_identifier")
}

// classify picks the most specific role: the name slot of a
// declaration beats everything, then import position, then callee
// position, then type position.
func classify(language string, node *sitter.Node) UsageType {
	parent := node.Parent()
	if parent == nil {
		return UsageReference
	}

	if isDefinitionSlot(language, node, parent) {
		return UsageDefinition
	}
	if insideImport(node) {
		return UsageImport
	}
	if isCallee(node, parent) {
		return UsageCall
	}
	if isTypePosition(node, parent) {
		return UsageTypeReference
	}
	return UsageReference
}

func isDefinitionSlot(language string, node, parent *sitter.Node) bool {
	if _, ok := shape.KindForNode(language, parent.Kind()); !ok {
		return false
	}
	name := parent.ChildByFieldName("name")
	return name != nil && name.StartByte() == node.StartByte() && name.EndByte() == node.EndByte()
}

func insideImport(node *sitter.Node) bool {
	for anc := node.Parent(); anc != nil; anc = anc.Parent() {
		kind := anc.Kind()
		if strings.Contains(kind, "import") || kind == "use_declaration" {
			return true
		}
	}
	return false
}

var callKinds = map[string]bool{
	"call_expression":   true,
	"call":              true,
	"method_invocation": true,
	"macro_invocation":  true,
}

// isCallee reports whether node names the function being invoked,
// either directly or as the rightmost segment of a member access.
func isCallee(node, parent *sitter.Node) bool {
	target := node
	outer := parent
	switch parent.Kind() {
	case "attribute", "member_expression", "selector_expression", "field_expression", "scoped_identifier", "navigation_expression":
		if outer.Parent() == nil {
			return false
		}
		target = parent
		outer = parent.Parent()
	}
	if !callKinds[outer.Kind()] {
		return false
	}
	for _, field := range []string{"function", "name", "macro"} {
		if f := outer.ChildByFieldName(field); f != nil {
			return f.StartByte() <= target.StartByte() && f.EndByte() >= target.EndByte() &&
				node.EndByte() == f.EndByte()
		}
	}
	return false
}

func isTypePosition(node, parent *sitter.Node) bool {
	if node.Kind() == "type_identifier" {
		return true
	}
	kind := parent.Kind()
	return strings.Contains(kind, "type") || kind == "superclasses" || kind == "class_heritage"
}

func contextAround(lines []string, line, radius int) string {
	start := line - 1 - radius
	if start < 0 {
		start = 0
	}
	end := line + radius
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}
