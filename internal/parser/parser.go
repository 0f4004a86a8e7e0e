package parser

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"strata/internal/core/errors"
	"strata/internal/shared/util"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Parser detects a file's language and parses it into a syntax tree.
// Trees returned from Parse hold cgo-backed resources; callers must
// Close them.
type Parser struct {
	loader         *GrammarLoader
	extensions     map[string]string
	filenames      map[string]string
	testFileSuffix []string
}

func NewParser(loader *GrammarLoader) *Parser {
	p := &Parser{
		loader:     loader,
		extensions: make(map[string]string),
		filenames:  make(map[string]string),
	}
	for lang, spec := range loader.LanguageRegistry() {
		if !spec.Enabled {
			continue
		}
		for _, ext := range spec.Extensions {
			p.extensions[strings.ToLower(ext)] = lang
		}
		for _, name := range spec.Filenames {
			p.filenames[strings.ToLower(path.Base(name))] = lang
		}
		p.testFileSuffix = append(p.testFileSuffix, spec.TestFileSuffixes...)
	}
	sort.Strings(p.testFileSuffix)
	return p
}

// Parse builds a syntax tree for content in the given language. A tree
// containing error nodes is still returned: callers extract what they
// can from the well-formed regions.
func (p *Parser) Parse(language string, content []byte) (*sitter.Tree, error) {
	grammar, ok := p.loader.Grammar(language)
	if !ok {
		return nil, errors.New(errors.CodeUnsupportedLanguage, fmt.Sprintf("no grammar for language: %s", language))
	}

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(grammar); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("set grammar: %s", language))
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeMalformedSource, "parse produced no tree")
	}
	return tree, nil
}

// ParseFile detects the language from the path and parses content.
func (p *Parser) ParseFile(filePath string, content []byte) (*sitter.Tree, string, error) {
	lang := p.DetectLanguage(filePath)
	if lang == "" {
		return nil, "", errors.New(errors.CodeUnsupportedLanguage, fmt.Sprintf("unsupported file: %s", filepath.Base(filePath)))
	}
	tree, err := p.Parse(lang, content)
	if err != nil {
		return nil, lang, err
	}
	return tree, lang, nil
}

func (p *Parser) DetectLanguage(filePath string) string {
	base := strings.ToLower(filepath.Base(filePath))
	if lang, ok := p.filenames[base]; ok {
		return lang
	}
	ext := strings.ToLower(filepath.Ext(filePath))
	if lang, ok := p.extensions[ext]; ok {
		return lang
	}
	return ""
}

func (p *Parser) IsSupportedPath(filePath string) bool {
	return p.DetectLanguage(filePath) != ""
}

func (p *Parser) IsTestFile(filePath string) bool {
	base := strings.ToLower(filepath.Base(filePath))
	for _, suffix := range p.testFileSuffix {
		if strings.HasSuffix(base, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}

func (p *Parser) SupportedExtensions() []string {
	return util.SortedStringKeys(p.extensions)
}

// Languages returns the enabled language identifiers, sorted.
func (p *Parser) Languages() []string {
	registry := p.loader.LanguageRegistry()
	out := make([]string, 0, len(registry))
	for id, spec := range registry {
		if spec.Enabled {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// ShapeReady reports whether the language has a declaration table in the
// shape extractor.
func (p *Parser) ShapeReady(language string) bool {
	spec, ok := p.loader.LanguageRegistry()[language]
	return ok && spec.Enabled && spec.ShapeReady
}
