package parser

import (
	"sort"

	"strata/internal/shared/util"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// GrammarLoader holds the compiled-in tree-sitter grammars for every
// enabled language in the registry.
type GrammarLoader struct {
	languages map[string]*sitter.Language
	registry  map[string]LanguageSpec
}

func NewGrammarLoader() (*GrammarLoader, error) {
	registry, err := BuildLanguageRegistry(nil)
	if err != nil {
		return nil, err
	}
	return NewGrammarLoaderWithRegistry(registry)
}

func NewGrammarLoaderWithRegistry(registry map[string]LanguageSpec) (*GrammarLoader, error) {
	if registry == nil {
		var err error
		registry, err = BuildLanguageRegistry(nil)
		if err != nil {
			return nil, err
		}
	}

	gl := &GrammarLoader{
		languages: make(map[string]*sitter.Language),
		registry:  cloneLanguageRegistry(registry),
	}

	for _, langID := range util.SortedStringKeys(gl.registry) {
		spec := gl.registry[langID]
		if !spec.Enabled {
			continue
		}
		switch langID {
		case LangCSS:
			gl.languages[LangCSS] = sitter.NewLanguage(tree_sitter_css.Language())
		case LangGo:
			gl.languages[LangGo] = sitter.NewLanguage(tree_sitter_go.Language())
		case LangHTML:
			gl.languages[LangHTML] = sitter.NewLanguage(tree_sitter_html.Language())
		case LangJava:
			gl.languages[LangJava] = sitter.NewLanguage(tree_sitter_java.Language())
		case LangJavaScript:
			gl.languages[LangJavaScript] = sitter.NewLanguage(tree_sitter_javascript.Language())
		case LangPython:
			gl.languages[LangPython] = sitter.NewLanguage(tree_sitter_python.Language())
		case LangRust:
			gl.languages[LangRust] = sitter.NewLanguage(tree_sitter_rust.Language())
		case LangTSX:
			gl.languages[LangTSX] = sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
		case LangTypeScript:
			gl.languages[LangTypeScript] = sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
		}
	}

	return gl, nil
}

func (gl *GrammarLoader) Grammar(language string) (*sitter.Language, bool) {
	lang, ok := gl.languages[language]
	return lang, ok
}

func (gl *GrammarLoader) LanguageRegistry() map[string]LanguageSpec {
	return cloneLanguageRegistry(gl.registry)
}

func (gl *GrammarLoader) SupportedExtensions() []string {
	set := make(map[string]bool)
	for _, spec := range gl.registry {
		if !spec.Enabled {
			continue
		}
		for _, ext := range spec.Extensions {
			set[ext] = true
		}
	}
	extensions := make([]string, 0, len(set))
	for ext := range set {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}
