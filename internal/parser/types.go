package parser

// Language identifiers used across the analysis packages. They match the
// grammar registry keys, not file extensions.
const (
	LangGo         = "go"
	LangPython     = "python"
	LangRust       = "rust"
	LangJava       = "java"
	LangJavaScript = "javascript"
	LangTypeScript = "typescript"
	LangTSX        = "tsx"
	LangHTML       = "html"
	LangCSS        = "css"
)
