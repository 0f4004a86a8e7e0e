package deps

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"strata/internal/analysis/shape"
	"strata/internal/core/errors"
	"strata/internal/project"
)

// Resolver maps a file's import symbols onto project files and
// extracts their shapes. Resolution is depth one: dependencies of
// dependencies are not followed. External packages that do not map to
// a file under the project root are skipped silently.
type Resolver struct {
	extractor *shape.Extractor
	readFile  func(string) ([]byte, error)
	logger    *slog.Logger
}

func NewResolver(extractor *shape.Extractor, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		extractor: extractor,
		readFile:  os.ReadFile,
		logger:    logger,
	}
}

// Resolve finds the project-local dependencies of fileShape and
// returns their extracted shapes in first-reference order. filePath
// anchors relative imports, root bounds the search. A dependency whose
// extraction fails is dropped, one bad import never fails the set.
func (r *Resolver) Resolve(fileShape *shape.FileShape, filePath, root string) []shape.FileShape {
	if fileShape == nil {
		return nil
	}
	dir := filepath.Dir(filePath)
	visited := map[string]bool{normalize(filePath): true}
	var out []shape.FileShape

	for _, sym := range fileShape.Symbols {
		if sym.Kind != shape.KindImport {
			continue
		}
		for _, candidate := range r.candidates(fileShape.Language, sym.Name, dir, root) {
			key := normalize(candidate)
			if visited[key] {
				continue
			}
			visited[key] = true
			if !project.Contains(root, candidate) {
				continue
			}
			depShape, ok := r.extract(candidate)
			if !ok {
				continue
			}
			depShape.Path = project.RelPath(root, candidate)
			out = append(out, *depShape)
		}
	}
	return out
}

func (r *Resolver) extract(path string) (*shape.FileShape, bool) {
	depShape, err := r.extractShape(path)
	if err != nil {
		r.logger.Debug("dependency dropped", "path", path, "error", err)
		return nil, false
	}
	return depShape, true
}

func (r *Resolver) extractShape(path string) (*shape.FileShape, error) {
	content, err := r.readFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeResolutionFailure, "cannot read dependency").
			WithContext(errors.CtxPath, path)
	}
	depShape, err := r.extractor.ExtractFile(path, content, shape.Options{})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeResolutionFailure, "dependency extraction failed").
			WithContext(errors.CtxPath, path)
	}
	return depShape, nil
}

// candidates returns the existing files an import name may refer to.
func (r *Resolver) candidates(language, name, dir, root string) []string {
	switch language {
	case "rust":
		return r.rustCandidates(name, dir, root)
	case "python":
		return r.pythonCandidates(name, dir, root)
	case "javascript", "typescript", "tsx":
		return r.scriptCandidates(name, dir)
	case "go":
		return r.goCandidates(name, root)
	default:
		// java and the markup languages resolve through classpaths or
		// bundlers, not the filesystem
		return nil
	}
}

// rustCandidates tries foo.rs then foo/mod.rs for the first local path
// segment. crate:: anchors at src/, std/external crates fall through
// to nothing on disk.
func (r *Resolver) rustCandidates(name, dir, root string) []string {
	segments := strings.Split(name, "::")
	base := dir
	if len(segments) > 1 && (segments[0] == "crate" || segments[0] == "self" || segments[0] == "super") {
		if segments[0] == "crate" {
			base = filepath.Join(root, "src")
			if _, err := os.Stat(base); err != nil {
				base = root
			}
		}
		if segments[0] == "super" {
			base = filepath.Dir(dir)
		}
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return nil
	}
	head := segments[0]
	return existing(
		filepath.Join(base, head+".rs"),
		filepath.Join(base, head, "mod.rs"),
	)
}

// pythonCandidates maps a dotted module to x/y.py or x/y/__init__.py,
// anchored first at the importing file's directory, then at the root.
func (r *Resolver) pythonCandidates(name, dir, root string) []string {
	trimmed := strings.TrimLeft(name, ".")
	if trimmed == "" {
		return nil
	}
	rel := filepath.Join(strings.Split(trimmed, ".")...)
	var paths []string
	for _, base := range []string{dir, root} {
		paths = append(paths,
			filepath.Join(base, rel+".py"),
			filepath.Join(base, rel, "__init__.py"),
		)
	}
	return existing(paths...)
}

var scriptExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}

// scriptCandidates resolves relative specifiers only, probing the
// extension list and then index files, the way a bundler would.
func (r *Resolver) scriptCandidates(name, dir string) []string {
	if !strings.HasPrefix(name, "./") && !strings.HasPrefix(name, "../") {
		return nil
	}
	base := filepath.Join(dir, filepath.FromSlash(name))
	var paths []string
	if filepath.Ext(base) != "" {
		paths = append(paths, base)
	}
	for _, ext := range scriptExtensions {
		paths = append(paths, base+ext)
	}
	for _, ext := range scriptExtensions {
		paths = append(paths, filepath.Join(base, "index"+ext))
	}
	if found := existing(paths...); len(found) > 0 {
		return found[:1]
	}
	return nil
}

// goCandidates resolves imports under the module path declared in the
// root go.mod to the package directory's non-test sources.
func (r *Resolver) goCandidates(name, root string) []string {
	modulePath := goModulePath(filepath.Join(root, "go.mod"))
	if modulePath == "" {
		return nil
	}
	var dir string
	switch {
	case name == modulePath:
		dir = root
	case strings.HasPrefix(name, modulePath+"/"):
		dir = filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(name, modulePath+"/")))
	default:
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, entry := range entries {
		fileName := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(fileName, ".go") || strings.HasSuffix(fileName, "_test.go") {
			continue
		}
		paths = append(paths, filepath.Join(dir, fileName))
	}
	sort.Strings(paths)
	return paths
}

func goModulePath(goModPath string) string {
	f, err := os.Open(goModPath)
	if err != nil {
		return ""
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if rest, ok := strings.CutPrefix(line, "module "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

func existing(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			out = append(out, p)
		}
	}
	return out
}

func normalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
