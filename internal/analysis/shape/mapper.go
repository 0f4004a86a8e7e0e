package shape

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"strata/internal/project"
)

// directories never worth outlining, independent of exclude patterns
var outlineSkippedDirs = map[string]bool{
	"node_modules": true,
	"target":       true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
}

// Mapper builds directory-wide outlines: every supported file under a
// root reduced to its FileShape.
type Mapper struct {
	extractor *Extractor
	excludes  []glob.Glob
	logger    *slog.Logger
}

func NewMapper(extractor *Extractor, excludePatterns []string, logger *slog.Logger) (*Mapper, error) {
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
	return &Mapper{extractor: extractor, excludes: excludes, logger: logger}, nil
}

// Map collects the shape of every supported file under root, which may
// be a single file or a directory. A pattern containing a path
// separator or "**" matches the root-relative path, anything else
// matches the basename only. Shapes come back sorted by path, each
// with its Path made relative to projectRoot. Per-file failures are
// logged and skipped, never fatal.
func (m *Mapper) Map(root, projectRoot, pattern string, includeBody bool) ([]*FileShape, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	var matcher glob.Glob
	if pattern != "" {
		if matcher, err = glob.Compile(pattern, '/'); err != nil {
			return nil, err
		}
	}

	var files []string
	if !info.IsDir() {
		files = []string{root}
	} else {
		files = m.scan(root, pattern, matcher)
	}

	shapes := make([]*FileShape, 0, len(files))
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			m.logger.Debug("outline read failed", "path", file, "error", err)
			continue
		}
		fileShape, err := m.extractor.ExtractFile(file, content, Options{IncludeBody: includeBody})
		if err != nil {
			m.logger.Debug("outline extract failed", "path", file, "error", err)
			continue
		}
		fileShape.Path = project.RelPath(projectRoot, file)
		shapes = append(shapes, fileShape)
	}
	return shapes, nil
}

func (m *Mapper) scan(dir, pattern string, matcher glob.Glob) []string {
	var files []string
	walkErr := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := entry.Name()
		if entry.IsDir() {
			if path != dir && (strings.HasPrefix(name, ".") || outlineSkippedDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		if m.excluded(rel) {
			return nil
		}
		if matcher != nil && !matchesPattern(matcher, pattern, rel, name) {
			return nil
		}
		if m.extractor.parser.IsSupportedPath(path) {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		m.logger.Debug("outline scan aborted", "dir", dir, "error", walkErr)
	}
	sort.Strings(files)
	return files
}

func (m *Mapper) excluded(rel string) bool {
	for _, g := range m.excludes {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func matchesPattern(matcher glob.Glob, pattern, rel, base string) bool {
	if strings.Contains(pattern, "/") || strings.Contains(pattern, "**") {
		return matcher.Match(rel)
	}
	return matcher.Match(base)
}
