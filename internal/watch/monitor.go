package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"strata/internal/analysis/diff"
	"strata/internal/parser"
)

// Monitor reports structural changes for edited files. It keeps the
// last seen source of every supported file and diffs new content
// against that snapshot whenever the watcher fires, so a save that
// only touches whitespace or comments stays silent.
type Monitor struct {
	parser  *parser.Parser
	differ  *diff.Differ
	watcher *Watcher
	logger  *slog.Logger

	snapshots map[string][]byte
	snapMu    sync.Mutex
}

func NewMonitor(p *parser.Parser, differ *diff.Differ, debounce time.Duration, excludeDirs, excludeFiles []string, logger *slog.Logger) (*Monitor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Monitor{
		parser:    p,
		differ:    differ,
		logger:    logger,
		snapshots: make(map[string][]byte),
	}

	w, err := NewWatcher(debounce, excludeDirs, excludeFiles, m.onBatch)
	if err != nil {
		return nil, err
	}
	m.watcher = w
	return m, nil
}

// Start seeds snapshots for every supported file under paths, begins
// watching, and blocks until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context, paths []string) error {
	for _, root := range paths {
		if err := m.seed(root); err != nil {
			return err
		}
	}

	if err := m.watcher.Watch(paths); err != nil {
		return err
	}

	m.logger.Info("watch mode active", "paths", paths)
	<-ctx.Done()
	return m.watcher.Close()
}

func (m *Monitor) seed(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if m.watcher.excludedDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if m.watcher.excludedFile(path) || !m.supported(path) {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		m.snapMu.Lock()
		m.snapshots[path] = content
		m.snapMu.Unlock()
		return nil
	})
}

func (m *Monitor) supported(path string) bool {
	language := m.parser.DetectLanguage(path)
	return language != "" && m.parser.ShapeReady(language)
}

func (m *Monitor) onBatch(paths []string) {
	sort.Strings(paths)
	for _, path := range paths {
		m.checkFile(path)
	}
}

func (m *Monitor) checkFile(path string) {
	if !m.supported(path) {
		return
	}
	language := m.parser.DetectLanguage(path)

	m.snapMu.Lock()
	before := m.snapshots[path]
	m.snapMu.Unlock()

	current, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("watch read failed", "path", path, "error", err)
			return
		}
		// Deleted file: diff the snapshot against empty content so
		// every symbol reports as removed.
		current = nil
	}

	if before == nil && current == nil {
		return
	}

	changes, err := m.differ.Diff(path, before, current, language)
	if err != nil {
		m.logger.Warn("watch diff failed", "path", path, "error", err)
		return
	}

	m.snapMu.Lock()
	if current == nil {
		delete(m.snapshots, path)
	} else {
		m.snapshots[path] = current
	}
	m.snapMu.Unlock()

	if len(changes) == 0 {
		return
	}

	for _, change := range changes {
		m.logger.Info("structural change",
			"path", path,
			"change", string(change.ChangeType),
			"kind", string(change.SymbolKind),
			"symbol", change.Name,
			"container", change.Container,
			"line", change.Line,
		)
	}
}

// Snapshot returns the last seen content for path, for tests and
// diagnostics.
func (m *Monitor) Snapshot(path string) ([]byte, bool) {
	m.snapMu.Lock()
	defer m.snapMu.Unlock()
	content, ok := m.snapshots[path]
	return content, ok
}
