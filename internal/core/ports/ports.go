package ports

import (
	"context"
	"time"

	"strata/internal/analysis/diff"
	"strata/internal/analysis/impact"
	"strata/internal/analysis/shape"
	"strata/internal/analysis/usage"
)

// FileReader abstracts current-source retrieval.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// RevisionProvider reads a file's content as of a named prior
// revision, typically from version control.
type RevisionProvider interface {
	ReadAt(ctx context.Context, path, revision string) ([]byte, error)
}

// ShapeRequest asks for one file's symbol listing.
type ShapeRequest struct {
	Path                string
	IncludeBody         bool
	IncludeDependencies bool
}

// MapRequest asks for an outline of every supported file under Root,
// which may be a single file or a directory. Pattern optionally
// filters files by glob.
type MapRequest struct {
	Root        string
	Pattern     string
	IncludeBody bool
}

// DiffRequest compares a file's working-tree content against a prior
// revision.
type DiffRequest struct {
	Path     string
	Revision string
}

// DiffResult distinguishes "no structural change" from an empty
// answer for other reasons.
type DiffResult struct {
	Changes  []diff.ChangeRecord
	NoChange bool
}

type UsageRequest struct {
	Symbol        string
	SearchRoot    string
	ContextRadius int
}

// ImpactRequest runs the diff for Path against Revision, then locates
// and risk-classifies usages of every changed symbol under SearchRoot.
type ImpactRequest struct {
	Path       string
	Revision   string
	SearchRoot string
}

type ScopeRequest struct {
	Path   string
	Line   int
	Column int
}

type HealthStatus struct {
	Status    string
	Version   string
	Languages []string
	Uptime    time.Duration
}

// AnalysisService is the driving port the transport layer calls into.
type AnalysisService interface {
	ExtractShape(ctx context.Context, req ShapeRequest) (*shape.FileShape, error)
	MapShapes(ctx context.Context, req MapRequest) ([]*shape.FileShape, error)
	DiffStructural(ctx context.Context, req DiffRequest) (DiffResult, error)
	FindUsages(ctx context.Context, req UsageRequest) ([]usage.Usage, error)
	AffectedBy(ctx context.Context, req ImpactRequest) ([]impact.AffectedUsage, error)
	ScopeAt(ctx context.Context, req ScopeRequest) ([]shape.Symbol, error)
	Languages() []string
	Health(ctx context.Context) HealthStatus
}

// AuditEntry is one recorded operation in the optional audit store.
type AuditEntry struct {
	ID        string
	Operation string
	Path      string
	Duration  time.Duration
	RowCount  int
	Truncated bool
	CreatedAt time.Time
}

// AuditStore persists operation audit entries.
type AuditStore interface {
	Record(ctx context.Context, entry AuditEntry) error
	Recent(ctx context.Context, limit int) ([]AuditEntry, error)
	Close() error
}
