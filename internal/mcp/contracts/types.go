package contracts

const (
	ToolNameStrata  = "strata"
	ContractVersion = "v1"
)

type OperationID string

const (
	OperationShapeExtract    OperationID = "shape.extract"
	OperationShapeMap        OperationID = "shape.map"
	OperationDiffStructural  OperationID = "diff.structural"
	OperationUsageFind       OperationID = "usage.find"
	OperationImpactAffected  OperationID = "impact.affected"
	OperationScopeAtPosition OperationID = "scope.at_position"
	OperationSystemHealth    OperationID = "system.health"
	OperationSystemLanguages OperationID = "system.languages"
	OperationSystemAudit     OperationID = "system.audit_recent"
)

type OperationDescriptor struct {
	ID          OperationID    `json:"id"`
	Summary     string         `json:"summary,omitempty"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// EncodedBlock carries a budgeted pipe-delimited row payload. Header
// names the column layout; Truncated is set when rows were dropped to
// stay under the token budget.
type EncodedBlock struct {
	Header    string `json:"header"`
	Rows      string `json:"rows"`
	RowCount  int    `json:"row_count"`
	TotalRows int    `json:"total_rows"`
	Truncated bool   `json:"truncated"`
}

type ShapeExtractInput struct {
	Path                string `json:"path"`
	IncludeBody         bool   `json:"include_body,omitempty"`
	IncludeDependencies bool   `json:"include_dependencies,omitempty"`
	MaxTokens           int    `json:"max_tokens,omitempty"`
}

type DependencyShape struct {
	Path     string       `json:"path"`
	Language string       `json:"language"`
	Symbols  EncodedBlock `json:"symbols"`
}

type ShapeExtractOutput struct {
	Path         string            `json:"path"`
	Language     string            `json:"language"`
	SymbolCount  int               `json:"symbol_count"`
	Symbols      EncodedBlock      `json:"symbols"`
	Dependencies []DependencyShape `json:"dependencies,omitempty"`
}

// Detail levels for shape.map, from cheapest to fullest.
const (
	MapDetailMinimal    = "minimal"
	MapDetailSignatures = "signatures"
	MapDetailFull       = "full"
)

type ShapeMapInput struct {
	Path      string `json:"path"`
	Pattern   string `json:"pattern,omitempty"`
	Detail    string `json:"detail,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

type FileOutline struct {
	Path        string       `json:"path"`
	Language    string       `json:"language"`
	SymbolCount int          `json:"symbol_count"`
	Symbols     EncodedBlock `json:"symbols"`
}

// ShapeMapOutput lists per-file outlines. Truncated is set when whole
// files were dropped to stay under the token budget; the admitted
// files themselves are never cut mid-listing.
type ShapeMapOutput struct {
	Path      string        `json:"path"`
	Detail    string        `json:"detail"`
	FileCount int           `json:"file_count"`
	Files     []FileOutline `json:"files"`
	Truncated bool          `json:"truncated"`
}

type DiffStructuralInput struct {
	Path      string `json:"path"`
	Revision  string `json:"revision"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

type DiffStructuralOutput struct {
	Path        string       `json:"path"`
	Revision    string       `json:"revision"`
	NoChange    bool         `json:"no_change"`
	ChangeCount int          `json:"change_count"`
	Changes     EncodedBlock `json:"changes"`
}

type UsageFindInput struct {
	Symbol        string `json:"symbol"`
	SearchRoot    string `json:"search_root,omitempty"`
	ContextRadius int    `json:"context_radius,omitempty"`
	MaxTokens     int    `json:"max_tokens,omitempty"`
}

type UsageFindOutput struct {
	Symbol     string       `json:"symbol"`
	UsageCount int          `json:"usage_count"`
	Usages     EncodedBlock `json:"usages"`
}

type ImpactAffectedInput struct {
	Path       string `json:"path"`
	Revision   string `json:"revision"`
	SearchRoot string `json:"search_root,omitempty"`
	MaxTokens  int    `json:"max_tokens,omitempty"`
}

type ImpactAffectedOutput struct {
	Path          string       `json:"path"`
	Revision      string       `json:"revision"`
	AffectedCount int          `json:"affected_count"`
	HighCount     int          `json:"high_count"`
	MediumCount   int          `json:"medium_count"`
	LowCount      int          `json:"low_count"`
	Affected      EncodedBlock `json:"affected"`
}

type ScopeAtPositionInput struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

type ScopeFrame struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

type ScopeAtPositionOutput struct {
	Path   string       `json:"path"`
	Line   int          `json:"line"`
	Column int          `json:"column"`
	Chain  []ScopeFrame `json:"chain"`
}

type SystemHealthInput struct{}

type SystemHealthOutput struct {
	Status        string   `json:"status"`
	Version       string   `json:"version"`
	Languages     []string `json:"languages"`
	UptimeSeconds int64    `json:"uptime_seconds"`
}

type SystemLanguagesInput struct{}

type SystemLanguagesOutput struct {
	Languages []string `json:"languages"`
}

type SystemAuditRecentInput struct {
	Limit int `json:"limit,omitempty"`
}

type AuditRecord struct {
	ID         string `json:"id"`
	Operation  string `json:"operation"`
	Path       string `json:"path,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	RowCount   int    `json:"row_count"`
	Truncated  bool   `json:"truncated"`
	CreatedAt  string `json:"created_at"`
}

type SystemAuditRecentOutput struct {
	Entries []AuditRecord `json:"entries"`
}

type ToolError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e ToolError) Error() string {
	return e.Message
}

const (
	ErrorInvalidArgument = "invalid_argument"
	ErrorNotFound        = "not_found"
	ErrorInternal        = "internal"
	ErrorUnavailable     = "unavailable"
)
