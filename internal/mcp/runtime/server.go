package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"strata/internal/core/config"
	domainerrors "strata/internal/core/errors"
	"strata/internal/core/ports"
	"strata/internal/mcp/contracts"
	"strata/internal/mcp/registry"
	"strata/internal/mcp/tools/diff"
	"strata/internal/mcp/tools/impact"
	"strata/internal/mcp/tools/scope"
	"strata/internal/mcp/tools/shape"
	"strata/internal/mcp/tools/system"
	"strata/internal/mcp/tools/usage"
	"strata/internal/mcp/transport"
	"strata/internal/mcp/validate"
)

type Dependencies struct {
	Analysis   ports.AnalysisService
	Audit      ports.AuditStore
	Logger     *slog.Logger
	ConfigPath string
}

type AppDeps = Dependencies

type Server struct {
	cfg       *config.Config
	deps      Dependencies
	registry  *registry.Registry
	transport transport.Adapter
	allowlist OperationAllowlist
	toolName  string

	mu      sync.Mutex
	running bool
}

func New(cfg *config.Config, deps Dependencies, reg *registry.Registry, adapter transport.Adapter, toolName string, allowlist OperationAllowlist) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Analysis == nil {
		return nil, fmt.Errorf("analysis service dependency is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if reg == nil {
		reg = registry.New()
	}
	if adapter == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if strings.TrimSpace(toolName) == "" {
		toolName = contracts.ToolNameStrata
	}

	return &Server{
		cfg:       cfg,
		deps:      deps,
		registry:  reg,
		transport: adapter,
		allowlist: allowlist,
		toolName:  toolName,
	}, nil
}

func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	}
	s.running = true
	s.mu.Unlock()

	s.deps.Logger.Info("mcp runtime active", "transport", s.cfg.MCP.Transport, "tool", s.toolName)

	if err := s.registerDefaultTool(); err != nil {
		return err
	}

	err := s.transport.Start(ctx, s.handleToolCall)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	return err
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stopErr error
	if s.running {
		stopErr = s.transport.Stop()
	}
	if s.deps.Audit != nil {
		if err := s.deps.Audit.Close(); err != nil && stopErr == nil {
			stopErr = err
		}
	}
	return stopErr
}

func (s *Server) Run(ctx context.Context) error {
	return s.Start(ctx)
}

func (s *Server) registerDefaultTool() error {
	if _, ok := s.registry.HandlerFor(s.toolName); ok {
		return nil
	}
	return s.registry.Register(s.toolName, func(ctx context.Context, input any) (any, error) {
		raw, ok := input.(map[string]any)
		if !ok {
			return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "tool args must be an object"}
		}
		return s.dispatchOperation(ctx, raw)
	})
}

func (s *Server) handleToolCall(ctx context.Context, tool string, raw map[string]any) (any, error) {
	if strings.TrimSpace(tool) == "" {
		return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "tool is required"}
	}
	if !strings.EqualFold(tool, s.toolName) {
		return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("unsupported tool: %s", tool)}
	}

	handler, ok := s.registry.HandlerFor(s.toolName)
	if !ok {
		return nil, contracts.ToolError{Code: contracts.ErrorUnavailable, Message: "tool handler not registered"}
	}

	timeout := s.cfg.MCP.RequestTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := handler(ctx, raw)
	if err != nil {
		return nil, toToolError(err)
	}
	return out, nil
}

func (s *Server) dispatchOperation(ctx context.Context, raw map[string]any) (any, error) {
	operation, input, err := validate.ParseToolArgs(s.toolName, raw)
	if err != nil {
		return nil, err
	}
	if !s.allowlist.Allows(operation) {
		return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("operation not allowlisted: %s", operation)}
	}

	budget := s.cfg.Budget.DefaultMaxTokens
	start := time.Now()
	switch operation {
	case contracts.OperationShapeExtract:
		in := input.(contracts.ShapeExtractInput)
		out, err := shape.HandleExtract(ctx, s.deps.Analysis, in, budget)
		s.recordAudit(operation, in.Path, start, out, err)
		return wrapToolResult(operation, out), err
	case contracts.OperationShapeMap:
		in := input.(contracts.ShapeMapInput)
		out, err := shape.HandleMap(ctx, s.deps.Analysis, in, budget)
		s.recordAudit(operation, in.Path, start, out, err)
		return wrapToolResult(operation, out), err
	case contracts.OperationDiffStructural:
		in := input.(contracts.DiffStructuralInput)
		out, err := diff.HandleStructural(ctx, s.deps.Analysis, in, budget)
		s.recordAudit(operation, in.Path, start, out, err)
		return wrapToolResult(operation, out), err
	case contracts.OperationUsageFind:
		in := input.(contracts.UsageFindInput)
		out, err := usage.HandleFind(ctx, s.deps.Analysis, in, budget)
		s.recordAudit(operation, in.SearchRoot, start, out, err)
		return wrapToolResult(operation, out), err
	case contracts.OperationImpactAffected:
		in := input.(contracts.ImpactAffectedInput)
		out, err := impact.HandleAffected(ctx, s.deps.Analysis, in, budget)
		s.recordAudit(operation, in.Path, start, out, err)
		return wrapToolResult(operation, out), err
	case contracts.OperationScopeAtPosition:
		in := input.(contracts.ScopeAtPositionInput)
		out, err := scope.HandleAtPosition(ctx, s.deps.Analysis, in)
		s.recordAudit(operation, in.Path, start, out, err)
		return wrapToolResult(operation, out), err
	case contracts.OperationSystemHealth:
		out, err := system.HandleHealth(ctx, s.deps.Analysis)
		return wrapToolResult(operation, out), err
	case contracts.OperationSystemLanguages:
		out, err := system.HandleLanguages(ctx, s.deps.Analysis)
		return wrapToolResult(operation, out), err
	case contracts.OperationSystemAudit:
		out, err := system.HandleAuditRecent(ctx, s.deps.Audit, input.(contracts.SystemAuditRecentInput))
		return wrapToolResult(operation, out), err
	default:
		return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("unsupported operation: %s", operation)}
	}
}

// recordAudit persists one entry per completed analysis operation.
// The row count and truncation flag come from the encoded payload, so
// the audit trail reflects what the caller actually received.
func (s *Server) recordAudit(operation contracts.OperationID, path string, start time.Time, out any, err error) {
	if s.deps.Audit == nil || err != nil {
		return
	}
	rows, truncated := payloadCounts(out)
	entry := ports.AuditEntry{
		ID:        uuid.NewString(),
		Operation: string(operation),
		Path:      path,
		Duration:  time.Since(start),
		RowCount:  rows,
		Truncated: truncated,
		CreatedAt: time.Now().UTC(),
	}
	if recordErr := s.deps.Audit.Record(context.Background(), entry); recordErr != nil {
		s.deps.Logger.Warn("audit record failed", "operation", operation, "error", recordErr)
	}
}

func payloadCounts(out any) (rows int, truncated bool) {
	switch v := out.(type) {
	case contracts.ShapeExtractOutput:
		return v.Symbols.RowCount, v.Symbols.Truncated
	case contracts.ShapeMapOutput:
		for _, file := range v.Files {
			rows += file.Symbols.RowCount
		}
		return rows, v.Truncated
	case contracts.DiffStructuralOutput:
		return v.Changes.RowCount, v.Changes.Truncated
	case contracts.UsageFindOutput:
		return v.Usages.RowCount, v.Usages.Truncated
	case contracts.ImpactAffectedOutput:
		return v.Affected.RowCount, v.Affected.Truncated
	case contracts.ScopeAtPositionOutput:
		return len(v.Chain), false
	}
	return 0, false
}

func wrapToolResult(operation contracts.OperationID, payload any) any {
	return map[string]any{
		"version":   contracts.ContractVersion,
		"operation": operation,
		"result":    payload,
	}
}

func toToolError(err error) error {
	var toolErr contracts.ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return contracts.ToolError{Code: contracts.ErrorUnavailable, Message: "request timed out"}
	}

	var domainErr *domainerrors.DomainError
	if errors.As(err, &domainErr) {
		code := contracts.ErrorInternal
		switch domainErr.Code {
		case domainerrors.CodeNotFound:
			code = contracts.ErrorNotFound
		case domainerrors.CodeUnsupportedLanguage, domainerrors.CodeMalformedSource, domainerrors.CodeValidationError:
			code = contracts.ErrorInvalidArgument
		case domainerrors.CodeDiffUnavailable:
			code = contracts.ErrorUnavailable
		}
		details := map[string]any{"domain_code": string(domainErr.Code)}
		for k, v := range domainErr.Context {
			details[k] = v
		}
		return contracts.ToolError{Code: code, Message: domainErr.Message, Details: details}
	}

	return contracts.ToolError{Code: contracts.ErrorInternal, Message: err.Error()}
}
