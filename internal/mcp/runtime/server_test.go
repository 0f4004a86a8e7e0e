package runtime

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"strata/internal/analysis/impact"
	"strata/internal/analysis/shape"
	"strata/internal/analysis/usage"
	"strata/internal/core/config"
	domainerrors "strata/internal/core/errors"
	"strata/internal/core/ports"
	"strata/internal/mcp/contracts"
	"strata/internal/mcp/registry"
	"strata/internal/mcp/transport"
)

type stubAnalysis struct {
	languages []string
	shapeErr  error
}

func (s *stubAnalysis) ExtractShape(_ context.Context, req ports.ShapeRequest) (*shape.FileShape, error) {
	if s.shapeErr != nil {
		return nil, s.shapeErr
	}
	return &shape.FileShape{
		Path:     req.Path,
		Language: "go",
		Symbols: []shape.Symbol{
			{Kind: shape.KindFunction, Name: "main", Signature: "func main()", Range: shape.Range{StartLine: 3, EndLine: 5}},
		},
	}, nil
}

func (s *stubAnalysis) MapShapes(_ context.Context, req ports.MapRequest) ([]*shape.FileShape, error) {
	return []*shape.FileShape{
		{
			Path:     "main.go",
			Language: "go",
			Symbols: []shape.Symbol{
				{Kind: shape.KindFunction, Name: "main", Signature: "func main()", Range: shape.Range{StartLine: 3, EndLine: 5}},
			},
		},
	}, nil
}

func (s *stubAnalysis) DiffStructural(_ context.Context, _ ports.DiffRequest) (ports.DiffResult, error) {
	return ports.DiffResult{NoChange: true}, nil
}

func (s *stubAnalysis) FindUsages(_ context.Context, _ ports.UsageRequest) ([]usage.Usage, error) {
	return nil, nil
}

func (s *stubAnalysis) AffectedBy(_ context.Context, _ ports.ImpactRequest) ([]impact.AffectedUsage, error) {
	return nil, nil
}

func (s *stubAnalysis) ScopeAt(_ context.Context, _ ports.ScopeRequest) ([]shape.Symbol, error) {
	return []shape.Symbol{{Kind: shape.KindModule, Name: "main.go"}}, nil
}

func (s *stubAnalysis) Languages() []string { return s.languages }

func (s *stubAnalysis) Health(_ context.Context) ports.HealthStatus {
	return ports.HealthStatus{Status: "up", Version: "test", Languages: s.languages}
}

func newTestServer(t *testing.T, cfg *config.Config, svc ports.AnalysisService) (*Server, *transport.MockAdapter) {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	mock := transport.NewMockAdapter()
	deps := Dependencies{Analysis: svc, Logger: slog.Default()}
	server, err := New(cfg, deps, registry.New(), mock, "", BuildOperationAllowlist(cfg))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return server, mock
}

func startServer(t *testing.T, server *Server) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = server.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return cancel
}

func TestServerDispatchesOperations(t *testing.T) {
	svc := &stubAnalysis{languages: []string{"go", "python"}}
	server, mock := newTestServer(t, nil, svc)
	startServer(t, server)

	result, err := mock.Call(contracts.ToolNameStrata, map[string]any{
		"operation": string(contracts.OperationSystemLanguages),
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}

	wrapped, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected wrapped result, got %T", result)
	}
	if wrapped["operation"] != contracts.OperationSystemLanguages {
		t.Fatalf("unexpected operation tag: %v", wrapped["operation"])
	}
	out, ok := wrapped["result"].(contracts.SystemLanguagesOutput)
	if !ok {
		t.Fatalf("expected SystemLanguagesOutput, got %T", wrapped["result"])
	}
	if len(out.Languages) != 2 {
		t.Fatalf("unexpected languages: %v", out.Languages)
	}
}

func TestServerShapeExtract(t *testing.T) {
	server, mock := newTestServer(t, nil, &stubAnalysis{})
	startServer(t, server)

	result, err := mock.Call(contracts.ToolNameStrata, map[string]any{
		"operation": string(contracts.OperationShapeExtract),
		"params":    map[string]any{"path": "main.go"},
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	wrapped := result.(map[string]any)
	out := wrapped["result"].(contracts.ShapeExtractOutput)
	if out.SymbolCount != 1 || out.Language != "go" {
		t.Fatalf("unexpected shape output: %+v", out)
	}
}

func TestServerRejectsUnknownTool(t *testing.T) {
	server, mock := newTestServer(t, nil, &stubAnalysis{})
	startServer(t, server)

	_, err := mock.Call("other", map[string]any{"operation": "system.health"})
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestServerHonorsAllowlist(t *testing.T) {
	cfg := config.Default()
	cfg.MCP.OperationAllowlist = []string{"system.health"}
	server, mock := newTestServer(t, cfg, &stubAnalysis{})
	startServer(t, server)

	if _, err := mock.Call(contracts.ToolNameStrata, map[string]any{"operation": "system.health"}); err != nil {
		t.Fatalf("allowlisted operation failed: %v", err)
	}

	_, err := mock.Call(contracts.ToolNameStrata, map[string]any{
		"operation": string(contracts.OperationShapeExtract),
		"params":    map[string]any{"path": "main.go"},
	})
	if err == nil {
		t.Fatal("expected allowlist rejection")
	}
}

type capturingAuditStore struct {
	entries []ports.AuditEntry
}

func (c *capturingAuditStore) Record(_ context.Context, entry ports.AuditEntry) error {
	c.entries = append(c.entries, entry)
	return nil
}

func (c *capturingAuditStore) Recent(_ context.Context, _ int) ([]ports.AuditEntry, error) {
	return c.entries, nil
}

func (c *capturingAuditStore) Close() error { return nil }

func TestServerRecordsAuditEntries(t *testing.T) {
	audit := &capturingAuditStore{}
	mock := transport.NewMockAdapter()
	deps := Dependencies{Analysis: &stubAnalysis{}, Audit: audit, Logger: slog.Default()}
	cfg := config.Default()
	server, err := New(cfg, deps, registry.New(), mock, "", BuildOperationAllowlist(cfg))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	startServer(t, server)

	if _, err := mock.Call(contracts.ToolNameStrata, map[string]any{
		"operation": string(contracts.OperationShapeExtract),
		"params":    map[string]any{"path": "main.go"},
	}); err != nil {
		t.Fatalf("shape.extract: %v", err)
	}
	if _, err := mock.Call(contracts.ToolNameStrata, map[string]any{
		"operation": string(contracts.OperationSystemLanguages),
	}); err != nil {
		t.Fatalf("system.languages: %v", err)
	}

	if len(audit.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(audit.entries))
	}
	entry := audit.entries[0]
	if entry.Operation != string(contracts.OperationShapeExtract) {
		t.Fatalf("unexpected operation: %s", entry.Operation)
	}
	if entry.Path != "main.go" {
		t.Fatalf("unexpected path: %s", entry.Path)
	}
	if entry.RowCount != 1 || entry.Truncated {
		t.Fatalf("expected encoded counts in entry, got rows=%d truncated=%v", entry.RowCount, entry.Truncated)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Fatalf("entry missing identity fields: %+v", entry)
	}
}

func TestServerMapsDomainErrors(t *testing.T) {
	svc := &stubAnalysis{shapeErr: domainerrors.New(domainerrors.CodeNotFound, "file not found")}
	server, mock := newTestServer(t, nil, svc)
	startServer(t, server)

	_, err := mock.Call(contracts.ToolNameStrata, map[string]any{
		"operation": string(contracts.OperationShapeExtract),
		"params":    map[string]any{"path": "missing.go"},
	})
	var toolErr contracts.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %v", err)
	}
	if toolErr.Code != contracts.ErrorNotFound {
		t.Fatalf("expected not_found, got %s", toolErr.Code)
	}
	if toolErr.Details["domain_code"] != string(domainerrors.CodeNotFound) {
		t.Fatalf("expected domain code detail, got %v", toolErr.Details)
	}
}

func TestToToolErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"not found", domainerrors.New(domainerrors.CodeNotFound, "missing"), contracts.ErrorNotFound},
		{"unsupported language", domainerrors.New(domainerrors.CodeUnsupportedLanguage, "no grammar"), contracts.ErrorInvalidArgument},
		{"malformed source", domainerrors.New(domainerrors.CodeMalformedSource, "parse failed"), contracts.ErrorInvalidArgument},
		{"validation", domainerrors.New(domainerrors.CodeValidationError, "bad input"), contracts.ErrorInvalidArgument},
		{"diff unavailable", domainerrors.New(domainerrors.CodeDiffUnavailable, "no git"), contracts.ErrorUnavailable},
		{"resolution failure", domainerrors.New(domainerrors.CodeResolutionFailure, "no chain"), contracts.ErrorInternal},
		{"timeout", context.DeadlineExceeded, contracts.ErrorUnavailable},
		{"plain", errors.New("boom"), contracts.ErrorInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := toToolError(tc.err)
			var toolErr contracts.ToolError
			if !errors.As(mapped, &toolErr) {
				t.Fatalf("expected ToolError, got %T", mapped)
			}
			if toolErr.Code != tc.code {
				t.Fatalf("expected %s, got %s", tc.code, toolErr.Code)
			}
		})
	}
}
