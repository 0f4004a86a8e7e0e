package runtime

import (
	"log/slog"
	"path/filepath"
	"testing"

	"strata/internal/core/config"
)

func TestBuildWithDefaults(t *testing.T) {
	cfg := config.Default()

	server, err := Build(cfg, AppDeps{Analysis: &stubAnalysis{}, Logger: slog.Default()})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if server == nil {
		t.Fatal("expected server")
	}
	if server.toolName != "strata" {
		t.Fatalf("unexpected tool name: %s", server.toolName)
	}
	if err := server.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestBuildOpensAuditStore(t *testing.T) {
	cfg := config.Default()
	cfg.DB.Enabled = true
	cfg.Paths.DatabaseDir = t.TempDir()

	server, err := Build(cfg, AppDeps{Analysis: &stubAnalysis{}, Logger: slog.Default()})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if server.deps.Audit == nil {
		t.Fatal("expected audit store to be opened")
	}
	if err := server.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestBuildRejectsUnknownTransport(t *testing.T) {
	cfg := config.Default()
	cfg.MCP.Transport = "carrier-pigeon"

	if _, err := Build(cfg, AppDeps{Analysis: &stubAnalysis{}}); err == nil {
		t.Fatal("expected error for unknown transport")
	}
}

func TestAuditDBPath(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DatabaseDir = "data/database"
	cfg.DB.Path = "audit.db"

	got := AuditDBPath(cfg)
	want := filepath.Join("data", "database", "audit.db")
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	abs := filepath.Join(t.TempDir(), "audit.db")
	cfg.DB.Path = abs
	if AuditDBPath(cfg) != abs {
		t.Fatalf("expected absolute path passthrough, got %s", AuditDBPath(cfg))
	}
}
