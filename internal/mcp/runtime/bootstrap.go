package runtime

import (
	"fmt"
	"path/filepath"
	"strings"

	"strata/internal/core/config"
	"strata/internal/history"
	"strata/internal/mcp/registry"
	"strata/internal/mcp/transport"
)

func Build(cfg *config.Config, deps AppDeps) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if deps.Audit == nil && cfg.DB.Enabled {
		store, err := history.Open(AuditDBPath(cfg))
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		deps.Audit = store
	}

	adapter, err := buildTransport(cfg)
	if err != nil {
		if deps.Audit != nil {
			_ = deps.Audit.Close()
		}
		return nil, err
	}

	reg := registry.New()
	allowlist := BuildOperationAllowlist(cfg)
	server, err := New(cfg, deps, reg, adapter, cfg.MCP.ServerName, allowlist)
	if err != nil && deps.Audit != nil {
		_ = deps.Audit.Close()
	}
	return server, err
}

func buildTransport(cfg *config.Config) (transport.Adapter, error) {
	transportName := strings.ToLower(strings.TrimSpace(cfg.MCP.Transport))
	switch transportName {
	case "", "stdio":
		return transport.NewStdio(cfg.MCP.RateLimitPerSecond, cfg.MCP.RateLimitBurst)
	case "sse", "http":
		addr := cfg.MCP.Address
		if addr == "" {
			addr = "127.0.0.1:8765"
		}
		return transport.NewSSE(addr, cfg.MCP.RateLimitPerSecond, cfg.MCP.RateLimitBurst)
	default:
		return nil, fmt.Errorf("unsupported MCP transport: %s", transportName)
	}
}

// AuditDBPath resolves the audit database location relative to the
// configured state directories unless the path is already absolute.
func AuditDBPath(cfg *config.Config) string {
	if filepath.IsAbs(cfg.DB.Path) {
		return cfg.DB.Path
	}
	dir := cfg.Paths.DatabaseDir
	if dir == "" {
		dir = cfg.Paths.StateDir
	}
	return filepath.Join(dir, cfg.DB.Path)
}
