package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Version       int                 `toml:"version"`
	Paths         Paths               `toml:"paths"`
	DB            Database            `toml:"db"`
	MCP           MCP                 `toml:"mcp"`
	Languages     map[string]Language `toml:"languages"`
	Exclude       Exclude             `toml:"exclude"`
	Budget        Budget              `toml:"budget"`
	Watch         Watch               `toml:"watch"`
	Observability Observability       `toml:"observability"`
}

type Paths struct {
	ProjectRoot string `toml:"project_root"`
	StateDir    string `toml:"state_dir"`
	DatabaseDir string `toml:"database_dir"`
}

// Database configures the optional request-audit store.
type Database struct {
	Enabled     bool          `toml:"enabled"`
	Driver      string        `toml:"driver"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type MCP struct {
	Transport          string        `toml:"transport"`
	Address            string        `toml:"address"`
	ServerName         string        `toml:"server_name"`
	RequestTimeout     time.Duration `toml:"request_timeout"`
	RateLimitPerSecond float64       `toml:"rate_limit_per_second"`
	RateLimitBurst     int           `toml:"rate_limit_burst"`
	OperationAllowlist []string      `toml:"operation_allowlist"`
}

type Language struct {
	Enabled    *bool    `toml:"enabled"`
	Extensions []string `toml:"extensions"`
	Filenames  []string `toml:"filenames"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

// Budget bounds response sizes. DefaultMaxTokens applies when a
// request does not carry its own budget.
type Budget struct {
	DefaultMaxTokens int `toml:"default_max_tokens"`
	MaxContextLines  int `toml:"max_context_lines"`
}

type Watch struct {
	Enabled  bool          `toml:"enabled"`
	Paths    []string      `toml:"paths"`
	Debounce time.Duration `toml:"debounce"`
}

type Observability struct {
	EnableMetrics bool   `toml:"enable_metrics"`
	EnableTracing bool   `toml:"enable_tracing"`
	Port          int    `toml:"port"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateDatabase(&cfg); err != nil {
		return nil, err
	}
	if err := validateMCP(&cfg); err != nil {
		return nil, err
	}
	if err := validateBudget(&cfg); err != nil {
		return nil, err
	}
	if err := validateLanguages(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Paths.StateDir) == "" {
		cfg.Paths.StateDir = "data/state"
	}
	if strings.TrimSpace(cfg.Paths.DatabaseDir) == "" {
		cfg.Paths.DatabaseDir = "data/database"
	}

	if strings.TrimSpace(cfg.DB.Driver) == "" {
		cfg.DB.Driver = "sqlite"
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "audit.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 5 * time.Second
	}

	if strings.TrimSpace(cfg.MCP.Transport) == "" {
		cfg.MCP.Transport = "stdio"
	}
	if strings.TrimSpace(cfg.MCP.Address) == "" {
		cfg.MCP.Address = "127.0.0.1:8765"
	}
	if strings.TrimSpace(cfg.MCP.ServerName) == "" {
		cfg.MCP.ServerName = "strata"
	}
	if cfg.MCP.RequestTimeout <= 0 {
		cfg.MCP.RequestTimeout = 30 * time.Second
	}
	if cfg.MCP.RateLimitPerSecond <= 0 {
		cfg.MCP.RateLimitPerSecond = 10
	}
	if cfg.MCP.RateLimitBurst <= 0 {
		cfg.MCP.RateLimitBurst = 20
	}

	if cfg.Budget.DefaultMaxTokens <= 0 {
		cfg.Budget.DefaultMaxTokens = 10000
	}
	if cfg.Budget.MaxContextLines <= 0 {
		cfg.Budget.MaxContextLines = 10
	}

	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{".git", "node_modules", "target", "vendor", "dist", "build"}
	}

	if len(cfg.Watch.Paths) == 0 {
		cfg.Watch.Paths = []string{"."}
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}

	if cfg.Observability.Port <= 0 {
		cfg.Observability.Port = 9090
	}
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; only version 1 is supported", cfg.Version)
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	driver := strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	if driver != "sqlite" {
		return fmt.Errorf("db.driver must be sqlite, got %q", cfg.DB.Driver)
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	return nil
}

func validateMCP(cfg *Config) error {
	transport := strings.ToLower(strings.TrimSpace(cfg.MCP.Transport))
	switch transport {
	case "stdio", "sse":
	default:
		return fmt.Errorf("mcp.transport must be one of: stdio, sse")
	}
	if transport == "sse" && strings.TrimSpace(cfg.MCP.Address) == "" {
		return fmt.Errorf("mcp.address must not be empty when mcp.transport=sse")
	}
	return nil
}

func validateBudget(cfg *Config) error {
	if cfg.Budget.DefaultMaxTokens < 100 {
		return fmt.Errorf("budget.default_max_tokens must be >= 100, got %d", cfg.Budget.DefaultMaxTokens)
	}
	if cfg.Budget.MaxContextLines > 100 {
		return fmt.Errorf("budget.max_context_lines must be <= 100, got %d", cfg.Budget.MaxContextLines)
	}
	return nil
}

func validateLanguages(cfg *Config) error {
	for name, lang := range cfg.Languages {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return fmt.Errorf("languages table contains an empty language name")
		}
		for _, ext := range lang.Extensions {
			e := strings.TrimSpace(ext)
			if e == "" {
				return fmt.Errorf("languages.%s.extensions contains an empty extension", trimmed)
			}
			if !strings.HasPrefix(e, ".") {
				return fmt.Errorf("languages.%s.extensions entry %q must start with a dot", trimmed, ext)
			}
		}
		for _, fn := range lang.Filenames {
			if strings.TrimSpace(fn) == "" {
				return fmt.Errorf("languages.%s.filenames contains an empty filename", trimmed)
			}
		}
	}
	return nil
}
