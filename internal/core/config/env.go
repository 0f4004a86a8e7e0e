package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Pattern: STRATA_[SECTION]_[KEY]
// (e.g., STRATA_MCP_TRANSPORT).
func ApplyEnvOverrides(cfg *Config) {
	// Paths
	setEnvString(&cfg.Paths.ProjectRoot, "STRATA_PATHS_PROJECT_ROOT")
	setEnvString(&cfg.Paths.StateDir, "STRATA_PATHS_STATE_DIR")
	setEnvString(&cfg.Paths.DatabaseDir, "STRATA_PATHS_DATABASE_DIR")

	// Database
	setEnvBool(&cfg.DB.Enabled, "STRATA_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "STRATA_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "STRATA_DB_BUSY_TIMEOUT")

	// MCP
	setEnvString(&cfg.MCP.Transport, "STRATA_MCP_TRANSPORT")
	setEnvString(&cfg.MCP.Address, "STRATA_MCP_ADDRESS")
	setEnvString(&cfg.MCP.ServerName, "STRATA_MCP_SERVER_NAME")
	setEnvDuration(&cfg.MCP.RequestTimeout, "STRATA_MCP_REQUEST_TIMEOUT")
	setEnvFloat64(&cfg.MCP.RateLimitPerSecond, "STRATA_MCP_RATE_LIMIT_PER_SECOND")
	setEnvInt(&cfg.MCP.RateLimitBurst, "STRATA_MCP_RATE_LIMIT_BURST")

	// Budget
	setEnvInt(&cfg.Budget.DefaultMaxTokens, "STRATA_BUDGET_DEFAULT_MAX_TOKENS")
	setEnvInt(&cfg.Budget.MaxContextLines, "STRATA_BUDGET_MAX_CONTEXT_LINES")

	// Watch
	setEnvBool(&cfg.Watch.Enabled, "STRATA_WATCH_ENABLED")
	setEnvDuration(&cfg.Watch.Debounce, "STRATA_WATCH_DEBOUNCE")

	// Observability
	setEnvBool(&cfg.Observability.EnableMetrics, "STRATA_OBSERVABILITY_ENABLE_METRICS")
	setEnvBool(&cfg.Observability.EnableTracing, "STRATA_OBSERVABILITY_ENABLE_TRACING")
	setEnvInt(&cfg.Observability.Port, "STRATA_OBSERVABILITY_PORT")
	setEnvString(&cfg.Observability.OTLPEndpoint, "STRATA_OBSERVABILITY_OTLP_ENDPOINT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		log.Printf("Applying env override: %s=%s", key, val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = d
		}
	}
}
