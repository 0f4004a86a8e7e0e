package runtime

import (
	"strings"

	"strata/internal/core/config"
	"strata/internal/mcp/contracts"
)

type OperationAllowlist struct {
	allowAll bool
	allowed  map[contracts.OperationID]bool
}

func BuildOperationAllowlist(cfg *config.Config) OperationAllowlist {
	if cfg == nil {
		return OperationAllowlist{allowAll: true}
	}

	entries := cfg.MCP.OperationAllowlist
	if len(entries) == 0 {
		return OperationAllowlist{allowAll: true}
	}

	allowed := make(map[contracts.OperationID]bool)
	for _, entry := range entries {
		id := normalizeOperationAlias(entry)
		if id == "" {
			continue
		}
		allowed[id] = true
	}

	return OperationAllowlist{allowed: allowed}
}

func (o OperationAllowlist) Allows(id contracts.OperationID) bool {
	if o.allowAll {
		return true
	}
	return o.allowed[id]
}

func normalizeOperationAlias(raw string) contracts.OperationID {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "shape.extract", "extract_shape":
		return contracts.OperationShapeExtract
	case "shape.map", "code_map":
		return contracts.OperationShapeMap
	case "diff.structural", "structural_diff":
		return contracts.OperationDiffStructural
	case "usage.find", "find_usages":
		return contracts.OperationUsageFind
	case "impact.affected", "classify_impact":
		return contracts.OperationImpactAffected
	case "scope.at_position", "resolve_scope":
		return contracts.OperationScopeAtPosition
	case "system.health":
		return contracts.OperationSystemHealth
	case "system.languages":
		return contracts.OperationSystemLanguages
	case "system.audit_recent":
		return contracts.OperationSystemAudit
	default:
		return ""
	}
}
