package schema

import "strata/internal/mcp/contracts"

type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
	Version     string         `json:"version"`
}

func BuildToolDefinitions() []ToolDefinition {
	operations := []string{
		string(contracts.OperationShapeExtract),
		string(contracts.OperationShapeMap),
		string(contracts.OperationDiffStructural),
		string(contracts.OperationUsageFind),
		string(contracts.OperationImpactAffected),
		string(contracts.OperationScopeAtPosition),
		string(contracts.OperationSystemHealth),
		string(contracts.OperationSystemLanguages),
		string(contracts.OperationSystemAudit),
	}

	return []ToolDefinition{
		{
			Name:        contracts.ToolNameStrata,
			Description: "Single entry tool for structural code analysis operations.",
			Version:     contracts.ContractVersion,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"operation": map[string]any{
						"type":        "string",
						"description": "Operation identifier (e.g., shape.extract).",
						"enum":        operations,
					},
					"params": map[string]any{
						"type":                 "object",
						"additionalProperties": true,
					},
				},
				"required": []string{"operation"},
			},
		},
	}
}
