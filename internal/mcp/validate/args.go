package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"strata/internal/mcp/contracts"
)

const (
	maxPathLength    = 4096
	maxSymbolLength  = 512
	maxRevisionLen   = 256
	maxContextRadius = 100
	maxTokenBudget   = 200000
	minTokenBudget   = 100
	maxAuditLimit    = 1000
)

func ValidateToolArgs(tool string, raw map[string]any) (any, error) {
	_, input, err := ParseToolArgs(tool, raw)
	return input, err
}

func ParseToolArgs(tool string, raw map[string]any) (contracts.OperationID, any, error) {
	if strings.TrimSpace(tool) == "" {
		return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "tool name is required"}
	}
	if tool != contracts.ToolNameStrata {
		return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("unsupported tool: %s", tool)}
	}
	if raw == nil {
		raw = map[string]any{}
	}

	operationRaw, ok := raw["operation"].(string)
	if !ok || strings.TrimSpace(operationRaw) == "" {
		return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "operation is required"}
	}
	operation := contracts.OperationID(strings.TrimSpace(operationRaw))

	params := map[string]any{}
	if rawParams, ok := raw["params"]; ok && rawParams != nil {
		if typed, ok := rawParams.(map[string]any); ok {
			params = typed
		} else {
			return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "params must be an object"}
		}
	}

	switch operation {
	case contracts.OperationShapeExtract:
		var input contracts.ShapeExtractInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		input.Path = strings.TrimSpace(input.Path)
		if err := validatePath(input.Path); err != nil {
			return "", nil, err
		}
		if err := validateBudget(input.MaxTokens); err != nil {
			return "", nil, err
		}
		return operation, input, nil
	case contracts.OperationShapeMap:
		var input contracts.ShapeMapInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		input.Path = strings.TrimSpace(input.Path)
		input.Pattern = strings.TrimSpace(input.Pattern)
		input.Detail = strings.ToLower(strings.TrimSpace(input.Detail))
		if err := validatePath(input.Path); err != nil {
			return "", nil, err
		}
		switch input.Detail {
		case "", contracts.MapDetailMinimal, contracts.MapDetailSignatures, contracts.MapDetailFull:
		default:
			return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("unknown detail level: %s", input.Detail)}
		}
		if err := validateBudget(input.MaxTokens); err != nil {
			return "", nil, err
		}
		return operation, input, nil
	case contracts.OperationDiffStructural:
		var input contracts.DiffStructuralInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		input.Path = strings.TrimSpace(input.Path)
		input.Revision = strings.TrimSpace(input.Revision)
		if err := validatePath(input.Path); err != nil {
			return "", nil, err
		}
		if err := validateRevision(input.Revision); err != nil {
			return "", nil, err
		}
		if err := validateBudget(input.MaxTokens); err != nil {
			return "", nil, err
		}
		return operation, input, nil
	case contracts.OperationUsageFind:
		var input contracts.UsageFindInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		input.Symbol = strings.TrimSpace(input.Symbol)
		input.SearchRoot = strings.TrimSpace(input.SearchRoot)
		if input.Symbol == "" {
			return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "symbol is required"}
		}
		if len(input.Symbol) > maxSymbolLength {
			return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "symbol is too long"}
		}
		if input.ContextRadius < 0 || input.ContextRadius > maxContextRadius {
			return "", nil, outOfRangeError("context_radius")
		}
		if err := validateBudget(input.MaxTokens); err != nil {
			return "", nil, err
		}
		return operation, input, nil
	case contracts.OperationImpactAffected:
		var input contracts.ImpactAffectedInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		input.Path = strings.TrimSpace(input.Path)
		input.Revision = strings.TrimSpace(input.Revision)
		input.SearchRoot = strings.TrimSpace(input.SearchRoot)
		if err := validatePath(input.Path); err != nil {
			return "", nil, err
		}
		if err := validateRevision(input.Revision); err != nil {
			return "", nil, err
		}
		if err := validateBudget(input.MaxTokens); err != nil {
			return "", nil, err
		}
		return operation, input, nil
	case contracts.OperationScopeAtPosition:
		var input contracts.ScopeAtPositionInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		input.Path = strings.TrimSpace(input.Path)
		if err := validatePath(input.Path); err != nil {
			return "", nil, err
		}
		if input.Line < 1 {
			return "", nil, outOfRangeError("line")
		}
		if input.Column < 1 {
			return "", nil, outOfRangeError("column")
		}
		return operation, input, nil
	case contracts.OperationSystemHealth:
		var input contracts.SystemHealthInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		return operation, input, nil
	case contracts.OperationSystemLanguages:
		var input contracts.SystemLanguagesInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		return operation, input, nil
	case contracts.OperationSystemAudit:
		var input contracts.SystemAuditRecentInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		if input.Limit < 0 || input.Limit > maxAuditLimit {
			return "", nil, outOfRangeError("limit")
		}
		return operation, input, nil
	default:
		return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("unsupported operation: %s", operation)}
	}
}

func decodeParams(params map[string]any, out any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "invalid params encoding"}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "invalid params", Details: map[string]any{"error": err.Error()}}
	}
	return nil
}

func validatePath(path string) error {
	if path == "" {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "path is required"}
	}
	if len(path) > maxPathLength {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "path is too long"}
	}
	return nil
}

func validateRevision(revision string) error {
	if revision == "" {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "revision is required"}
	}
	if len(revision) > maxRevisionLen {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "revision is too long"}
	}
	return nil
}

func validateBudget(maxTokens int) error {
	if maxTokens == 0 {
		return nil
	}
	if maxTokens < minTokenBudget || maxTokens > maxTokenBudget {
		return outOfRangeError("max_tokens")
	}
	return nil
}

func outOfRangeError(field string) error {
	return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("%s is out of range", field)}
}
