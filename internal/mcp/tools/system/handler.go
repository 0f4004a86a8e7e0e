package system

import (
	"context"
	"time"

	"strata/internal/core/ports"
	"strata/internal/mcp/contracts"
)

const defaultAuditLimit = 50

func HandleHealth(ctx context.Context, svc ports.AnalysisService) (contracts.SystemHealthOutput, error) {
	health := svc.Health(ctx)
	return contracts.SystemHealthOutput{
		Status:        health.Status,
		Version:       health.Version,
		Languages:     health.Languages,
		UptimeSeconds: int64(health.Uptime.Seconds()),
	}, nil
}

func HandleLanguages(_ context.Context, svc ports.AnalysisService) (contracts.SystemLanguagesOutput, error) {
	return contracts.SystemLanguagesOutput{Languages: svc.Languages()}, nil
}

func HandleAuditRecent(ctx context.Context, store ports.AuditStore, in contracts.SystemAuditRecentInput) (contracts.SystemAuditRecentOutput, error) {
	if store == nil {
		return contracts.SystemAuditRecentOutput{}, contracts.ToolError{
			Code:    contracts.ErrorUnavailable,
			Message: "audit store is not enabled",
		}
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return contracts.SystemAuditRecentOutput{}, err
	}

	out := contracts.SystemAuditRecentOutput{Entries: make([]contracts.AuditRecord, 0, len(entries))}
	for _, entry := range entries {
		out.Entries = append(out.Entries, contracts.AuditRecord{
			ID:         entry.ID,
			Operation:  entry.Operation,
			Path:       entry.Path,
			DurationMs: entry.Duration.Milliseconds(),
			RowCount:   entry.RowCount,
			Truncated:  entry.Truncated,
			CreatedAt:  entry.CreatedAt.Format(time.RFC3339),
		})
	}
	return out, nil
}
