package audit

import (
	"context"
	"fmt"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

// Build constructs the auditor selected by configuration.
func Build(ctx context.Context, cfg config.AuditConfig) (core.Auditor, error) {
	if !cfg.Enabled {
		return NewNoopAuditor(), nil
	}
	switch cfg.Type {
	case "", "memory":
		return NewInMemoryAuditor(), nil
	case "file":
		return NewFileAuditor(cfg.Path)
	case "postgres":
		return NewPostgresAuditor(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown audit type %q", cfg.Type)
	}
}
