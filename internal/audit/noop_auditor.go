package audit

import (
	"context"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

// NoopAuditor discards every entry, used when auditing is off.
type NoopAuditor struct{}

func NewNoopAuditor() *NoopAuditor {
	return &NoopAuditor{}
}

func (n *NoopAuditor) Log(_ context.Context, _ core.AuditEntry) error {
	// noop
	return nil
}

func (n *NoopAuditor) Close() error {
	// nothing to close
	return nil
}
