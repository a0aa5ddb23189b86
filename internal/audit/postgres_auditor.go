package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS request_history (
	id          TEXT PRIMARY KEY,
	time        TIMESTAMPTZ NOT NULL,
	method      TEXT NOT NULL,
	path        TEXT NOT NULL,
	rule_name   TEXT,
	client_id   TEXT,
	wallet      TEXT,
	allowed     BOOLEAN NOT NULL,
	reason      TEXT,
	provider    TEXT,
	duration_ms BIGINT NOT NULL,
	metadata    JSONB
)`

const insertEntrySQL = `
INSERT INTO request_history
	(id, time, method, path, rule_name, client_id, wallet, allowed, reason, provider, duration_ms, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// PostgresAuditor writes request-history entries to a Postgres table,
// creating it on startup if it does not exist.
type PostgresAuditor struct {
	pool *pgxpool.Pool
}

var _ core.Auditor = (*PostgresAuditor)(nil)

func NewPostgresAuditor(ctx context.Context, dsn string) (*PostgresAuditor, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to audit database: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating request_history table: %w", err)
	}
	return &PostgresAuditor{pool: pool}, nil
}

func (p *PostgresAuditor) Log(ctx context.Context, entry core.AuditEntry) error {
	var metadata []byte
	if entry.Metadata != nil {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("encoding audit metadata: %w", err)
		}
		metadata = data
	}
	_, err := p.pool.Exec(ctx, insertEntrySQL,
		entry.ID,
		entry.Time,
		entry.Method,
		entry.Path,
		entry.RuleName,
		entry.ClientID,
		entry.Wallet,
		entry.Allowed,
		entry.Reason,
		entry.Provider,
		entry.Duration.Milliseconds(),
		metadata,
	)
	if err != nil {
		return fmt.Errorf("writing audit log entry: %w", err)
	}
	return nil
}

func (p *PostgresAuditor) Close() error {
	p.pool.Close()
	return nil
}
