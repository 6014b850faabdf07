package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists audit events for compliance queries.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the audit table when absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS oidc_audit_events (
			id         BIGSERIAL PRIMARY KEY,
			ts         TIMESTAMPTZ NOT NULL,
			action     TEXT NOT NULL,
			account_id TEXT NOT NULL DEFAULT '',
			client_id  TEXT NOT NULL DEFAULT '',
			uid        TEXT NOT NULL DEFAULT '',
			grant_id   TEXT NOT NULL DEFAULT '',
			reason     TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS oidc_audit_events_account_idx
			ON oidc_audit_events (account_id, ts);
	`)
	if err != nil {
		return fmt.Errorf("audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oidc_audit_events (ts, action, account_id, client_id, uid, grant_id, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.Timestamp, event.Action, event.AccountID, event.ClientID, event.UID, event.GrantID, event.Reason,
	)
	if err != nil {
		return fmt.Errorf("audit append: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByAccount(ctx context.Context, accountID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, action, account_id, client_id, uid, grant_id, reason
		FROM oidc_audit_events
		WHERE account_id = $1
		ORDER BY ts`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("audit list: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Timestamp, &e.Action, &e.AccountID, &e.ClientID, &e.UID, &e.GrantID, &e.Reason); err != nil {
			return nil, fmt.Errorf("audit scan: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
