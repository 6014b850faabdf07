package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"oidcgate/internal/oidc/models"
	"oidcgate/pkg/platform/sentinel"
)

// PostgresStore persists access tokens in the oidc_access_tokens table.
// Lookups exclude expired rows so FindByValue matches the in-memory
// store's absence semantics; DeleteExpired reclaims the rows.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS oidc_access_tokens (
			value      TEXT PRIMARY KEY,
			jti        UUID NOT NULL UNIQUE,
			account_id TEXT NOT NULL,
			client_id  TEXT NOT NULL,
			grant_id   TEXT,
			scope      TEXT NOT NULL,
			issued_at  TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure oidc_access_tokens schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, t *models.AccessToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oidc_access_tokens (value, jti, account_id, client_id, grant_id, scope, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.Value, t.JTI, t.AccountID, t.ClientID, nullable(t.GrantID), t.Scope, t.IssuedAt, t.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByValue(ctx context.Context, value string) (*models.AccessToken, error) {
	var (
		t       models.AccessToken
		grantID sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT value, jti, account_id, client_id, grant_id, scope, issued_at, expires_at
		FROM oidc_access_tokens
		WHERE value = $1 AND expires_at > NOW()`, value).
		Scan(&t.Value, &t.JTI, &t.AccountID, &t.ClientID, &grantID, &t.Scope, &t.IssuedAt, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("access token: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find access token: %w", err)
	}
	t.GrantID = grantID.String
	return &t, nil
}

func (s *PostgresStore) Delete(ctx context.Context, value string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM oidc_access_tokens WHERE value = $1`, value); err != nil {
		return fmt.Errorf("delete access token: %w", err)
	}
	return nil
}

// DeleteExpired removes tokens past their TTL.
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM oidc_access_tokens WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired access tokens: %w", err)
	}
	return res.RowsAffected()
}

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
