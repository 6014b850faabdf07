package grant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"oidcgate/internal/oidc/models"
	"oidcgate/pkg/platform/sentinel"
)

// PostgresStore persists grants in the oidc_grants table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres wraps a database handle. Schema is applied via EnsureSchema.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the grants table when absent. Deployments with a
// migration pipeline can call it as a no-op safety net.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS oidc_grants (
			id          UUID PRIMARY KEY,
			account_id  TEXT NOT NULL,
			client_id   TEXT NOT NULL,
			oidc_scope  TEXT[] NOT NULL DEFAULT '{}',
			oidc_claims TEXT[] NOT NULL DEFAULT '{}',
			resources   JSONB,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL,
			expires_at  TIMESTAMPTZ,
			UNIQUE (account_id, client_id)
		)`)
	if err != nil {
		return fmt.Errorf("ensure oidc_grants schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, grantID string) (*models.Grant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, client_id, oidc_scope, oidc_claims, resources, created_at, updated_at, expires_at
		FROM oidc_grants WHERE id = $1`, grantID)
	return scanGrant(row, grantID)
}

func (s *PostgresStore) FindByAccountAndClient(ctx context.Context, accountID, clientID string) (*models.Grant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, client_id, oidc_scope, oidc_claims, resources, created_at, updated_at, expires_at
		FROM oidc_grants WHERE account_id = $1 AND client_id = $2`, accountID, clientID)
	return scanGrant(row, accountID+"/"+clientID)
}

// Save upserts the grant keyed by (account_id, client_id), assigning an ID on
// first save. Concurrent saves resolve last-write-wins.
func (s *PostgresStore) Save(ctx context.Context, g *models.Grant, now time.Time) (string, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
		g.CreatedAt = now
	}
	g.UpdatedAt = now

	var resources []byte
	if g.Resources != nil {
		var err error
		resources, err = json.Marshal(g.Resources)
		if err != nil {
			return "", fmt.Errorf("marshal grant resources: %w", err)
		}
	}

	var expires sql.NullTime
	if !g.ExpiresAt.IsZero() {
		expires = sql.NullTime{Time: g.ExpiresAt, Valid: true}
	}

	// The returned id may differ from g.ID when a concurrent save already
	// created the row for this account/client pair.
	var savedID string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO oidc_grants (id, account_id, client_id, oidc_scope, oidc_claims, resources, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (account_id, client_id) DO UPDATE SET
			oidc_scope  = EXCLUDED.oidc_scope,
			oidc_claims = EXCLUDED.oidc_claims,
			resources   = EXCLUDED.resources,
			updated_at  = EXCLUDED.updated_at,
			expires_at  = EXCLUDED.expires_at
		RETURNING id`,
		g.ID, g.AccountID, g.ClientID,
		pq.Array(g.OIDCScope), pq.Array(g.OIDCClaims), resources,
		g.CreatedAt, g.UpdatedAt, expires,
	).Scan(&savedID)
	if err != nil {
		return "", fmt.Errorf("save grant: %w", err)
	}
	g.ID = savedID
	return savedID, nil
}

func (s *PostgresStore) Delete(ctx context.Context, grantID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM oidc_grants WHERE id = $1`, grantID)
	if err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("grant %q: %w", grantID, sentinel.ErrNotFound)
	}
	return nil
}

func scanGrant(row *sql.Row, key string) (*models.Grant, error) {
	var (
		g         models.Grant
		scope     pq.StringArray
		claims    pq.StringArray
		resources []byte
		expires   sql.NullTime
	)
	err := row.Scan(&g.ID, &g.AccountID, &g.ClientID, &scope, &claims, &resources, &g.CreatedAt, &g.UpdatedAt, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("grant %q: %w", key, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan grant: %w", err)
	}
	g.OIDCScope = []string(scope)
	g.OIDCClaims = []string(claims)
	if len(resources) > 0 {
		if err := json.Unmarshal(resources, &g.Resources); err != nil {
			return nil, fmt.Errorf("unmarshal grant resources: %w", err)
		}
	}
	if expires.Valid {
		g.ExpiresAt = expires.Time
	}
	return &g, nil
}
