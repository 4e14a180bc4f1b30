package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// SessionRepo persists opaque auth tokens (web sessions and refresh tokens).
type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// EnsureTable creates the auth_sessions table if not exists (idempotent).
func (r *SessionRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS auth_sessions (
  token TEXT PRIMARY KEY,
  account_external_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_auth_sessions_account ON auth_sessions (account_external_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *SessionRepo) Save(ctx context.Context, token, accountExternalID, kind string, expiresAt time.Time) error {
	const q = `INSERT INTO auth_sessions (token, account_external_id, kind, expires_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, q, token, accountExternalID, kind, expiresAt)
	return err
}

func (r *SessionRepo) Get(ctx context.Context, token string) (accountExternalID string, kind string, expiresAt time.Time, err error) {
	const q = `SELECT account_external_id, kind, expires_at FROM auth_sessions WHERE token = $1`
	row := r.db.QueryRowxContext(ctx, q, token)
	err = row.Scan(&accountExternalID, &kind, &expiresAt)
	return accountExternalID, kind, expiresAt, err
}

func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE token = $1`, token)
	return err
}

// DeleteExpired prunes stale rows; safe to call opportunistically.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE expires_at < NOW()`)
	return err
}
