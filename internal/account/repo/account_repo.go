package repo

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/reservalia/service-accounts-go/internal/account/entity"
)

// AccountRepo provides data access for the accounts table using sqlx.
type AccountRepo struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{db: db} }

const accountColumns = `id, external_id, username, email, password_hash,
	given_name, family_name, phone, birth_date,
	registered_at, last_login_at, is_active, is_verified, account_type`

// EnsureTable creates the accounts table if not exists (idempotent).
// The partial unique indexes scope uniqueness to active rows: that constraint,
// not the service-level pre-check, is the final authority against concurrent
// registrations with the same username or email.
func (r *AccountRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS accounts (
  id BIGINT PRIMARY KEY,
  external_id TEXT NOT NULL UNIQUE,
  username TEXT NOT NULL,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  given_name TEXT,
  family_name TEXT,
  phone TEXT,
  birth_date DATE,
  registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  last_login_at TIMESTAMPTZ,
  is_active BOOLEAN NOT NULL DEFAULT true,
  is_verified BOOLEAN NOT NULL DEFAULT false,
  account_type TEXT NOT NULL DEFAULT 'customer'
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_username_active
  ON accounts (username) WHERE is_active;
CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email_active
  ON accounts (lower(email)) WHERE is_active;
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new account row.
func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) error {
	const q = `INSERT INTO accounts
		(id, external_id, username, email, password_hash,
		 given_name, family_name, phone, birth_date,
		 registered_at, is_active, is_verified, account_type)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.ExternalID, a.Username, a.Email, a.PasswordHash,
		a.GivenName, a.FamilyName, a.Phone, a.BirthDate,
		a.RegisteredAt, a.IsActive, a.IsVerified, a.AccountType)
	return err
}

// GetByExternalID fetches an active account or sql.ErrNoRows.
func (r *AccountRepo) GetByExternalID(ctx context.Context, externalID string) (*entity.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE external_id=$1 AND is_active`
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, q, externalID); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetActiveByUsername fetches an active account by username or sql.ErrNoRows.
func (r *AccountRepo) GetActiveByUsername(ctx context.Context, username string) (*entity.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE username=$1 AND is_active`
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, q, username); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListActive returns all active accounts, newest registration first.
func (r *AccountRepo) ListActive(ctx context.Context) ([]entity.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE is_active ORDER BY registered_at DESC`
	var out []entity.Account
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveUsernameExists reports whether another active account holds username.
// excludeID lets updates skip the record being edited; pass 0 on create.
func (r *AccountRepo) ActiveUsernameExists(ctx context.Context, username string, excludeID int64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM accounts WHERE username=$1 AND is_active AND id <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, q, username, excludeID); err != nil {
		return false, err
	}
	return exists, nil
}

// ActiveEmailExists is the case-insensitive counterpart for email.
func (r *AccountRepo) ActiveEmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM accounts WHERE lower(email)=lower($1) AND is_active AND id <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, q, email, excludeID); err != nil {
		return false, err
	}
	return exists, nil
}

// Update persists the mutable profile and credential columns.
func (r *AccountRepo) Update(ctx context.Context, a *entity.Account) error {
	const q = `UPDATE accounts SET
		username=$2, email=$3, password_hash=$4,
		given_name=$5, family_name=$6, phone=$7, birth_date=$8,
		is_verified=$9, account_type=$10
		WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.Username, a.Email, a.PasswordHash,
		a.GivenName, a.FamilyName, a.Phone, a.BirthDate,
		a.IsVerified, a.AccountType)
	return err
}

// SaveSoftDelete persists exactly the three fields SoftDelete mutates.
func (r *AccountRepo) SaveSoftDelete(ctx context.Context, a *entity.Account) error {
	const q = `UPDATE accounts SET username=$2, email=$3, is_active=$4 WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, a.ID, a.Username, a.Email, a.IsActive)
	return err
}

// TouchLastLogin stamps a successful authentication.
func (r *AccountRepo) TouchLastLogin(ctx context.Context, id int64) error {
	const q = `UPDATE accounts SET last_login_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
