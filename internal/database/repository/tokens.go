package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const tokenColumns = `id, realm_id, access_token, refresh_token, expires_at, created_at, updated_at`

// TokenRepo stores OAuth credentials, one row per realm.
type TokenRepo struct {
	db *sql.DB
}

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// Save upserts the credential for t.RealmID.
func (r *TokenRepo) Save(ctx context.Context, t Token) (*Token, error) {
	id := t.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO tokens(`+tokenColumns+`)
	VALUES(?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(realm_id) DO UPDATE SET
	 access_token=excluded.access_token,
	 refresh_token=excluded.refresh_token,
	 expires_at=excluded.expires_at,
	 updated_at=excluded.updated_at;
	`, id, t.RealmID, t.AccessToken, t.RefreshToken, t.ExpiresAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("save token for realm %s: %w", t.RealmID, err)
	}
	return r.ByRealm(ctx, t.RealmID)
}

// ByRealm returns the credential for a realm, or nil when absent.
func (r *TokenRepo) ByRealm(ctx context.Context, realmID string) (*Token, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE realm_id = ?`, realmID)
	return oneToken(row)
}

// Latest returns the most recently updated credential, or nil when absent.
func (r *TokenRepo) Latest(ctx context.Context) (*Token, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM tokens ORDER BY updated_at DESC LIMIT 1`)
	return oneToken(row)
}

// Delete removes a credential.
func (r *TokenRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE id = ?`, id)
	return err
}

func oneToken(row *sql.Row) (*Token, error) {
	var t Token
	if err := row.Scan(&t.ID, &t.RealmID, &t.AccessToken, &t.RefreshToken,
		&t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
