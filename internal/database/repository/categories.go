package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const categoryColumns = `id, remote_id, name, full_name, parent_remote_id, account_type, is_visible, display_order, synced_at`

// CategoryRepo handles the cached chart of accounts.
type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// Upsert inserts c keyed by its remote id, or refreshes an existing row.
// Visibility and display order are local preferences and survive re-sync.
func (r *CategoryRepo) Upsert(ctx context.Context, c Category) (*Category, error) {
	id := c.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO categories(`+categoryColumns+`)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(remote_id) DO UPDATE SET
	 name=excluded.name,
	 full_name=excluded.full_name,
	 parent_remote_id=excluded.parent_remote_id,
	 account_type=excluded.account_type,
	 synced_at=excluded.synced_at;
	`, id, c.RemoteID, c.Name, c.FullName, c.ParentRemoteID, c.AccountType,
		boolToInt(c.IsVisible), c.DisplayOrder, c.SyncedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert category %s: %w", c.RemoteID, err)
	}
	return r.GetByRemoteID(ctx, c.RemoteID)
}

// Get returns the category with the local id, or nil when absent.
func (r *CategoryRepo) Get(ctx context.Context, id string) (*Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	return oneCategory(row)
}

// GetByRemoteID returns the category with the remote id, or nil when absent.
func (r *CategoryRepo) GetByRemoteID(ctx context.Context, remoteID string) (*Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE remote_id = ?`, remoteID)
	return oneCategory(row)
}

// All lists every category by display order then qualified name.
func (r *CategoryRepo) All(ctx context.Context) ([]Category, error) {
	return r.list(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY display_order, full_name`)
}

// Visible lists only categories shown in pickers.
func (r *CategoryRepo) Visible(ctx context.Context) ([]Category, error) {
	return r.list(ctx, `SELECT `+categoryColumns+` FROM categories WHERE is_visible = 1 ORDER BY display_order, full_name`)
}

// Children lists the direct children of parent. The hierarchy is keyed on
// remote identity: child.parent_remote_id = parent.remote_id.
func (r *CategoryRepo) Children(ctx context.Context, parent Category) ([]Category, error) {
	return r.list(ctx, `SELECT `+categoryColumns+` FROM categories WHERE parent_remote_id = ? ORDER BY display_order, full_name`, parent.RemoteID)
}

// SetVisibility updates the local visibility preference.
func (r *CategoryRepo) SetVisibility(ctx context.Context, id string, visible bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE categories SET is_visible = ? WHERE id = ?`, boolToInt(visible), id)
	return err
}

// SetDisplayOrder updates the local ordering preference.
func (r *CategoryRepo) SetDisplayOrder(ctx context.Context, id string, order int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE categories SET display_order = ? WHERE id = ?`, order, id)
	return err
}

func (r *CategoryRepo) list(ctx context.Context, query string, args ...interface{}) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func oneCategory(row *sql.Row) (*Category, error) {
	c, err := scanCategory(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func scanCategory(row scanner) (Category, error) {
	var c Category
	var parent sql.NullString
	var visible int
	if err := row.Scan(&c.ID, &c.RemoteID, &c.Name, &c.FullName, &parent,
		&c.AccountType, &visible, &c.DisplayOrder, &c.SyncedAt); err != nil {
		return Category{}, err
	}
	if parent.Valid {
		c.ParentRemoteID = &parent.String
	}
	c.IsVisible = visible != 0
	return c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
