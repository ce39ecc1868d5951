package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const vendorColumns = `id, vendor_name, vendor_remote_id, default_category_id, created_at, updated_at`

// VendorMappingRepo stores vendor-name default categories.
type VendorMappingRepo struct {
	db *sql.DB
}

func NewVendorMappingRepo(db *sql.DB) *VendorMappingRepo { return &VendorMappingRepo{db: db} }

// Save upserts on vendor name when the id is empty, updates otherwise.
func (r *VendorMappingRepo) Save(ctx context.Context, m VendorMapping) (*VendorMapping, error) {
	if m.ID == "" {
		_, err := r.db.ExecContext(ctx, `
		INSERT INTO vendor_mappings(`+vendorColumns+`)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(vendor_name) DO UPDATE SET
		 vendor_remote_id=excluded.vendor_remote_id,
		 default_category_id=excluded.default_category_id,
		 updated_at=excluded.updated_at;
		`, uuid.NewString(), m.VendorName, m.VendorRemoteID, m.DefaultCategoryID,
			m.CreatedAt, m.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("upsert vendor mapping %q: %w", m.VendorName, err)
		}
		return r.ByName(ctx, m.VendorName)
	}
	_, err := r.db.ExecContext(ctx, `
	UPDATE vendor_mappings SET vendor_name=?, vendor_remote_id=?,
	 default_category_id=?, updated_at=? WHERE id=?
	`, m.VendorName, m.VendorRemoteID, m.DefaultCategoryID, m.UpdatedAt, m.ID)
	if err != nil {
		return nil, fmt.Errorf("update vendor mapping %s: %w", m.ID, err)
	}
	return r.Get(ctx, m.ID)
}

// Get returns the mapping with the id, or nil when absent.
func (r *VendorMappingRepo) Get(ctx context.Context, id string) (*VendorMapping, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendor_mappings WHERE id = ?`, id)
	return oneVendorMapping(row)
}

// ByName returns the mapping for a vendor name, or nil when absent.
func (r *VendorMappingRepo) ByName(ctx context.Context, vendorName string) (*VendorMapping, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendor_mappings WHERE vendor_name = ?`, vendorName)
	return oneVendorMapping(row)
}

// All lists mappings by vendor name.
func (r *VendorMappingRepo) All(ctx context.Context) ([]VendorMapping, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+vendorColumns+` FROM vendor_mappings ORDER BY vendor_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VendorMapping
	for rows.Next() {
		m, err := scanVendorMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a mapping.
func (r *VendorMappingRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM vendor_mappings WHERE id = ?`, id)
	return err
}

func oneVendorMapping(row *sql.Row) (*VendorMapping, error) {
	m, err := scanVendorMapping(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func scanVendorMapping(row scanner) (VendorMapping, error) {
	var m VendorMapping
	var remote sql.NullString
	if err := row.Scan(&m.ID, &m.VendorName, &remote, &m.DefaultCategoryID,
		&m.CreatedAt, &m.UpdatedAt); err != nil {
		return VendorMapping{}, err
	}
	if remote.Valid {
		m.VendorRemoteID = &remote.String
	}
	return m, nil
}
