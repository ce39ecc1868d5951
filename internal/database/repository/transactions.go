package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jask/easycat/internal/apperrors"
)

const txnColumns = `id, remote_id, account_id, account_name, date, amount, description, vendor_name, status, assigned_category_id, fetched_at`

// SearchFilters narrows a transaction search. Nil/zero fields are ignored.
// Amount bounds are inclusive.
type SearchFilters struct {
	Status    *Status
	Text      string
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Start     *time.Time
	End       *time.Time
}

// TransactionRepo handles cached transactions.
type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

// Upsert inserts t keyed by its remote id, or refreshes the remote-owned
// fields of an existing row. Status and assigned category belong to the
// local review workflow and are never touched on conflict, so re-syncing
// cannot regress human work. Returns the stored row and whether it was
// newly created.
func (r *TransactionRepo) Upsert(ctx context.Context, t Transaction) (*Transaction, bool, error) {
	existing, err := r.GetByRemoteID(ctx, t.RemoteID)
	if err != nil {
		return nil, false, err
	}
	id := t.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO transactions(`+txnColumns+`)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(remote_id) DO UPDATE SET
	 account_id=excluded.account_id,
	 account_name=excluded.account_name,
	 date=excluded.date,
	 amount=excluded.amount,
	 description=excluded.description,
	 vendor_name=excluded.vendor_name,
	 fetched_at=excluded.fetched_at;
	`, id, t.RemoteID, t.AccountID, t.AccountName, t.Date, t.Amount.String(),
		t.Description, t.VendorName, string(t.Status), t.CategoryID, t.FetchedAt)
	if err != nil {
		return nil, false, fmt.Errorf("upsert transaction %s: %w", t.RemoteID, err)
	}
	saved, err := r.GetByRemoteID(ctx, t.RemoteID)
	if err != nil {
		return nil, false, err
	}
	return saved, existing == nil, nil
}

// Get returns the transaction with the local id, or nil when absent.
func (r *TransactionRepo) Get(ctx context.Context, id string) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+txnColumns+` FROM transactions WHERE id = ?`, id)
	return oneTransaction(row)
}

// GetByRemoteID returns the transaction with the remote id, or nil when absent.
func (r *TransactionRepo) GetByRemoteID(ctx context.Context, remoteID string) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+txnColumns+` FROM transactions WHERE remote_id = ?`, remoteID)
	return oneTransaction(row)
}

// ByStatus lists transactions in the given state, oldest first.
func (r *TransactionRepo) ByStatus(ctx context.Context, status Status) ([]Transaction, error) {
	return r.list(ctx, `SELECT `+txnColumns+` FROM transactions WHERE status = ? ORDER BY date ASC`, string(status))
}

// Search lists transactions matching f, oldest first.
func (r *TransactionRepo) Search(ctx context.Context, f SearchFilters) ([]Transaction, error) {
	var where []string
	var args []interface{}

	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.Text != "" {
		where = append(where, "(description LIKE ? OR vendor_name LIKE ?)")
		pattern := "%" + f.Text + "%"
		args = append(args, pattern, pattern)
	}
	if f.MinAmount != nil {
		where = append(where, "CAST(amount AS REAL) >= ?")
		args = append(args, f.MinAmount.InexactFloat64())
	}
	if f.MaxAmount != nil {
		where = append(where, "CAST(amount AS REAL) <= ?")
		args = append(args, f.MaxAmount.InexactFloat64())
	}
	if f.Start != nil {
		where = append(where, "date >= ?")
		args = append(args, *f.Start)
	}
	if f.End != nil {
		where = append(where, "date <= ?")
		args = append(args, *f.End)
	}

	query := `SELECT ` + txnColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC"
	return r.list(ctx, query, args...)
}

// UpdateStatus is the single entry point that advances a transaction's
// status. Moving backwards is rejected, and every non-pending state
// requires a category.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, id string, status Status, categoryID *string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, status)
	}
	if status != StatusPending && categoryID == nil {
		return fmt.Errorf("%w: status %s requires a category", apperrors.ErrValidation, status)
	}
	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("transaction %s: %w", id, apperrors.ErrNotFound)
	}
	if status.rank() < current.Status.rank() {
		return fmt.Errorf("%w: cannot move %s from %s back to %s", apperrors.ErrValidation, id, current.Status, status)
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE transactions SET status = ?, assigned_category_id = ? WHERE id = ?`,
		string(status), categoryID, id)
	return err
}

// Delete removes a transaction; splits cascade.
func (r *TransactionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	return err
}

// ClearPosted purges all posted rows and returns the count deleted.
func (r *TransactionRepo) ClearPosted(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE status = ?`, string(StatusPosted))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *TransactionRepo) list(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// scanner covers both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func oneTransaction(row *sql.Row) (*Transaction, error) {
	t, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func scanTransaction(row scanner) (Transaction, error) {
	var t Transaction
	var amount, status string
	var vendor, category sql.NullString
	if err := row.Scan(&t.ID, &t.RemoteID, &t.AccountID, &t.AccountName, &t.Date,
		&amount, &t.Description, &vendor, &status, &category, &t.FetchedAt); err != nil {
		return Transaction{}, err
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	t.Amount = amt
	t.Status = Status(status)
	if vendor.Valid {
		t.VendorName = &vendor.String
	}
	if category.Valid {
		t.CategoryID = &category.String
	}
	return t, nil
}
