package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const splitColumns = `id, transaction_id, category_id, amount, memo`

// SplitRepo stores per-category portions of a transaction.
type SplitRepo struct {
	db *sql.DB
}

func NewSplitRepo(db *sql.DB) *SplitRepo { return &SplitRepo{db: db} }

// Save inserts the split when its id is empty, updates it otherwise.
func (r *SplitRepo) Save(ctx context.Context, s TransactionSplit) (*TransactionSplit, error) {
	id := s.ID
	if id == "" {
		id = uuid.NewString()
		_, err := r.db.ExecContext(ctx, `
		INSERT INTO transaction_splits(`+splitColumns+`) VALUES(?, ?, ?, ?, ?)
		`, id, s.TransactionID, s.CategoryID, s.Amount.String(), s.Memo)
		if err != nil {
			return nil, fmt.Errorf("insert split: %w", err)
		}
	} else {
		_, err := r.db.ExecContext(ctx, `
		UPDATE transaction_splits SET transaction_id=?, category_id=?, amount=?, memo=? WHERE id=?
		`, s.TransactionID, s.CategoryID, s.Amount.String(), s.Memo, id)
		if err != nil {
			return nil, fmt.Errorf("update split %s: %w", id, err)
		}
	}
	return r.Get(ctx, id)
}

// Get returns the split with the id, or nil when absent.
func (r *SplitRepo) Get(ctx context.Context, id string) (*TransactionSplit, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+splitColumns+` FROM transaction_splits WHERE id = ?`, id)
	s, err := scanSplit(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ForTransaction lists the splits of one transaction.
func (r *SplitRepo) ForTransaction(ctx context.Context, transactionID string) ([]TransactionSplit, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+splitColumns+` FROM transaction_splits WHERE transaction_id = ?`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionSplit
	for rows.Next() {
		s, err := scanSplit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteForTransaction removes every split of one transaction.
func (r *SplitRepo) DeleteForTransaction(ctx context.Context, transactionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transaction_splits WHERE transaction_id = ?`, transactionID)
	return err
}

func scanSplit(row scanner) (TransactionSplit, error) {
	var s TransactionSplit
	var amount string
	var memo sql.NullString
	if err := row.Scan(&s.ID, &s.TransactionID, &s.CategoryID, &amount, &memo); err != nil {
		return TransactionSplit{}, err
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return TransactionSplit{}, fmt.Errorf("parse split amount %q: %w", amount, err)
	}
	s.Amount = amt
	if memo.Valid {
		s.Memo = &memo.String
	}
	return s, nil
}
