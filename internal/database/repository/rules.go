package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const ruleColumns = `id, name, pattern, pattern_kind, category_id, min_amount, max_amount, priority, is_active, created_at`

// RuleRepo stores locally authored categorization rules.
type RuleRepo struct {
	db *sql.DB
}

func NewRuleRepo(db *sql.DB) *RuleRepo { return &RuleRepo{db: db} }

// Save inserts the rule when its id is empty, updates it otherwise.
func (r *RuleRepo) Save(ctx context.Context, rule Rule) (*Rule, error) {
	id := rule.ID
	if id == "" {
		id = uuid.NewString()
		_, err := r.db.ExecContext(ctx, `
		INSERT INTO rules(`+ruleColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, rule.Name, rule.Pattern, string(rule.Kind), rule.CategoryID,
			decimalPtr(rule.MinAmount), decimalPtr(rule.MaxAmount),
			rule.Priority, boolToInt(rule.IsActive), rule.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert rule %q: %w", rule.Name, err)
		}
	} else {
		_, err := r.db.ExecContext(ctx, `
		UPDATE rules SET name=?, pattern=?, pattern_kind=?, category_id=?,
		 min_amount=?, max_amount=?, priority=?, is_active=?
		WHERE id=?
		`, rule.Name, rule.Pattern, string(rule.Kind), rule.CategoryID,
			decimalPtr(rule.MinAmount), decimalPtr(rule.MaxAmount),
			rule.Priority, boolToInt(rule.IsActive), id)
		if err != nil {
			return nil, fmt.Errorf("update rule %s: %w", id, err)
		}
	}
	return r.Get(ctx, id)
}

// Get returns the rule with the id, or nil when absent.
func (r *RuleRepo) Get(ctx context.Context, id string) (*Rule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// Active lists active rules, highest priority first.
func (r *RuleRepo) Active(ctx context.Context) ([]Rule, error) {
	return r.list(ctx, `SELECT `+ruleColumns+` FROM rules WHERE is_active = 1 ORDER BY priority DESC, created_at`)
}

// All lists every rule, highest priority first.
func (r *RuleRepo) All(ctx context.Context) ([]Rule, error) {
	return r.list(ctx, `SELECT `+ruleColumns+` FROM rules ORDER BY priority DESC, name`)
}

// Delete removes a rule.
func (r *RuleRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	return err
}

func (r *RuleRepo) list(ctx context.Context, query string) ([]Rule, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func scanRule(row scanner) (Rule, error) {
	var rule Rule
	var kind string
	var minAmt, maxAmt sql.NullString
	var active int
	if err := row.Scan(&rule.ID, &rule.Name, &rule.Pattern, &kind, &rule.CategoryID,
		&minAmt, &maxAmt, &rule.Priority, &active, &rule.CreatedAt); err != nil {
		return Rule{}, err
	}
	rule.Kind = PatternKind(kind)
	rule.IsActive = active != 0
	var err error
	if rule.MinAmount, err = nullDecimal(minAmt); err != nil {
		return Rule{}, err
	}
	if rule.MaxAmount, err = nullDecimal(maxAmt); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

func decimalPtr(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, fmt.Errorf("parse amount bound %q: %w", s.String, err)
	}
	return &d, nil
}
