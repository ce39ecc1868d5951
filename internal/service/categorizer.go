package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jask/easycat/internal/database/repository"
	"github.com/jask/easycat/internal/rules"
)

// CategorizeResult summarizes one rule-application pass.
type CategorizeResult struct {
	Scanned int
	Matched int
}

// Categorizer applies the deterministic rule set to pending transactions.
// A rule match wins outright; when no rule matches, a vendor mapping's
// default category is used as a fallback. Assignments go through the
// store's single status entry point.
type Categorizer struct {
	Transactions *repository.TransactionRepo
	Rules        *repository.RuleRepo
	Vendors      *repository.VendorMappingRepo
	Log          *slog.Logger
}

// ApplyRules walks every pending transaction oldest first and categorizes
// the ones a rule or vendor mapping resolves. Unmatched rows stay pending
// for human review.
func (c *Categorizer) ApplyRules(ctx context.Context) (CategorizeResult, error) {
	active, err := c.Rules.Active(ctx)
	if err != nil {
		return CategorizeResult{}, fmt.Errorf("load rules: %w", err)
	}
	engine := rules.NewEngine(active)

	pending, err := c.Transactions.ByStatus(ctx, repository.StatusPending)
	if err != nil {
		return CategorizeResult{}, err
	}

	res := CategorizeResult{Scanned: len(pending)}
	for _, txn := range pending {
		categoryID, matchedBy := c.resolve(ctx, engine, txn)
		if categoryID == "" {
			continue
		}
		if err := c.Transactions.UpdateStatus(ctx, txn.ID, repository.StatusCategorized, &categoryID); err != nil {
			return res, err
		}
		res.Matched++
		c.log().Info("rule categorized transaction",
			"remote_id", txn.RemoteID, "matched_by", matchedBy, "category", categoryID)
	}
	c.log().Info("rules applied", "scanned", res.Scanned, "matched", res.Matched)
	return res, nil
}

func (c *Categorizer) resolve(ctx context.Context, engine *rules.Engine, txn repository.Transaction) (string, string) {
	if m := engine.FindMatch(txn.Description, txn.VendorName, txn.Amount); m != nil {
		return m.CategoryID, "rule:" + m.Rule.Name
	}
	if txn.VendorName == nil || c.Vendors == nil {
		return "", ""
	}
	mapping, err := c.Vendors.ByName(ctx, *txn.VendorName)
	if err != nil || mapping == nil {
		return "", ""
	}
	return mapping.DefaultCategoryID, "vendor:" + mapping.VendorName
}

func (c *Categorizer) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}
