package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jask/easycat/internal/database/repository"
	"github.com/jask/easycat/internal/qbo"
)

// PostOutcome is the fate of one transaction in a post batch.
type PostOutcome string

const (
	OutcomePosted  PostOutcome = "posted"
	OutcomeSkipped PostOutcome = "skipped"
	OutcomeFailed  PostOutcome = "failed"
)

// PostItem records what happened to one transaction.
type PostItem struct {
	TransactionID string
	RemoteID      string
	Outcome       PostOutcome
	Reason        string
}

// PostResult summarizes a post batch. Partial success is the expected
// norm, never an error.
type PostResult struct {
	Posted  int
	Skipped int
	Failed  int
	Items   []PostItem
}

// Poster pushes human-assigned categories back to QuickBooks with
// per-item fault isolation: one failing transaction never aborts the rest.
type Poster struct {
	Remote       RemoteSource
	Transactions *repository.TransactionRepo
	Categories   *repository.CategoryRepo
	Log          *slog.Logger
}

// PostCategorized walks every categorized transaction oldest first,
// rewrites the remote record's expense lines to the assigned category and
// advances local status on success.
func (p *Poster) PostCategorized(ctx context.Context) (PostResult, error) {
	categorized, err := p.Transactions.ByStatus(ctx, repository.StatusCategorized)
	if err != nil {
		return PostResult{}, err
	}
	p.log().Info("posting categorized transactions", "count", len(categorized))

	var res PostResult
	for _, txn := range categorized {
		item := p.postOne(ctx, txn)
		res.Items = append(res.Items, item)
		switch item.Outcome {
		case OutcomePosted:
			res.Posted++
		case OutcomeSkipped:
			res.Skipped++
		case OutcomeFailed:
			res.Failed++
		}
	}
	return res, nil
}

func (p *Poster) postOne(ctx context.Context, txn repository.Transaction) PostItem {
	item := PostItem{TransactionID: txn.ID, RemoteID: txn.RemoteID}

	if txn.CategoryID == nil {
		item.Outcome = OutcomeSkipped
		item.Reason = "no category assigned"
		p.log().Warn("skipping transaction", "remote_id", txn.RemoteID, "reason", item.Reason)
		return item
	}
	category, err := p.Categories.Get(ctx, *txn.CategoryID)
	if err == nil && category == nil {
		err = fmt.Errorf("category %s not found", *txn.CategoryID)
	}
	if err != nil {
		item.Outcome = OutcomeSkipped
		item.Reason = err.Error()
		p.log().Warn("skipping transaction", "remote_id", txn.RemoteID, "reason", item.Reason)
		return item
	}

	purchase, err := p.Remote.Purchase(ctx, txn.RemoteID)
	if err != nil {
		item.Outcome = OutcomeFailed
		item.Reason = fmt.Sprintf("fetch purchase: %v", err)
		p.log().Error("post failed", "remote_id", txn.RemoteID, "err", err)
		return item
	}

	// Rebuild on a deep copy; the fetched record stays untouched so a
	// failed submit leaves it retryable.
	updated := purchase.Clone()
	updated.Lines = rebuildLines(purchase.Lines, *category)

	if _, err := p.Remote.UpdatePurchase(ctx, &updated); err != nil {
		item.Outcome = OutcomeFailed
		item.Reason = fmt.Sprintf("update purchase: %v", err)
		p.log().Error("post failed", "remote_id", txn.RemoteID, "err", err)
		return item
	}

	if err := p.Transactions.UpdateStatus(ctx, txn.ID, repository.StatusPosted, txn.CategoryID); err != nil {
		item.Outcome = OutcomeFailed
		item.Reason = fmt.Sprintf("advance status: %v", err)
		p.log().Error("post failed", "remote_id", txn.RemoteID, "err", err)
		return item
	}

	item.Outcome = OutcomePosted
	p.log().Info("posted transaction", "remote_id", txn.RemoteID, "category", category.FullName)
	return item
}

// rebuildLines clones every line; account-based expense lines get their
// account reference replaced with the target category, all others are
// copied unchanged.
func rebuildLines(lines []qbo.Line, category repository.Category) []qbo.Line {
	out := make([]qbo.Line, 0, len(lines))
	for _, line := range lines {
		clone := line.Clone()
		if clone.IsAccountExpense() && clone.AccountDetail != nil {
			clone.AccountDetail.AccountRef = &qbo.Ref{
				Value: category.RemoteID,
				Name:  category.FullName,
			}
		}
		out = append(out, clone)
	}
	return out
}

func (p *Poster) log() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}
