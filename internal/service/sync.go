package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jask/easycat/internal/database"
	"github.com/jask/easycat/internal/database/repository"
	"github.com/jask/easycat/internal/qbo"
)

// RemoteSource is the slice of the QuickBooks client the services use.
type RemoteSource interface {
	CategorizationAccounts(ctx context.Context) ([]qbo.Account, error)
	Transactions(ctx context.Context, start, end *time.Time) ([]qbo.Purchase, error)
	Purchase(ctx context.Context, remoteID string) (*qbo.Purchase, error)
	UpdatePurchase(ctx context.Context, p *qbo.Purchase) (*qbo.Purchase, error)
}

// SyncResult summarizes one sync call.
type SyncResult struct {
	Fetched int
	Created int
	Updated int
}

// Syncer merges remote records into the store. A fetch failure aborts the
// whole call; each row's upsert commits independently and is idempotent,
// so retrying the whole sync later converges without duplication.
type Syncer struct {
	Remote       RemoteSource
	Transactions *repository.TransactionRepo
	Categories   *repository.CategoryRepo
	Log          *slog.Logger
}

// SyncCategories fetches all categorization-eligible accounts and upserts
// them 1:1.
func (s *Syncer) SyncCategories(ctx context.Context) (int, error) {
	accounts, err := s.Remote.CategorizationAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch accounts: %w", err)
	}
	for _, a := range accounts {
		c := repository.Category{
			RemoteID:       a.ID,
			Name:           a.Name,
			FullName:       a.FullyQualifiedName(),
			ParentRemoteID: a.ParentID(),
			AccountType:    a.AccountType,
			IsVisible:      true,
			SyncedAt:       database.Now(),
		}
		if _, err := s.Categories.Upsert(ctx, c); err != nil {
			return 0, err
		}
	}
	s.log().Info("categories synced", "count", len(accounts))
	return len(accounts), nil
}

// SyncTransactions fetches purchases in the date range and merges them.
// Candidates always carry pending status; the store's upsert preserves the
// status and category of rows a human already reviewed.
func (s *Syncer) SyncTransactions(ctx context.Context, start, end *time.Time) (SyncResult, error) {
	purchases, err := s.Remote.Transactions(ctx, start, end)
	if err != nil {
		return SyncResult{}, fmt.Errorf("fetch transactions: %w", err)
	}

	categories, err := s.Categories.All(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	byRemote := make(map[string]repository.Category, len(categories))
	for _, c := range categories {
		byRemote[c.RemoteID] = c
	}

	res := SyncResult{Fetched: len(purchases)}
	for _, p := range purchases {
		candidate := candidateFromPurchase(p, byRemote)
		_, created, err := s.Transactions.Upsert(ctx, candidate)
		if err != nil {
			return res, err
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	s.log().Info("transactions synced", "fetched", res.Fetched, "created", res.Created, "updated", res.Updated)
	return res, nil
}

// candidateFromPurchase converts a remote purchase into a store candidate.
// Description precedence: first line item, then memo, then a synthesized
// "Purchase <doc>" label. The remote total is positive for expenses, so it
// is negated on the way in.
func candidateFromPurchase(p qbo.Purchase, byRemote map[string]repository.Category) repository.Transaction {
	description := p.PrivateNote
	if len(p.Lines) > 0 && p.Lines[0].Description != "" {
		description = p.Lines[0].Description
	}
	if description == "" {
		ref := p.DocNumber
		if ref == "" {
			ref = p.ID
		}
		description = "Purchase " + ref
	}

	var categoryID *string
	if len(p.Lines) > 0 && p.Lines[0].AccountDetail != nil && p.Lines[0].AccountDetail.AccountRef != nil {
		if cat, ok := byRemote[p.Lines[0].AccountDetail.AccountRef.Value]; ok {
			id := cat.ID
			categoryID = &id
		}
	}

	var vendor *string
	if p.EntityRef != nil && p.EntityRef.Name != "" {
		name := p.EntityRef.Name
		vendor = &name
	}

	var accountID, accountName string
	if p.AccountRef != nil {
		accountID = p.AccountRef.Value
		accountName = p.AccountRef.Name
	}

	date, err := time.Parse("2006-01-02", p.TxnDate)
	if err != nil {
		date = time.Time{}
	}

	return repository.Transaction{
		RemoteID:    p.ID,
		AccountID:   accountID,
		AccountName: accountName,
		Date:        date,
		Amount:      p.TotalAmt.Neg(),
		Description: description,
		VendorName:  vendor,
		Status:      repository.StatusPending,
		CategoryID:  categoryID,
		FetchedAt:   database.Now(),
	}
}

func (s *Syncer) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
