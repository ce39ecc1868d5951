package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/easycat/internal/database"
	"github.com/jask/easycat/internal/database/repository"
	"github.com/jask/easycat/internal/qbo"
)

type store struct {
	db           *sql.DB
	transactions *repository.TransactionRepo
	categories   *repository.CategoryRepo
}

func newTestStore(t *testing.T) store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrationsWithDB(db))
	return store{
		db:           db,
		transactions: repository.NewTransactionRepo(db),
		categories:   repository.NewCategoryRepo(db),
	}
}

// fakeRemote is an in-memory RemoteSource for service tests.
type fakeRemote struct {
	accounts     []qbo.Account
	accountsErr  error
	purchases    []qbo.Purchase
	purchasesErr error
	byID         map[string]*qbo.Purchase
	fetchErr     map[string]error
	updateErr    map[string]error
	updated      []qbo.Purchase
}

func (f *fakeRemote) CategorizationAccounts(ctx context.Context) ([]qbo.Account, error) {
	return f.accounts, f.accountsErr
}

func (f *fakeRemote) Transactions(ctx context.Context, start, end *time.Time) ([]qbo.Purchase, error) {
	return f.purchases, f.purchasesErr
}

func (f *fakeRemote) Purchase(ctx context.Context, remoteID string) (*qbo.Purchase, error) {
	if err := f.fetchErr[remoteID]; err != nil {
		return nil, err
	}
	p, ok := f.byID[remoteID]
	if !ok {
		return nil, &qbo.APIError{StatusCode: 404, Body: "not found"}
	}
	return p, nil
}

func (f *fakeRemote) UpdatePurchase(ctx context.Context, p *qbo.Purchase) (*qbo.Purchase, error) {
	if err := f.updateErr[p.ID]; err != nil {
		return nil, err
	}
	f.updated = append(f.updated, *p)
	return p, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func strPtr(s string) *string { return &s }

func seedCategory(t *testing.T, repo *repository.CategoryRepo, remoteID, name string) repository.Category {
	t.Helper()
	c, err := repo.Upsert(context.Background(), repository.Category{
		RemoteID:    remoteID,
		Name:        name,
		FullName:    name,
		AccountType: "Expense",
		IsVisible:   true,
		SyncedAt:    database.Now(),
	})
	require.NoError(t, err)
	return *c
}

func expensePurchase(id, date, lineDesc string, total decimal.Decimal, accountRemoteID string) qbo.Purchase {
	line := qbo.Line{
		ID:         "1",
		DetailType: "AccountBasedExpenseLineDetail",
	}
	if lineDesc != "" {
		line.Description = lineDesc
	}
	if accountRemoteID != "" {
		line.AccountDetail = &qbo.AccountDetail{
			AccountRef: &qbo.Ref{Value: accountRemoteID},
		}
	}
	amt := total
	line.Amount = &amt
	return qbo.Purchase{
		ID:          id,
		SyncToken:   "2",
		PaymentType: "CreditCard",
		TxnDate:     date,
		TotalAmt:    total,
		AccountRef:  &qbo.Ref{Value: "35", Name: "Amex"},
		Lines:       []qbo.Line{line},
	}
}
