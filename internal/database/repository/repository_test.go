package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/easycat/internal/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrationsWithDB(db))
	return db
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

func seedCategory(t *testing.T, repo *CategoryRepo, remoteID, name string) Category {
	t.Helper()
	c, err := repo.Upsert(context.Background(), Category{
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

func seedTransaction(remoteID, description string, amount decimal.Decimal, date time.Time) Transaction {
	return Transaction{
		RemoteID:    remoteID,
		AccountID:   "35",
		AccountName: "Amex",
		Date:        date,
		Amount:      amount,
		Description: description,
		Status:      StatusPending,
		FetchedAt:   database.Now(),
	}
}
