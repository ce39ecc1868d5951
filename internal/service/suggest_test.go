package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/easycat/internal/database"
	"github.com/jask/easycat/internal/database/repository"
)

func TestSimilarity(t *testing.T) {
	t.Parallel()
	require.Equal(t, 1.0, Similarity("UBER *TRIP", "uber *trip"), "case is ignored")
	require.Equal(t, 1.0, Similarity("", ""))
	require.Equal(t, 0.0, Similarity("ABCD", "WXYZ"))

	near := Similarity("UBER *TRIP 4F2", "UBER *TRIP 9K1")
	require.Greater(t, near, similarityThreshold)

	far := Similarity("UBER *TRIP", "WOOLWORTHS METRO 1009")
	require.Less(t, far, similarityThreshold)
}

func TestSimilarPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newTestStore(t)
	cats := st.categories
	meals := seedCategory(t, cats, "83", "Meals")

	seed := func(remoteID, desc string, day int) repository.Transaction {
		saved, _, err := st.transactions.Upsert(ctx, repository.Transaction{
			RemoteID:    remoteID,
			AccountID:   "35",
			AccountName: "Amex",
			Date:        time.Date(2026, 7, day, 0, 0, 0, 0, time.UTC),
			Amount:      dec("-10.00"),
			Description: desc,
			Status:      repository.StatusPending,
			FetchedAt:   database.Now(),
		})
		require.NoError(t, err)
		return *saved
	}

	target := seed("t1", "MCDONALDS QUEEN ST", 1)
	twin := seed("t2", "MCDONALDS GEORGE ST", 2)
	other := seed("t3", "SHELL COLES EXPRESS", 3)
	reviewed := seed("t4", "MCDONALDS ANN ST", 4)
	require.NoError(t, st.transactions.UpdateStatus(ctx, reviewed.ID, repository.StatusCategorized, &meals.ID))

	s := &Suggester{Transactions: st.transactions}
	got, err := s.SimilarPending(ctx, target)
	require.NoError(t, err)
	require.Len(t, got, 1, "only pending lookalikes qualify")
	require.Equal(t, twin.ID, got[0].ID)

	for _, txn := range got {
		require.NotEqual(t, target.ID, txn.ID, "the target itself is excluded")
		require.NotEqual(t, other.ID, txn.ID)
	}
}
