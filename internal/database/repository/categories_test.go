package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/easycat/internal/database"
)

func TestCategoryUpsertPreservesLocalPreferences(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewCategoryRepo(db)

	first, err := repo.Upsert(ctx, Category{
		RemoteID:    "60",
		Name:        "Utilities",
		FullName:    "Utilities",
		AccountType: "Expense",
		IsVisible:   true,
		SyncedAt:    database.Now(),
	})
	require.NoError(t, err)

	// the user hides and reorders it locally
	require.NoError(t, repo.SetVisibility(ctx, first.ID, false))
	require.NoError(t, repo.SetDisplayOrder(ctx, first.ID, 7))

	// remote renames the account; next sync upserts again with defaults
	second, err := repo.Upsert(ctx, Category{
		RemoteID:    "60",
		Name:        "Utilities & Power",
		FullName:    "Utilities & Power",
		AccountType: "Expense",
		IsVisible:   true,
		SyncedAt:    database.Now(),
	})
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Utilities & Power", second.Name)
	require.False(t, second.IsVisible, "visibility survives re-sync")
	require.Equal(t, 7, second.DisplayOrder, "display order survives re-sync")
}

func TestCategoryChildrenJoinOnRemoteID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewCategoryRepo(db)

	parent, err := repo.Upsert(ctx, Category{
		RemoteID:    "10",
		Name:        "Travel",
		FullName:    "Travel",
		AccountType: "Expense",
		IsVisible:   true,
		SyncedAt:    database.Now(),
	})
	require.NoError(t, err)

	_, err = repo.Upsert(ctx, Category{
		RemoteID:       "11",
		Name:           "Flights",
		FullName:       "Travel:Flights",
		ParentRemoteID: strPtr("10"),
		AccountType:    "Expense",
		IsVisible:      true,
		SyncedAt:       database.Now(),
	})
	require.NoError(t, err)

	// a child keyed on the parent's LOCAL id must not match
	_, err = repo.Upsert(ctx, Category{
		RemoteID:       "12",
		Name:           "Stray",
		FullName:       "Stray",
		ParentRemoteID: &parent.ID,
		AccountType:    "Expense",
		IsVisible:      true,
		SyncedAt:       database.Now(),
	})
	require.NoError(t, err)

	kids, err := repo.Children(ctx, *parent)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	require.Equal(t, "Flights", kids[0].Name)
}

func TestCategoryVisibleFiltersAndOrders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewCategoryRepo(db)

	shown := seedCategory(t, repo, "1", "Meals")
	hidden := seedCategory(t, repo, "2", "Equity Drawings")
	late := seedCategory(t, repo, "3", "Advertising")

	require.NoError(t, repo.SetVisibility(ctx, hidden.ID, false))
	require.NoError(t, repo.SetDisplayOrder(ctx, late.ID, 5))

	got, err := repo.Visible(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, shown.ID, got[0].ID)
	require.Equal(t, late.ID, got[1].ID)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
}
