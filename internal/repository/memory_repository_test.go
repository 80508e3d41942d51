package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewear/swap-ledger/internal/models"
)

func seedAccount(t *testing.T, repo Repository, id string, balance int64) {
	t.Helper()
	ctx := context.Background()
	created, err := repo.UpsertAccount(ctx, &models.Account{ID: id, Email: id + "@example.com"})
	require.NoError(t, err)
	require.True(t, created)
	if balance > 0 {
		require.NoError(t, repo.AppendEntries(ctx, []models.LedgerEntry{{AccountID: id, Delta: balance, Reason: models.ReasonAdminAdjustment}}))
	}
}

func TestMemoryUpsertAccount(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	acc := &models.Account{ID: "u1", Email: "a@example.com", Name: "A", PointsBalance: 999}
	created, err := repo.UpsertAccount(ctx, acc)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(0), acc.PointsBalance, "balance is never taken from the caller")

	require.NoError(t, repo.AppendEntries(ctx, []models.LedgerEntry{{AccountID: "u1", Delta: 10, Reason: models.ReasonSignupBonus}}))

	acc = &models.Account{ID: "u1", Email: "b@example.com", Name: "B"}
	created, err = repo.UpsertAccount(ctx, acc)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "b@example.com", acc.Email)
	assert.Equal(t, int64(10), acc.PointsBalance)

	n, err := repo.CountAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryAppendEntries(t *testing.T) {
	ctx := context.Background()
	itemID := "item-1"

	swapPair := func(spender, earner string, points int64) []models.LedgerEntry {
		return []models.LedgerEntry{
			{AccountID: spender, Delta: -points, Reason: models.ReasonSwapSpend, RelatedItemID: &itemID},
			{AccountID: earner, Delta: points, Reason: models.ReasonSwapEarn, RelatedItemID: &itemID},
		}
	}

	t.Run("applies the batch", func(t *testing.T) {
		repo := NewMemoryRepository()
		seedAccount(t, repo, "b", 50)
		seedAccount(t, repo, "a", 0)

		require.NoError(t, repo.AppendEntries(ctx, swapPair("b", "a", 30)))

		bal, _ := repo.GetBalance(ctx, "b")
		assert.Equal(t, int64(20), bal)
		bal, _ = repo.GetBalance(ctx, "a")
		assert.Equal(t, int64(30), bal)

		sum, err := repo.SumEntries(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, int64(20), sum)
	})

	t.Run("refuses a negative balance without writing", func(t *testing.T) {
		repo := NewMemoryRepository()
		seedAccount(t, repo, "b", 10)
		seedAccount(t, repo, "a", 0)

		err := repo.AppendEntries(ctx, swapPair("b", "a", 30))
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		bal, _ := repo.GetBalance(ctx, "a")
		assert.Equal(t, int64(0), bal)
		entries, _ := repo.ListEntries(ctx, "a", 0)
		assert.Empty(t, entries)
	})

	t.Run("unknown account", func(t *testing.T) {
		repo := NewMemoryRepository()
		seedAccount(t, repo, "b", 50)

		err := repo.AppendEntries(ctx, swapPair("b", "ghost", 30))
		assert.ErrorIs(t, err, ErrNotFound)
		bal, _ := repo.GetBalance(ctx, "b")
		assert.Equal(t, int64(50), bal)
	})

	t.Run("swap entries are unique per item", func(t *testing.T) {
		repo := NewMemoryRepository()
		seedAccount(t, repo, "b", 100)
		seedAccount(t, repo, "a", 0)

		require.NoError(t, repo.AppendEntries(ctx, swapPair("b", "a", 30)))
		err := repo.AppendEntries(ctx, swapPair("b", "a", 30))
		assert.ErrorIs(t, err, ErrDuplicateKey)

		bal, _ := repo.GetBalance(ctx, "b")
		assert.Equal(t, int64(70), bal)
	})
}

func TestMemoryUpdateItemStatus(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	item := &models.Item{OwnerID: "a", Title: "t", Status: models.StatusAvailable, Version: 7}
	require.NoError(t, repo.CreateItem(ctx, item))
	assert.Equal(t, models.StatusDraft, item.Status)
	assert.Equal(t, int64(1), item.Version)

	_, err := repo.UpdateItemStatus(ctx, models.StatusUpdate{ItemID: item.ID, ExpectedVersion: 2, Status: models.StatusPendingReview})
	assert.ErrorIs(t, err, ErrVersionConflict)

	_, err = repo.UpdateItemStatus(ctx, models.StatusUpdate{ItemID: item.ID, ExpectedVersion: 1, Status: models.StatusSwapped})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = repo.UpdateItemStatus(ctx, models.StatusUpdate{ItemID: "missing", ExpectedVersion: 1, Status: models.StatusPendingReview})
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := repo.UpdateItemStatus(ctx, models.StatusUpdate{ItemID: item.ID, ExpectedVersion: 1, Status: models.StatusPendingReview})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Nil(t, updated.SwappedBy)

	updated, err = repo.UpdateItemStatus(ctx, models.StatusUpdate{ItemID: item.ID, ExpectedVersion: 2, Status: models.StatusAvailable})
	require.NoError(t, err)
	updated, err = repo.UpdateItemStatus(ctx, models.StatusUpdate{ItemID: item.ID, ExpectedVersion: 3, Status: models.StatusSwapped, SwappedBy: "b"})
	require.NoError(t, err)
	require.NotNil(t, updated.SwappedBy)
	assert.Equal(t, "b", *updated.SwappedBy)
	assert.NotNil(t, updated.SwappedAt)
	assert.Equal(t, "a", updated.OwnerID)
}

func TestMemoryWithTxRollsBack(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	seedAccount(t, repo, "a", 0)

	boom := errors.New("boom")
	err := repo.WithTx(ctx, func(tx Repository) error {
		require.NoError(t, tx.AppendEntries(ctx, []models.LedgerEntry{{AccountID: "a", Delta: 40, Reason: models.ReasonAdminAdjustment}}))
		bal, err := tx.GetBalance(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, int64(40), bal, "writes are visible inside the unit of work")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	bal, err := repo.GetBalance(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal)

	entries, err := repo.ListEntries(ctx, "a", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemoryWithTxCancelledContext(t *testing.T) {
	repo := NewMemoryRepository()
	seedAccount(t, repo, "a", 0)

	ctx, cancel := context.WithCancel(context.Background())
	err := repo.WithTx(ctx, func(tx Repository) error {
		if err := tx.AppendEntries(ctx, []models.LedgerEntry{{AccountID: "a", Delta: 5, Reason: models.ReasonAdminAdjustment}}); err != nil {
			return err
		}
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	bal, _ := repo.GetBalance(context.Background(), "a")
	assert.Equal(t, int64(0), bal)
}

func TestMemoryListItems(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for _, p := range []int64{30, 10, 20} {
		require.NoError(t, repo.CreateItem(ctx, &models.Item{OwnerID: "a", Category: "Tops", PointsValue: p}))
	}
	require.NoError(t, repo.CreateItem(ctx, &models.Item{OwnerID: "b", Category: "shoes", PointsValue: 5}))

	items, err := repo.ListItems(ctx, models.ItemFilter{OwnerID: "a", Sort: "pointsValue", Order: "asc"})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []int64{10, 20, 30}, []int64{items[0].PointsValue, items[1].PointsValue, items[2].PointsValue})

	items, err = repo.ListItems(ctx, models.ItemFilter{Category: "tops", Sort: "pointsValue", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(20), items[0].PointsValue)

	items, err = repo.ListItems(ctx, models.ItemFilter{Status: models.StatusAvailable})
	require.NoError(t, err)
	assert.Empty(t, items)

	counts, err := repo.CountItemsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), counts[models.StatusDraft])
}

func TestMemorySwaps(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.CreateSwap(ctx, &models.SwapTransaction{ID: "s1", ItemID: "i1", FromAccountID: "a", ToAccountID: "b", Status: models.SwapCommitted}))
	require.NoError(t, repo.CreateSwap(ctx, &models.SwapTransaction{ID: "s2", ItemID: "i2", FromAccountID: "c", ToAccountID: "b", Status: models.SwapRejected}))
	assert.ErrorIs(t, repo.CreateSwap(ctx, &models.SwapTransaction{ID: "s1"}), ErrDuplicateKey)

	swaps, err := repo.ListSwapsByAccount(ctx, "b", 0)
	require.NoError(t, err)
	require.Len(t, swaps, 2)
	assert.Equal(t, "s2", swaps[0].ID, "newest first")

	swaps, err = repo.ListSwapsByAccount(ctx, "a", 0)
	require.NoError(t, err)
	assert.Len(t, swaps, 1)

	counts, err := repo.CountSwapsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.SwapCommitted])
	assert.Equal(t, int64(1), counts[models.SwapRejected])
}

func TestMemoryTestimonialStore(t *testing.T) {
	store := NewMemoryTestimonialStore()
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		require.NoError(t, store.CreateTestimonial(ctx, &models.Testimonial{
			Name:      name,
			Message:   "hi",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := store.ListTestimonials(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Name)
	assert.NotEmpty(t, got[0].ID)
}
