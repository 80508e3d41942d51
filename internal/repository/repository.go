package repository

import (
	"context"

	"github.com/rewear/swap-ledger/internal/models"
)

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// Item catalog operations
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id string) (*models.Item, error)
	ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error)
	UpdateItemStatus(ctx context.Context, update models.StatusUpdate) (*models.Item, error)
	CountItemsByStatus(ctx context.Context) (map[models.ItemStatus]int64, error)

	// Account operations
	UpsertAccount(ctx context.Context, account *models.Account) (bool, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]models.Account, error)
	CountAccounts(ctx context.Context) (int64, error)

	// Ledger operations
	GetBalance(ctx context.Context, accountID string) (int64, error)
	AppendEntries(ctx context.Context, entries []models.LedgerEntry) error
	ListEntries(ctx context.Context, accountID string, limit int) ([]models.LedgerEntry, error)
	SumEntries(ctx context.Context, accountID string) (int64, error)

	// Swap record operations
	CreateSwap(ctx context.Context, swap *models.SwapTransaction) error
	ListSwapsByAccount(ctx context.Context, accountID string, limit int) ([]models.SwapTransaction, error)
	CountSwapsByStatus(ctx context.Context) (map[models.SwapStatus]int64, error)

	// WithTx runs fn against a repository bound to a single atomic unit of
	// work. If fn returns an error nothing it wrote is kept. Calling WithTx
	// on a repository that is already inside a unit of work reuses it.
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}

const defaultListLimit = 50

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return defaultListLimit
	}
	return limit
}
