package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rewear/swap-ledger/internal/models"
)

// MemoryRepository implements the Repository interface in process memory.
// A unit of work runs against a staged copy of the state under the store lock
// and replaces the live state only when it succeeds.
type MemoryRepository struct {
	mu    sync.RWMutex
	state *memState
}

type memState struct {
	items     map[string]models.Item
	accounts  map[string]models.Account
	entries   []models.LedgerEntry
	swaps     []models.SwapTransaction
	entryKeys map[string]struct{}
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		state: &memState{
			items:     make(map[string]models.Item),
			accounts:  make(map[string]models.Account),
			entryKeys: make(map[string]struct{}),
		},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		items:     make(map[string]models.Item, len(s.items)),
		accounts:  make(map[string]models.Account, len(s.accounts)),
		entries:   append([]models.LedgerEntry(nil), s.entries...),
		swaps:     append([]models.SwapTransaction(nil), s.swaps...),
		entryKeys: make(map[string]struct{}, len(s.entryKeys)),
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k := range s.entryKeys {
		c.entryKeys[k] = struct{}{}
	}
	return c
}

func (r *MemoryRepository) read(fn func(tx *memoryTx) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn(&memoryTx{state: r.state})
}

func (r *MemoryRepository) write(ctx context.Context, fn func(tx *memoryTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staged := r.state.clone()
	if err := fn(&memoryTx{state: staged}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.state = staged
	return nil
}

// WithTx runs fn against a staged copy of the store. Concurrent units of work
// are serialised by the store lock.
func (r *MemoryRepository) WithTx(ctx context.Context, fn func(tx Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.write(ctx, func(tx *memoryTx) error { return fn(tx) })
}

func (r *MemoryRepository) CreateItem(ctx context.Context, item *models.Item) error {
	return r.write(ctx, func(tx *memoryTx) error { return tx.CreateItem(ctx, item) })
}

func (r *MemoryRepository) GetItem(ctx context.Context, id string) (*models.Item, error) {
	var item *models.Item
	err := r.read(func(tx *memoryTx) error {
		var err error
		item, err = tx.GetItem(ctx, id)
		return err
	})
	return item, err
}

func (r *MemoryRepository) ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	var items []models.Item
	err := r.read(func(tx *memoryTx) error {
		var err error
		items, err = tx.ListItems(ctx, filter)
		return err
	})
	return items, err
}

func (r *MemoryRepository) UpdateItemStatus(ctx context.Context, update models.StatusUpdate) (*models.Item, error) {
	var item *models.Item
	err := r.write(ctx, func(tx *memoryTx) error {
		var err error
		item, err = tx.UpdateItemStatus(ctx, update)
		return err
	})
	return item, err
}

func (r *MemoryRepository) CountItemsByStatus(ctx context.Context) (map[models.ItemStatus]int64, error) {
	var counts map[models.ItemStatus]int64
	err := r.read(func(tx *memoryTx) error {
		var err error
		counts, err = tx.CountItemsByStatus(ctx)
		return err
	})
	return counts, err
}

func (r *MemoryRepository) UpsertAccount(ctx context.Context, account *models.Account) (bool, error) {
	var created bool
	err := r.write(ctx, func(tx *memoryTx) error {
		var err error
		created, err = tx.UpsertAccount(ctx, account)
		return err
	})
	return created, err
}

func (r *MemoryRepository) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var account *models.Account
	err := r.read(func(tx *memoryTx) error {
		var err error
		account, err = tx.GetAccount(ctx, id)
		return err
	})
	return account, err
}

func (r *MemoryRepository) ListAccounts(ctx context.Context, limit, offset int) ([]models.Account, error) {
	var accounts []models.Account
	err := r.read(func(tx *memoryTx) error {
		var err error
		accounts, err = tx.ListAccounts(ctx, limit, offset)
		return err
	})
	return accounts, err
}

func (r *MemoryRepository) CountAccounts(ctx context.Context) (int64, error) {
	var n int64
	err := r.read(func(tx *memoryTx) error {
		var err error
		n, err = tx.CountAccounts(ctx)
		return err
	})
	return n, err
}

func (r *MemoryRepository) GetBalance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := r.read(func(tx *memoryTx) error {
		var err error
		balance, err = tx.GetBalance(ctx, accountID)
		return err
	})
	return balance, err
}

func (r *MemoryRepository) AppendEntries(ctx context.Context, entries []models.LedgerEntry) error {
	return r.write(ctx, func(tx *memoryTx) error { return tx.AppendEntries(ctx, entries) })
}

func (r *MemoryRepository) ListEntries(ctx context.Context, accountID string, limit int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.read(func(tx *memoryTx) error {
		var err error
		entries, err = tx.ListEntries(ctx, accountID, limit)
		return err
	})
	return entries, err
}

func (r *MemoryRepository) SumEntries(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	err := r.read(func(tx *memoryTx) error {
		var err error
		sum, err = tx.SumEntries(ctx, accountID)
		return err
	})
	return sum, err
}

func (r *MemoryRepository) CreateSwap(ctx context.Context, swap *models.SwapTransaction) error {
	return r.write(ctx, func(tx *memoryTx) error { return tx.CreateSwap(ctx, swap) })
}

func (r *MemoryRepository) ListSwapsByAccount(ctx context.Context, accountID string, limit int) ([]models.SwapTransaction, error) {
	var swaps []models.SwapTransaction
	err := r.read(func(tx *memoryTx) error {
		var err error
		swaps, err = tx.ListSwapsByAccount(ctx, accountID, limit)
		return err
	})
	return swaps, err
}

func (r *MemoryRepository) CountSwapsByStatus(ctx context.Context) (map[models.SwapStatus]int64, error) {
	var counts map[models.SwapStatus]int64
	err := r.read(func(tx *memoryTx) error {
		var err error
		counts, err = tx.CountSwapsByStatus(ctx)
		return err
	})
	return counts, err
}

// memoryTx operates directly on one memState. The owning MemoryRepository
// holds the lock for as long as a memoryTx is in use.
type memoryTx struct {
	state *memState
}

func (tx *memoryTx) WithTx(ctx context.Context, fn func(tx Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(tx)
}

func copyItem(item models.Item) *models.Item {
	item.Images = append([]string(nil), item.Images...)
	return &item
}

func (tx *memoryTx) CreateItem(ctx context.Context, item *models.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if _, exists := tx.state.items[item.ID]; exists {
		return ErrDuplicateKey
	}

	now := time.Now().UTC()
	item.Status = models.StatusDraft
	item.Version = 1
	item.SwappedBy = nil
	item.SwappedAt = nil
	item.CreatedAt = now
	item.UpdatedAt = now

	tx.state.items[item.ID] = *copyItem(*item)
	return nil
}

func (tx *memoryTx) GetItem(ctx context.Context, id string) (*models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	item, ok := tx.state.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyItem(item), nil
}

func (tx *memoryTx) ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]models.Item, 0)
	for _, item := range tx.state.items {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.OwnerID != "" && item.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(item.Category, filter.Category) {
			continue
		}
		items = append(items, *copyItem(item))
	}

	desc := filter.Order != "asc"
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if filter.Sort == "pointsValue" && a.PointsValue != b.PointsValue {
			if desc {
				return a.PointsValue > b.PointsValue
			}
			return a.PointsValue < b.PointsValue
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if desc {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	return page(items, filter.Limit, filter.Offset), nil
}

func page[T any](rows []T, limit, offset int) []T {
	limit = normalizeLimit(limit)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return rows[:0]
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func (tx *memoryTx) UpdateItemStatus(ctx context.Context, update models.StatusUpdate) (*models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	item, ok := tx.state.items[update.ItemID]
	if !ok {
		return nil, ErrNotFound
	}
	if item.Version != update.ExpectedVersion {
		return nil, ErrVersionConflict
	}
	if !models.CanTransition(item.Status, update.Status) {
		return nil, ErrInvalidTransition
	}

	at := update.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	item.Status = update.Status
	item.Version++
	item.UpdatedAt = at
	if update.Status == models.StatusSwapped {
		by := update.SwappedBy
		item.SwappedBy = &by
		item.SwappedAt = &at
	}

	tx.state.items[item.ID] = item
	return copyItem(item), nil
}

func (tx *memoryTx) CountItemsByStatus(ctx context.Context) (map[models.ItemStatus]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := make(map[models.ItemStatus]int64)
	for _, item := range tx.state.items {
		counts[item.Status]++
	}
	return counts, nil
}

func (tx *memoryTx) UpsertAccount(ctx context.Context, account *models.Account) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	now := time.Now().UTC()

	existing, ok := tx.state.accounts[account.ID]
	if ok {
		existing.Email = account.Email
		existing.Name = account.Name
		existing.PhotoURL = account.PhotoURL
		existing.UpdatedAt = now
		tx.state.accounts[account.ID] = existing
		*account = existing
		return false, nil
	}

	account.PointsBalance = 0
	account.CreatedAt = now
	account.UpdatedAt = now
	tx.state.accounts[account.ID] = *account
	return true, nil
}

func (tx *memoryTx) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	account, ok := tx.state.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &account, nil
}

func (tx *memoryTx) ListAccounts(ctx context.Context, limit, offset int) ([]models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	accounts := make([]models.Account, 0, len(tx.state.accounts))
	for _, account := range tx.state.accounts {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.After(accounts[j].CreatedAt)
		}
		return accounts[i].ID < accounts[j].ID
	})
	return page(accounts, limit, offset), nil
}

func (tx *memoryTx) CountAccounts(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(tx.state.accounts)), nil
}

func (tx *memoryTx) GetBalance(ctx context.Context, accountID string) (int64, error) {
	account, err := tx.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return account.PointsBalance, nil
}

func entryKey(e models.LedgerEntry) (string, bool) {
	if !e.Reason.IsSwap() || e.RelatedItemID == nil {
		return "", false
	}
	return *e.RelatedItemID + "/" + string(e.Reason), true
}

func (tx *memoryTx) AppendEntries(ctx context.Context, entries []models.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Validate the whole batch against the starting balances before writing
	deltas := make(map[string]int64)
	seen := make(map[string]struct{})
	for _, e := range entries {
		if _, ok := tx.state.accounts[e.AccountID]; !ok {
			return ErrNotFound
		}
		deltas[e.AccountID] += e.Delta
		if key, ok := entryKey(e); ok {
			if _, dup := tx.state.entryKeys[key]; dup {
				return ErrDuplicateKey
			}
			if _, dup := seen[key]; dup {
				return ErrDuplicateKey
			}
			seen[key] = struct{}{}
		}
	}
	for id, delta := range deltas {
		if tx.state.accounts[id].PointsBalance+delta < 0 {
			return ErrInsufficientFunds
		}
	}

	now := time.Now().UTC()
	for id, delta := range deltas {
		account := tx.state.accounts[id]
		account.PointsBalance += delta
		account.UpdatedAt = now
		tx.state.accounts[id] = account
	}
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.New().String()
		}
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = now
		}
		tx.state.entries = append(tx.state.entries, entries[i])
	}
	for key := range seen {
		tx.state.entryKeys[key] = struct{}{}
	}
	return nil
}

func (tx *memoryTx) ListEntries(ctx context.Context, accountID string, limit int) ([]models.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = normalizeLimit(limit)
	entries := make([]models.LedgerEntry, 0)
	for i := len(tx.state.entries) - 1; i >= 0 && len(entries) < limit; i-- {
		if tx.state.entries[i].AccountID == accountID {
			entries = append(entries, tx.state.entries[i])
		}
	}
	return entries, nil
}

func (tx *memoryTx) SumEntries(ctx context.Context, accountID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if _, ok := tx.state.accounts[accountID]; !ok {
		return 0, ErrNotFound
	}
	var sum int64
	for _, e := range tx.state.entries {
		if e.AccountID == accountID {
			sum += e.Delta
		}
	}
	return sum, nil
}

func (tx *memoryTx) CreateSwap(ctx context.Context, swap *models.SwapTransaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if swap.ID == "" {
		swap.ID = uuid.New().String()
	}
	for _, existing := range tx.state.swaps {
		if existing.ID == swap.ID {
			return ErrDuplicateKey
		}
	}
	if swap.CreatedAt.IsZero() {
		swap.CreatedAt = time.Now().UTC()
	}
	tx.state.swaps = append(tx.state.swaps, *swap)
	return nil
}

func (tx *memoryTx) ListSwapsByAccount(ctx context.Context, accountID string, limit int) ([]models.SwapTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = normalizeLimit(limit)
	swaps := make([]models.SwapTransaction, 0)
	for i := len(tx.state.swaps) - 1; i >= 0 && len(swaps) < limit; i-- {
		s := tx.state.swaps[i]
		if s.FromAccountID == accountID || s.ToAccountID == accountID {
			swaps = append(swaps, s)
		}
	}
	return swaps, nil
}

func (tx *memoryTx) CountSwapsByStatus(ctx context.Context) (map[models.SwapStatus]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := make(map[models.SwapStatus]int64)
	for _, s := range tx.state.swaps {
		counts[s.Status]++
	}
	return counts, nil
}
