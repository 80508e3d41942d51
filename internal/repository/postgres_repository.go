package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rewear/swap-ledger/internal/models"
)

const (
	itemColumns = `id, owner_id, title, description, category, size, condition, images,
		status, points_value, version, swapped_by, swapped_at, created_at, updated_at`
	accountColumns = `id, email, name, photo_url, points_balance, created_at, updated_at`
	entryColumns   = `id, account_id, delta, reason, related_item_id, swap_id, note, created_at`
	swapColumns    = `id, item_id, from_account_id, to_account_id, points_amount, status, reason,
		created_at, resolved_at`
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
	q  sqlx.ExtContext
	tx *sqlx.Tx
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		q:  db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// WithTx runs fn inside a database transaction. The transaction is rolled
// back if fn returns an error or the context is cancelled before commit.
func (r *PostgresRepository) WithTx(ctx context.Context, fn func(tx Repository) error) (err error) {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(&PostgresRepository{db: r.db, q: tx, tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, pqErr.Constraint)
	}
	return err
}

// Item repository methods
func (r *PostgresRepository) CreateItem(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (id, owner_id, title, description, category, size, condition, images,
			status, points_value, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	// Generate a new UUID if not provided
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Images == nil {
		item.Images = pq.StringArray{}
	}

	now := time.Now().UTC()
	item.Status = models.StatusDraft
	item.Version = 1
	item.SwappedBy = nil
	item.SwappedAt = nil
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := r.q.ExecContext(ctx, query,
		item.ID, item.OwnerID, item.Title, item.Description, item.Category, item.Size,
		item.Condition, item.Images, item.Status, item.PointsValue, item.Version,
		item.CreatedAt, item.UpdatedAt)

	return mapError(err)
}

func (r *PostgresRepository) GetItem(ctx context.Context, id string) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	var item models.Item
	if err := sqlx.GetContext(ctx, r.q, &item, query, id); err != nil {
		return nil, mapError(err)
	}

	return &item, nil
}

var itemSortColumns = map[string]string{
	"":            "created_at",
	"createdAt":   "created_at",
	"pointsValue": "points_value",
}

func (r *PostgresRepository) ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		conds = append(conds, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("LOWER(category) = LOWER($%d)", len(args)))
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}

	column, ok := itemSortColumns[filter.Sort]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if filter.Order == "asc" {
		direction = "ASC"
	}
	orderBy := fmt.Sprintf("%s %s", column, direction)
	if column != "created_at" {
		orderBy += fmt.Sprintf(", created_at %s", direction)
	}
	query += ` ORDER BY ` + orderBy + `, id ASC`

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, normalizeLimit(filter.Limit), offset)
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	items := []models.Item{}
	if err := sqlx.SelectContext(ctx, r.q, &items, query, args...); err != nil {
		return nil, err
	}

	return items, nil
}

// UpdateItemStatus locks the item row, checks the version token and the
// transition, then bumps the version.
func (r *PostgresRepository) UpdateItemStatus(ctx context.Context, update models.StatusUpdate) (*models.Item, error) {
	var updated *models.Item
	err := r.WithTx(ctx, func(tx Repository) error {
		pg := tx.(*PostgresRepository)

		var current struct {
			Status  models.ItemStatus `db:"status"`
			Version int64             `db:"version"`
		}
		err := sqlx.GetContext(ctx, pg.q, &current,
			`SELECT status, version FROM items WHERE id = $1 FOR UPDATE`, update.ItemID)
		if err != nil {
			return mapError(err)
		}
		if current.Version != update.ExpectedVersion {
			return ErrVersionConflict
		}
		if !models.CanTransition(current.Status, update.Status) {
			return ErrInvalidTransition
		}

		at := update.At
		if at.IsZero() {
			at = time.Now().UTC()
		}
		var swappedBy *string
		var swappedAt *time.Time
		if update.Status == models.StatusSwapped {
			swappedBy = &update.SwappedBy
			swappedAt = &at
		}

		var item models.Item
		err = sqlx.GetContext(ctx, pg.q, &item, `
			UPDATE items
			SET status = $1, version = version + 1, updated_at = $2,
				swapped_by = COALESCE($3, swapped_by), swapped_at = COALESCE($4, swapped_at)
			WHERE id = $5 AND version = $6
			RETURNING `+itemColumns,
			update.Status, at, swappedBy, swappedAt, update.ItemID, update.ExpectedVersion)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVersionConflict
		}
		if err != nil {
			return err
		}

		updated = &item
		return nil
	})

	return updated, err
}

func (r *PostgresRepository) CountItemsByStatus(ctx context.Context) (map[models.ItemStatus]int64, error) {
	var rows []struct {
		Status models.ItemStatus `db:"status"`
		Count  int64             `db:"count"`
	}
	err := sqlx.SelectContext(ctx, r.q, &rows, `SELECT status, COUNT(*) AS count FROM items GROUP BY status`)
	if err != nil {
		return nil, err
	}

	counts := make(map[models.ItemStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Account repository methods
func (r *PostgresRepository) UpsertAccount(ctx context.Context, account *models.Account) (bool, error) {
	query := `
		INSERT INTO accounts (id, email, name, photo_url, points_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $5)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, name = EXCLUDED.name, photo_url = EXCLUDED.photo_url,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + accountColumns + `, (xmax = 0) AS created
	`

	var row struct {
		models.Account
		Created bool `db:"created"`
	}
	err := sqlx.GetContext(ctx, r.q, &row, query,
		account.ID, account.Email, account.Name, account.PhotoURL, time.Now().UTC())
	if err != nil {
		return false, mapError(err)
	}

	*account = row.Account
	return row.Created, nil
}

func (r *PostgresRepository) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	var account models.Account
	if err := sqlx.GetContext(ctx, r.q, &account, query, id); err != nil {
		return nil, mapError(err)
	}

	return &account, nil
}

func (r *PostgresRepository) ListAccounts(ctx context.Context, limit, offset int) ([]models.Account, error) {
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC, id ASC LIMIT $1 OFFSET $2`

	accounts := []models.Account{}
	if err := sqlx.SelectContext(ctx, r.q, &accounts, query, normalizeLimit(limit), offset); err != nil {
		return nil, err
	}

	return accounts, nil
}

func (r *PostgresRepository) CountAccounts(ctx context.Context) (int64, error) {
	var n int64
	if err := sqlx.GetContext(ctx, r.q, &n, `SELECT COUNT(*) FROM accounts`); err != nil {
		return 0, err
	}
	return n, nil
}

// Ledger repository methods
func (r *PostgresRepository) GetBalance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := sqlx.GetContext(ctx, r.q, &balance, `SELECT points_balance FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return 0, mapError(err)
	}
	return balance, nil
}

// AppendEntries applies a batch of entries atomically. Each account's balance
// is moved with a guarded update so a concurrent writer cannot observe or
// produce a negative balance.
func (r *PostgresRepository) AppendEntries(ctx context.Context, entries []models.LedgerEntry) error {
	deltas := make(map[string]int64)
	for _, e := range entries {
		deltas[e.AccountID] += e.Delta
	}
	// Lock accounts in a fixed order to avoid deadlocks between batches
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return r.WithTx(ctx, func(tx Repository) error {
		pg := tx.(*PostgresRepository)
		now := time.Now().UTC()

		for _, id := range ids {
			var balance int64
			err := pg.q.QueryRowxContext(ctx, `
				UPDATE accounts
				SET points_balance = points_balance + $1, updated_at = $2
				WHERE id = $3 AND points_balance + $1 >= 0
				RETURNING points_balance`,
				deltas[id], now, id).Scan(&balance)
			if errors.Is(err, sql.ErrNoRows) {
				var exists bool
				if err := pg.q.QueryRowxContext(ctx,
					`SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
					return err
				}
				if !exists {
					return ErrNotFound
				}
				return ErrInsufficientFunds
			}
			if err != nil {
				return err
			}
		}

		for i := range entries {
			e := &entries[i]
			if e.ID == "" {
				e.ID = uuid.New().String()
			}
			if e.CreatedAt.IsZero() {
				e.CreatedAt = now
			}
			_, err := pg.q.ExecContext(ctx, `
				INSERT INTO ledger_entries (`+entryColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				e.ID, e.AccountID, e.Delta, e.Reason, e.RelatedItemID, e.SwapID, e.Note, e.CreatedAt)
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

func (r *PostgresRepository) ListEntries(ctx context.Context, accountID string, limit int) ([]models.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + ` FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	entries := []models.LedgerEntry{}
	if err := sqlx.SelectContext(ctx, r.q, &entries, query, accountID, normalizeLimit(limit)); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *PostgresRepository) SumEntries(ctx context.Context, accountID string) (int64, error) {
	if _, err := r.GetAccount(ctx, accountID); err != nil {
		return 0, err
	}

	var sum int64
	err := sqlx.GetContext(ctx, r.q, &sum,
		`SELECT COALESCE(SUM(delta), 0) FROM ledger_entries WHERE account_id = $1`, accountID)
	if err != nil {
		return 0, err
	}
	return sum, nil
}

// Swap repository methods
func (r *PostgresRepository) CreateSwap(ctx context.Context, swap *models.SwapTransaction) error {
	query := `
		INSERT INTO swap_transactions (` + swapColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if swap.ID == "" {
		swap.ID = uuid.New().String()
	}
	if swap.CreatedAt.IsZero() {
		swap.CreatedAt = time.Now().UTC()
	}

	_, err := r.q.ExecContext(ctx, query,
		swap.ID, swap.ItemID, swap.FromAccountID, swap.ToAccountID, swap.PointsAmount,
		swap.Status, swap.Reason, swap.CreatedAt, swap.ResolvedAt)

	return mapError(err)
}

func (r *PostgresRepository) ListSwapsByAccount(ctx context.Context, accountID string, limit int) ([]models.SwapTransaction, error) {
	query := `
		SELECT ` + swapColumns + ` FROM swap_transactions
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	swaps := []models.SwapTransaction{}
	if err := sqlx.SelectContext(ctx, r.q, &swaps, query, accountID, normalizeLimit(limit)); err != nil {
		return nil, err
	}

	return swaps, nil
}

func (r *PostgresRepository) CountSwapsByStatus(ctx context.Context) (map[models.SwapStatus]int64, error) {
	var rows []struct {
		Status models.SwapStatus `db:"status"`
		Count  int64             `db:"count"`
	}
	err := sqlx.SelectContext(ctx, r.q, &rows, `SELECT status, COUNT(*) AS count FROM swap_transactions GROUP BY status`)
	if err != nil {
		return nil, err
	}

	counts := make(map[models.SwapStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
