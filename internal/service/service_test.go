package service

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rewear/swap-ledger/internal/events"
	"github.com/rewear/swap-ledger/internal/models"
	"github.com/rewear/swap-ledger/internal/observability"
	"github.com/rewear/swap-ledger/internal/repository"
	"github.com/rewear/swap-ledger/internal/utils"
)

type fixture struct {
	ctx     context.Context
	svc     *DefaultService
	repo    *repository.MemoryRepository
	events  *events.MemoryPublisher
	metrics *observability.Metrics
}

var (
	admin = models.Actor{AccountID: "admin:admin", IsAdmin: true}
	alice = models.Actor{AccountID: "alice"}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, repository.NewMemoryRepository(), nil)
}

// newFixtureWithRepo builds a service over wrap(repo) while seeding helpers
// keep writing to the underlying memory store.
func newFixtureWithRepo(t *testing.T, repo *repository.MemoryRepository, wrap func(repository.Repository) repository.Repository) *fixture {
	t.Helper()

	var svcRepo repository.Repository = repo
	if wrap != nil {
		svcRepo = wrap(repo)
	}

	pub := &events.MemoryPublisher{}
	metrics := observability.NewMetrics("test")
	svc := NewDefaultService(Dependencies{
		Repo:      svcRepo,
		Publisher: pub,
		Metrics:   metrics,
		Logger:    utils.NewLoggerTo(io.Discard, io.Discard),
	}, Settings{
		JWTSecret:         "test-secret",
		AdminUsername:     "admin",
		SignupBonus:       50,
		DefaultItemPoints: 25,
	})

	return &fixture{
		ctx:     context.Background(),
		svc:     svc,
		repo:    repo,
		events:  pub,
		metrics: metrics,
	}
}

// account creates an account holding exactly balance points
func (f *fixture) account(t *testing.T, id string, balance int64) {
	t.Helper()
	_, err := f.repo.UpsertAccount(f.ctx, &models.Account{ID: id, Email: id + "@example.com", Name: id})
	require.NoError(t, err)
	if balance > 0 {
		require.NoError(t, f.repo.AppendEntries(f.ctx, []models.LedgerEntry{{
			AccountID: id,
			Delta:     balance,
			Reason:    models.ReasonAdminAdjustment,
		}}))
	}
}

var statusPath = map[models.ItemStatus][]models.ItemStatus{
	models.StatusDraft:         nil,
	models.StatusPendingReview: {models.StatusPendingReview},
	models.StatusAvailable:     {models.StatusPendingReview, models.StatusAvailable},
	models.StatusRejected:      {models.StatusPendingReview, models.StatusRejected},
	models.StatusReserved:      {models.StatusPendingReview, models.StatusAvailable, models.StatusReserved},
	models.StatusSwapped:       {models.StatusPendingReview, models.StatusAvailable, models.StatusSwapped},
	models.StatusFlagged:       {models.StatusPendingReview, models.StatusAvailable, models.StatusFlagged},
	models.StatusRemoved:       {models.StatusPendingReview, models.StatusAvailable, models.StatusRemoved},
}

// item lists an item for owner and walks it to status through legal transitions
func (f *fixture) item(t *testing.T, owner string, points int64, status models.ItemStatus) *models.Item {
	t.Helper()
	item := &models.Item{
		OwnerID:     owner,
		Title:       "Denim jacket",
		Description: "Barely worn",
		Category:    "outerwear",
		Size:        "M",
		Condition:   "good",
		PointsValue: points,
	}
	require.NoError(t, f.repo.CreateItem(f.ctx, item))

	for _, next := range statusPath[status] {
		updated, err := f.repo.UpdateItemStatus(f.ctx, models.StatusUpdate{
			ItemID:          item.ID,
			ExpectedVersion: item.Version,
			Status:          next,
			SwappedBy:       "someone-else",
		})
		require.NoError(t, err)
		item = updated
	}
	return item
}

func (f *fixture) balance(t *testing.T, id string) int64 {
	t.Helper()
	b, err := f.repo.GetBalance(f.ctx, id)
	require.NoError(t, err)
	return b
}

func (f *fixture) getItem(t *testing.T, id string) *models.Item {
	t.Helper()
	item, err := f.repo.GetItem(f.ctx, id)
	require.NoError(t, err)
	return item
}

func (f *fixture) requireConsistent(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		sum, err := f.repo.SumEntries(f.ctx, id)
		require.NoError(t, err)
		require.Equal(t, sum, f.balance(t, id), "balance of %s drifted from its entries", id)
	}
}
