package service

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewear/swap-ledger/internal/cache"
	"github.com/rewear/swap-ledger/internal/models"
	"github.com/rewear/swap-ledger/internal/observability"
	"github.com/rewear/swap-ledger/internal/repository"
	"github.com/rewear/swap-ledger/internal/utils"
)

func TestGetPublicStats(t *testing.T) {
	f := newFixture(t)
	f.account(t, "alice", 0)
	f.account(t, "bob", 0)
	for i := 0; i < 10; i++ {
		f.item(t, "alice", 10, models.StatusSwapped)
	}
	f.item(t, "bob", 10, models.StatusAvailable)

	stats, err := f.svc.GetPublicStats(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalSwapped)
	assert.Equal(t, "0.02", stats.TextileWasteSaved)
	assert.Equal(t, int64(2), stats.TotalUsers)
}

func TestGetDashboardStats(t *testing.T) {
	f := newFixture(t)
	f.account(t, "owner-a", 0)
	f.account(t, "buyer-b", 50)
	f.item(t, "owner-a", 10, models.StatusPendingReview)
	f.item(t, "owner-a", 10, models.StatusPendingReview)
	item := f.item(t, "owner-a", 30, models.StatusAvailable)
	_, err := f.svc.ProposeSwap(f.ctx, item.ID, "buyer-b")
	require.NoError(t, err)
	_, err = f.svc.ProposeSwap(f.ctx, item.ID, "buyer-b")
	require.Error(t, err)

	_, err = f.svc.GetDashboardStats(f.ctx, alice)
	assert.ErrorIs(t, err, ErrUnauthorized)

	stats, err := f.svc.GetDashboardStats(f.ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(3), stats.TotalItems)
	assert.Equal(t, int64(2), stats.PendingApprovals)
	assert.Equal(t, int64(1), stats.ItemsByStatus[models.StatusSwapped])
	assert.Equal(t, int64(0), stats.ItemsByStatus[models.StatusRemoved])
	assert.Equal(t, int64(1), stats.CompletedSwaps)
	assert.Equal(t, int64(1), stats.RejectedSwaps)
}

func TestPublicStatsServedFromRedis(t *testing.T) {
	db, mock := redismock.NewClientMock()
	metrics := observability.NewMetrics("test")
	svc := NewDefaultService(Dependencies{
		Repo:    repository.NewMemoryRepository(),
		Cache:   cache.NewRedisStatsCache(db, time.Minute),
		Metrics: metrics,
		Logger:  utils.NewLoggerTo(io.Discard, io.Discard),
	}, Settings{JWTSecret: "test-secret"})

	fresh := models.PublicStats{TotalSwapped: 0, TextileWasteSaved: "0.00", TotalUsers: 0}
	raw, _ := json.Marshal(fresh)
	mock.ExpectGet(cache.KeyPublicStats).RedisNil()
	mock.ExpectSet(cache.KeyPublicStats, raw, time.Minute).SetVal("OK")

	stats, err := svc.GetPublicStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh, *stats)

	cached := models.PublicStats{TotalSwapped: 42, TextileWasteSaved: "0.10", TotalUsers: 7}
	raw, _ = json.Marshal(cached)
	mock.ExpectGet(cache.KeyPublicStats).SetVal(string(raw))

	stats, err = svc.GetPublicStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cached, *stats)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.StatsCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.StatsCacheTotal.WithLabelValues("miss")))
}

// recordingCache remembers invalidations and never hits
type recordingCache struct {
	mu          sync.Mutex
	invalidated [][]string
}

func (c *recordingCache) Get(context.Context, string, interface{}) (bool, error) { return false, nil }

func (c *recordingCache) Set(context.Context, string, interface{}) error { return nil }

func (c *recordingCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, keys)
	return nil
}

func TestCommittedChangesInvalidateStats(t *testing.T) {
	repo := repository.NewMemoryRepository()
	rc := &recordingCache{}
	f := newFixtureWithRepo(t, repo, nil)
	f.svc.cache = rc

	f.account(t, "owner-a", 0)
	f.account(t, "buyer-b", 50)
	item := f.item(t, "owner-a", 30, models.StatusAvailable)

	_, err := f.svc.ProposeSwap(f.ctx, item.ID, "buyer-b")
	require.NoError(t, err)
	require.Len(t, rc.invalidated, 1)
	assert.ElementsMatch(t, []string{cache.KeyPublicStats, cache.KeyDashboardStats}, rc.invalidated[0])

	flagged := f.item(t, "owner-a", 30, models.StatusAvailable)
	_, err = f.svc.ApplyModeration(f.ctx, admin, flagged.ID, flagged.Version, models.ActionFlag)
	require.NoError(t, err)
	assert.Len(t, rc.invalidated, 2)
}
