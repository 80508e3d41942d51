package service

import (
	"context"
	"fmt"

	"github.com/rewear/swap-ledger/internal/cache"
	"github.com/rewear/swap-ledger/internal/models"
)

// kilograms of textile kept out of landfill per swapped item
const textileKgPerItem = 2.4

// GetPublicStats returns the landing page counters
func (s *DefaultService) GetPublicStats(ctx context.Context) (*models.PublicStats, error) {
	var stats models.PublicStats
	if s.cachedStats(ctx, cache.KeyPublicStats, &stats) {
		return &stats, nil
	}

	counts, err := s.repo.CountItemsByStatus(ctx)
	if err != nil {
		return nil, transient("count items", err)
	}
	users, err := s.repo.CountAccounts(ctx)
	if err != nil {
		return nil, transient("count accounts", err)
	}

	swapped := counts[models.StatusSwapped]
	stats = models.PublicStats{
		TotalSwapped:      swapped,
		TextileWasteSaved: fmt.Sprintf("%.2f", float64(swapped)*textileKgPerItem/1000),
		TotalUsers:        users,
	}
	s.storeStats(ctx, cache.KeyPublicStats, stats)
	return &stats, nil
}

// GetDashboardStats returns the admin console counters
func (s *DefaultService) GetDashboardStats(ctx context.Context, actor models.Actor) (*models.DashboardStats, error) {
	if !actor.IsAdmin {
		return nil, ErrUnauthorized
	}

	var stats models.DashboardStats
	if s.cachedStats(ctx, cache.KeyDashboardStats, &stats) {
		return &stats, nil
	}

	counts, err := s.repo.CountItemsByStatus(ctx)
	if err != nil {
		return nil, transient("count items", err)
	}
	users, err := s.repo.CountAccounts(ctx)
	if err != nil {
		return nil, transient("count accounts", err)
	}
	swaps, err := s.repo.CountSwapsByStatus(ctx)
	if err != nil {
		return nil, transient("count swaps", err)
	}

	stats = models.DashboardStats{
		TotalUsers:       users,
		ItemsByStatus:    make(map[models.ItemStatus]int64, len(models.AllItemStatuses)),
		PendingApprovals: counts[models.StatusPendingReview],
		CompletedSwaps:   swaps[models.SwapCommitted],
		RejectedSwaps:    swaps[models.SwapRejected],
	}
	for _, status := range models.AllItemStatuses {
		stats.ItemsByStatus[status] = counts[status]
		stats.TotalItems += counts[status]
	}

	s.storeStats(ctx, cache.KeyDashboardStats, stats)
	return &stats, nil
}

// cachedStats treats cache failures as misses
func (s *DefaultService) cachedStats(ctx context.Context, key string, dest interface{}) bool {
	found, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("read stats cache %s: %v", key, err)
	}
	s.metrics.RecordCacheLookup(found)
	return found
}

func (s *DefaultService) storeStats(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.Warn("write stats cache %s: %v", key, err)
	}
}
