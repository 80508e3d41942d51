package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rewear/swap-ledger/internal/events"
	"github.com/rewear/swap-ledger/internal/models"
	"github.com/rewear/swap-ledger/internal/observability"
	"github.com/rewear/swap-ledger/internal/repository"
)

// swapEntryNamespace derives the ids of a swap's ledger entries from the swap id
var swapEntryNamespace = uuid.MustParse("6f1c2a7e-4b1d-5c8e-9a3f-2d7b8e0c4f51")

func swapEntryID(swapID string, reason models.LedgerReason) string {
	return uuid.NewSHA1(swapEntryNamespace, []byte(swapID+":"+string(reason))).String()
}

// ProposeSwap transfers an available item to the requester and moves its
// points from the requester to the owner as one atomic unit of work.
//
// On any failure after the item was loaded a rejected swap record is
// returned together with the error; it has already been persisted when the
// store allowed it.
func (s *DefaultService) ProposeSwap(ctx context.Context, itemID, requesterID string) (*models.SwapTransaction, error) {
	start := time.Now()

	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		s.metrics.RecordSwap(observability.OutcomeError, time.Since(start).Seconds(), 0)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, transient("load item", err)
	}

	swap := &models.SwapTransaction{
		ID:            uuid.New().String(),
		ItemID:        item.ID,
		FromAccountID: item.OwnerID,
		ToAccountID:   requesterID,
		PointsAmount:  item.PointsValue,
		Status:        models.SwapPending,
		CreatedAt:     s.now(),
	}

	if err := s.commitSwap(ctx, item, swap); err != nil {
		return s.rejectSwap(ctx, swap, err, start)
	}

	s.metrics.RecordSwap(observability.OutcomeCommitted, time.Since(start).Seconds(), swap.PointsAmount)
	s.metrics.RecordLedgerEntry(string(models.ReasonSwapSpend))
	s.metrics.RecordLedgerEntry(string(models.ReasonSwapEarn))
	s.logger.Info("swap %s committed: item=%s from=%s to=%s points=%d",
		swap.ID, swap.ItemID, swap.FromAccountID, swap.ToAccountID, swap.PointsAmount)

	s.afterCommit(ctx, events.Event{
		Type:       events.TypeSwapCommitted,
		ItemID:     swap.ItemID,
		SwapID:     swap.ID,
		AccountIDs: []string{swap.FromAccountID, swap.ToAccountID},
		Points:     swap.PointsAmount,
	})

	return swap, nil
}

func (s *DefaultService) commitSwap(ctx context.Context, item *models.Item, swap *models.SwapTransaction) error {
	if item.Status != models.StatusAvailable {
		return ErrItemNotAvailable
	}
	if item.OwnerID == swap.ToAccountID {
		return ErrSelfSwap
	}

	balance, err := s.repo.GetBalance(ctx, swap.ToAccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return transient("load balance", err)
	}
	if balance < swap.PointsAmount {
		return ErrInsufficientPoints
	}

	if err := ctx.Err(); err != nil {
		return transient("swap", err)
	}

	err = s.repo.WithTx(ctx, func(tx repository.Repository) error {
		current, err := tx.GetItem(ctx, item.ID)
		if err != nil {
			return err
		}
		if current.Status != models.StatusAvailable || current.Version != item.Version {
			return ErrConflict
		}

		now := s.now()
		if _, err := tx.UpdateItemStatus(ctx, models.StatusUpdate{
			ItemID:          item.ID,
			ExpectedVersion: item.Version,
			Status:          models.StatusSwapped,
			SwappedBy:       swap.ToAccountID,
			At:              now,
		}); err != nil {
			return err
		}

		itemID, swapID := item.ID, swap.ID
		entries := []models.LedgerEntry{
			{
				ID:            swapEntryID(swap.ID, models.ReasonSwapSpend),
				AccountID:     swap.ToAccountID,
				Delta:         -swap.PointsAmount,
				Reason:        models.ReasonSwapSpend,
				RelatedItemID: &itemID,
				SwapID:        &swapID,
				CreatedAt:     now,
			},
			{
				ID:            swapEntryID(swap.ID, models.ReasonSwapEarn),
				AccountID:     swap.FromAccountID,
				Delta:         swap.PointsAmount,
				Reason:        models.ReasonSwapEarn,
				RelatedItemID: &itemID,
				SwapID:        &swapID,
				CreatedAt:     now,
			},
		}
		if err := tx.AppendEntries(ctx, entries); err != nil {
			return err
		}

		committed := *swap
		committed.Status = models.SwapCommitted
		committed.ResolvedAt = &now
		if err := tx.CreateSwap(ctx, &committed); err != nil {
			return err
		}
		*swap = committed
		return nil
	})

	return classifySwapError(err)
}

func classifySwapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConflict),
		errors.Is(err, repository.ErrVersionConflict),
		errors.Is(err, repository.ErrInvalidTransition),
		errors.Is(err, repository.ErrDuplicateKey):
		return ErrConflict
	case errors.Is(err, repository.ErrInsufficientFunds):
		return ErrInsufficientPoints
	case errors.Is(err, repository.ErrNotFound):
		return ErrAccountNotFound
	default:
		return transient("commit swap", err)
	}
}

// rejectSwap records the failed proposal outside the aborted unit of work
func (s *DefaultService) rejectSwap(ctx context.Context, swap *models.SwapTransaction, cause error, start time.Time) (*models.SwapTransaction, error) {
	now := s.now()
	rejected := *swap
	rejected.Status = models.SwapRejected
	rejected.Reason = reasonCode(cause)
	rejected.ResolvedAt = &now

	outcome := observability.OutcomeRejected
	switch {
	case errors.Is(cause, ErrConflict):
		outcome = observability.OutcomeConflict
	case errors.Is(cause, ErrTransient):
		outcome = observability.OutcomeError
	}
	s.metrics.RecordSwap(outcome, time.Since(start).Seconds(), rejected.PointsAmount)

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.repo.CreateSwap(recordCtx, &rejected); err != nil {
		s.logger.Warn("record rejected swap %s for item %s: %v", rejected.ID, rejected.ItemID, err)
	} else {
		s.afterCommit(ctx, events.Event{
			Type:       events.TypeSwapRejected,
			ItemID:     rejected.ItemID,
			SwapID:     rejected.ID,
			AccountIDs: []string{rejected.ToAccountID},
			Attributes: map[string]string{"reason": rejected.Reason},
		})
	}

	s.logger.Info("swap %s rejected: item=%s requester=%s reason=%s",
		rejected.ID, rejected.ItemID, rejected.ToAccountID, rejected.Reason)
	return &rejected, cause
}

// ListSwaps returns the swaps an account took part in, newest first
func (s *DefaultService) ListSwaps(ctx context.Context, accountID string, limit int) ([]models.SwapTransaction, error) {
	swaps, err := s.repo.ListSwapsByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, transient("list swaps", err)
	}
	return swaps, nil
}
