package service

import (
	"context"
	"errors"

	"github.com/rewear/swap-ledger/internal/events"
	"github.com/rewear/swap-ledger/internal/models"
	"github.com/rewear/swap-ledger/internal/observability"
	"github.com/rewear/swap-ledger/internal/repository"
)

// ApplyModeration moves an item to the status an admin action maps to.
// The caller's expectedVersion must match the stored version, so replaying
// an action that already succeeded fails with ErrVersionConflict.
func (s *DefaultService) ApplyModeration(
	ctx context.Context,
	actor models.Actor,
	itemID string,
	expectedVersion int64,
	action models.ModerationAction,
) (*models.Item, error) {
	item, err := s.moderate(ctx, actor, itemID, expectedVersion, action)

	outcome := observability.OutcomeOK
	if err != nil {
		outcome = observability.OutcomeRejected
		if errors.Is(err, ErrTransient) {
			outcome = observability.OutcomeError
		}
	}
	s.metrics.RecordModeration(string(action), outcome)
	if err != nil {
		return nil, err
	}

	s.logger.Info("item %s moderated by %s: action=%s status=%s version=%d",
		item.ID, actor.AccountID, action, item.Status, item.Version)
	s.afterCommit(ctx, events.Event{
		Type:       events.TypeItemModerated,
		ItemID:     item.ID,
		AccountIDs: []string{item.OwnerID},
		Attributes: map[string]string{"action": string(action), "status": string(item.Status)},
	})
	return item, nil
}

func (s *DefaultService) moderate(
	ctx context.Context,
	actor models.Actor,
	itemID string,
	expectedVersion int64,
	action models.ModerationAction,
) (*models.Item, error) {
	if !actor.IsAdmin {
		return nil, ErrUnauthorized
	}
	target, ok := action.Target()
	if !ok {
		return nil, invalidInput("unknown moderation action %q", action)
	}

	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, transient("load item", err)
	}
	if item.Version != expectedVersion {
		return nil, ErrVersionConflict
	}
	if !action.AppliesTo(item.Status) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateItemStatus(ctx, models.StatusUpdate{
		ItemID:          itemID,
		ExpectedVersion: expectedVersion,
		Status:          target,
		At:              s.now(),
	})
	if err != nil {
		return nil, mapStatusError(err)
	}
	return updated, nil
}

func mapStatusError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrItemNotFound
	case errors.Is(err, repository.ErrVersionConflict):
		return ErrVersionConflict
	case errors.Is(err, repository.ErrInvalidTransition):
		return ErrInvalidTransition
	default:
		return transient("update item status", err)
	}
}
