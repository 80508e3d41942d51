package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/rewear/swap-ledger/internal/events"
	"github.com/rewear/swap-ledger/internal/models"
	"github.com/rewear/swap-ledger/internal/repository"
)

// CreateItem lists a new item for the actor. Listings start as drafts and
// move to pending_review right away when the request asks to submit.
func (s *DefaultService) CreateItem(ctx context.Context, actor models.Actor, req models.CreateItemRequest) (*models.Item, error) {
	input := models.NewItem{
		OwnerID:     actor.AccountID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Size:        req.Size,
		Condition:   req.Condition,
		Images:      req.Images,
		PointsValue: req.PointsValue,
	}
	if err := s.validate.StructCtx(ctx, input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, invalidInput("%s failed on %s", verrs[0].Field(), verrs[0].Tag())
		}
		return nil, invalidInput("%v", err)
	}

	points := s.defaultItemPoints
	if input.PointsValue != nil {
		points = *input.PointsValue
	}

	item := &models.Item{
		OwnerID:     input.OwnerID,
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Size:        input.Size,
		Condition:   input.Condition,
		Images:      pq.StringArray(input.Images),
		PointsValue: points,
	}

	err := s.repo.WithTx(ctx, func(tx repository.Repository) error {
		if _, err := tx.GetAccount(ctx, actor.AccountID); err != nil {
			return err
		}
		if err := tx.CreateItem(ctx, item); err != nil {
			return err
		}
		if !req.Submit {
			return nil
		}
		submitted, err := tx.UpdateItemStatus(ctx, models.StatusUpdate{
			ItemID:          item.ID,
			ExpectedVersion: item.Version,
			Status:          models.StatusPendingReview,
			At:              s.now(),
		})
		if err != nil {
			return err
		}
		*item = *submitted
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, transient("create item", err)
	}

	s.logger.Info("item %s listed by %s: status=%s points=%d", item.ID, item.OwnerID, item.Status, item.PointsValue)
	if item.Status == models.StatusPendingReview {
		s.afterCommit(ctx, events.Event{Type: events.TypeItemSubmitted, ItemID: item.ID, AccountIDs: []string{item.OwnerID}})
	}
	return item, nil
}

// GetItem returns a single listing
func (s *DefaultService) GetItem(ctx context.Context, itemID string) (*models.Item, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, transient("load item", err)
	}
	return item, nil
}

// ListItems returns listings matching the filter
func (s *DefaultService) ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalidInput("unknown status %q", filter.Status)
	}
	switch filter.Sort {
	case "", "createdAt", "pointsValue":
	default:
		return nil, invalidInput("unknown sort field %q", filter.Sort)
	}
	switch filter.Order {
	case "", "asc", "desc":
	default:
		return nil, invalidInput("unknown sort order %q", filter.Order)
	}

	items, err := s.repo.ListItems(ctx, filter)
	if err != nil {
		return nil, transient("list items", err)
	}
	return items, nil
}

// SubmitItem sends the owner's draft to moderation
func (s *DefaultService) SubmitItem(ctx context.Context, actor models.Actor, itemID string) (*models.Item, error) {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != actor.AccountID {
		return nil, ErrUnauthorized
	}
	if !models.CanTransition(item.Status, models.StatusPendingReview) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateItemStatus(ctx, models.StatusUpdate{
		ItemID:          itemID,
		ExpectedVersion: item.Version,
		Status:          models.StatusPendingReview,
		At:              s.now(),
	})
	if err != nil {
		return nil, mapStatusError(err)
	}

	s.logger.Info("item %s submitted for review by %s", updated.ID, actor.AccountID)
	s.afterCommit(ctx, events.Event{Type: events.TypeItemSubmitted, ItemID: updated.ID, AccountIDs: []string{updated.OwnerID}})
	return updated, nil
}
