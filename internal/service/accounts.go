package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rewear/swap-ledger/internal/events"
	"github.com/rewear/swap-ledger/internal/models"
	"github.com/rewear/swap-ledger/internal/repository"
)

const recentEntriesLimit = 20

// UpsertAccount creates or refreshes the actor's account from identity
// provider data. A newly created account is credited the signup bonus in the
// same unit of work.
func (s *DefaultService) UpsertAccount(ctx context.Context, actor models.Actor, req models.UpsertUserRequest) (*models.Account, bool, error) {
	if strings.TrimSpace(actor.AccountID) == "" {
		return nil, false, ErrUnauthorized
	}

	account := &models.Account{
		ID:       actor.AccountID,
		Email:    req.Email,
		Name:     req.Name,
		PhotoURL: req.PhotoURL,
	}

	var created bool
	err := s.repo.WithTx(ctx, func(tx repository.Repository) error {
		var err error
		created, err = tx.UpsertAccount(ctx, account)
		if err != nil {
			return err
		}
		if !created || s.signupBonus <= 0 {
			return nil
		}

		if err := tx.AppendEntries(ctx, []models.LedgerEntry{{
			AccountID: account.ID,
			Delta:     s.signupBonus,
			Reason:    models.ReasonSignupBonus,
			CreatedAt: s.now(),
		}}); err != nil {
			return err
		}
		refreshed, err := tx.GetAccount(ctx, account.ID)
		if err != nil {
			return err
		}
		*account = *refreshed
		return nil
	})
	if err != nil {
		return nil, false, transient("upsert account", err)
	}

	if created {
		s.metrics.RecordLedgerEntry(string(models.ReasonSignupBonus))
		s.logger.Info("account %s created with %d points", account.ID, account.PointsBalance)
		s.afterCommit(ctx, events.Event{
			Type:       events.TypeBalanceAdjust,
			AccountIDs: []string{account.ID},
			Points:     s.signupBonus,
			Attributes: map[string]string{"reason": string(models.ReasonSignupBonus)},
		})
	}
	return account, created, nil
}

// GetAccountSummary returns the account with its most recent ledger entries
func (s *DefaultService) GetAccountSummary(ctx context.Context, accountID string) (*models.AccountSummary, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, transient("load account", err)
	}

	entries, err := s.repo.ListEntries(ctx, accountID, recentEntriesLimit)
	if err != nil {
		return nil, transient("list entries", err)
	}

	return &models.AccountSummary{Account: *account, RecentEntries: entries}, nil
}

// ListAccounts returns accounts for the admin console
func (s *DefaultService) ListAccounts(ctx context.Context, actor models.Actor, limit, offset int) ([]models.Account, error) {
	if !actor.IsAdmin {
		return nil, ErrUnauthorized
	}
	accounts, err := s.repo.ListAccounts(ctx, limit, offset)
	if err != nil {
		return nil, transient("list accounts", err)
	}
	return accounts, nil
}

// AdjustBalance writes an admin_adjustment entry. Adjustments that would
// leave the balance negative are refused.
func (s *DefaultService) AdjustBalance(ctx context.Context, actor models.Actor, accountID string, req models.AdjustBalanceRequest) (*models.Account, error) {
	if !actor.IsAdmin {
		return nil, ErrUnauthorized
	}
	if req.Delta == 0 {
		return nil, invalidInput("delta must not be zero")
	}

	note := req.Note
	if note == "" {
		note = "adjusted by " + actor.AccountID
	}

	var account *models.Account
	err := s.repo.WithTx(ctx, func(tx repository.Repository) error {
		if err := tx.AppendEntries(ctx, []models.LedgerEntry{{
			AccountID: accountID,
			Delta:     req.Delta,
			Reason:    models.ReasonAdminAdjustment,
			Note:      note,
			CreatedAt: s.now(),
		}}); err != nil {
			return err
		}
		var err error
		account, err = tx.GetAccount(ctx, accountID)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrAccountNotFound
	case errors.Is(err, repository.ErrInsufficientFunds):
		return nil, ErrInsufficientPoints
	default:
		return nil, transient("adjust balance", err)
	}

	s.metrics.RecordLedgerEntry(string(models.ReasonAdminAdjustment))
	s.logger.Info("account %s adjusted by %d by %s, balance=%d", accountID, req.Delta, actor.AccountID, account.PointsBalance)
	s.afterCommit(ctx, events.Event{
		Type:       events.TypeBalanceAdjust,
		AccountIDs: []string{accountID},
		Points:     req.Delta,
		Attributes: map[string]string{"reason": string(models.ReasonAdminAdjustment)},
	})
	return account, nil
}

// ReconcileAccount compares the cached balance with the sum of the account's entries
func (s *DefaultService) ReconcileAccount(ctx context.Context, actor models.Actor, accountID string) (*models.ReconcileResponse, error) {
	if !actor.IsAdmin {
		return nil, ErrUnauthorized
	}

	var cached, derived int64
	err := s.repo.WithTx(ctx, func(tx repository.Repository) error {
		var err error
		if cached, err = tx.GetBalance(ctx, accountID); err != nil {
			return err
		}
		derived, err = tx.SumEntries(ctx, accountID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, transient("reconcile account", err)
	}

	if cached != derived {
		s.logger.Error("account %s balance drift: cached=%d derived=%d", accountID, cached, derived)
	}
	return &models.ReconcileResponse{
		AccountID:      accountID,
		CachedBalance:  cached,
		DerivedBalance: derived,
		Consistent:     cached == derived,
	}, nil
}
