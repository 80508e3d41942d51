package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewear/swap-ledger/internal/events"
	"github.com/rewear/swap-ledger/internal/models"
)

func TestApplyModerationRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	f.account(t, "owner-a", 0)
	item := f.item(t, "owner-a", 30, models.StatusPendingReview)

	_, err := f.svc.ApplyModeration(f.ctx, alice, item.ID, item.Version, models.ActionApprove)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, models.StatusPendingReview, f.getItem(t, item.ID).Status)
}

func TestApplyModerationApproveAndReplay(t *testing.T) {
	f := newFixture(t)
	f.account(t, "owner-a", 0)
	item := f.item(t, "owner-a", 30, models.StatusPendingReview)

	approved, err := f.svc.ApplyModeration(f.ctx, admin, item.ID, item.Version, models.ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, approved.Status)
	assert.Equal(t, item.Version+1, approved.Version)
	assert.Len(t, f.events.OfType(events.TypeItemModerated), 1)

	// replaying the same request carries a stale version
	_, err = f.svc.ApplyModeration(f.ctx, admin, item.ID, item.Version, models.ActionApprove)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, approved.Version, f.getItem(t, item.ID).Version)
}

func TestApplyModerationActions(t *testing.T) {
	tests := []struct {
		from   models.ItemStatus
		action models.ModerationAction
		want   models.ItemStatus
	}{
		{models.StatusPendingReview, models.ActionApprove, models.StatusAvailable},
		{models.StatusPendingReview, models.ActionReject, models.StatusRejected},
		{models.StatusAvailable, models.ActionFlag, models.StatusFlagged},
		{models.StatusFlagged, models.ActionUnflag, models.StatusAvailable},
		{models.StatusAvailable, models.ActionRemove, models.StatusRemoved},
		{models.StatusFlagged, models.ActionRemove, models.StatusRemoved},
	}

	for _, tt := range tests {
		t.Run(string(tt.action)+"_from_"+string(tt.from), func(t *testing.T) {
			f := newFixture(t)
			f.account(t, "owner-a", 0)
			item := f.item(t, "owner-a", 30, tt.from)

			got, err := f.svc.ApplyModeration(f.ctx, admin, item.ID, item.Version, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestApplyModerationInvalidTransitions(t *testing.T) {
	tests := []struct {
		from   models.ItemStatus
		action models.ModerationAction
	}{
		{models.StatusAvailable, models.ActionApprove},
		{models.StatusFlagged, models.ActionApprove},
		{models.StatusPendingReview, models.ActionUnflag},
		{models.StatusSwapped, models.ActionRemove},
		{models.StatusSwapped, models.ActionFlag},
		{models.StatusRemoved, models.ActionUnflag},
		{models.StatusDraft, models.ActionApprove},
	}

	for _, tt := range tests {
		t.Run(string(tt.action)+"_from_"+string(tt.from), func(t *testing.T) {
			f := newFixture(t)
			f.account(t, "owner-a", 0)
			item := f.item(t, "owner-a", 30, tt.from)

			_, err := f.svc.ApplyModeration(f.ctx, admin, item.ID, item.Version, tt.action)
			assert.ErrorIs(t, err, ErrInvalidTransition)

			got := f.getItem(t, item.ID)
			assert.Equal(t, tt.from, got.Status)
			assert.Equal(t, item.Version, got.Version)
		})
	}
}

func TestApplyModerationUnknownActionAndItem(t *testing.T) {
	f := newFixture(t)
	f.account(t, "owner-a", 0)
	item := f.item(t, "owner-a", 30, models.StatusAvailable)

	_, err := f.svc.ApplyModeration(f.ctx, admin, item.ID, item.Version, models.ModerationAction("delete"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.ApplyModeration(f.ctx, admin, "missing", 1, models.ActionFlag)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestModerationAfterSwapSeesStaleVersion(t *testing.T) {
	f := newFixture(t)
	f.account(t, "owner-a", 0)
	f.account(t, "buyer-b", 50)
	item := f.item(t, "owner-a", 30, models.StatusAvailable)

	_, err := f.svc.ProposeSwap(f.ctx, item.ID, "buyer-b")
	require.NoError(t, err)

	// the admin loaded the item before the swap committed
	_, err = f.svc.ApplyModeration(f.ctx, admin, item.ID, item.Version, models.ActionFlag)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, models.StatusSwapped, f.getItem(t, item.ID).Status)
}

func TestSwapAfterModerationFails(t *testing.T) {
	f := newFixture(t)
	f.account(t, "owner-a", 0)
	f.account(t, "buyer-b", 50)
	item := f.item(t, "owner-a", 30, models.StatusAvailable)

	_, err := f.svc.ApplyModeration(f.ctx, admin, item.ID, item.Version, models.ActionFlag)
	require.NoError(t, err)

	_, err = f.svc.ProposeSwap(f.ctx, item.ID, "buyer-b")
	assert.ErrorIs(t, err, ErrItemNotAvailable)
	assert.Equal(t, int64(50), f.balance(t, "buyer-b"))
}

func TestSubmitItem(t *testing.T) {
	f := newFixture(t)
	f.account(t, "alice", 0)
	item := f.item(t, "alice", 30, models.StatusDraft)

	_, err := f.svc.SubmitItem(f.ctx, models.Actor{AccountID: "mallory"}, item.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	submitted, err := f.svc.SubmitItem(f.ctx, alice, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, submitted.Status)
	assert.Equal(t, item.Version+1, submitted.Version)
	assert.Len(t, f.events.OfType(events.TypeItemSubmitted), 1)

	_, err = f.svc.SubmitItem(f.ctx, alice, item.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.SubmitItem(f.ctx, alice, "missing")
	assert.ErrorIs(t, err, ErrItemNotFound)
}
