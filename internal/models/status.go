package models

// ItemStatus is the lifecycle state of a listing
type ItemStatus string

const (
	StatusDraft         ItemStatus = "draft"
	StatusPendingReview ItemStatus = "pending_review"
	StatusAvailable     ItemStatus = "available"
	StatusReserved      ItemStatus = "reserved"
	StatusSwapped       ItemStatus = "swapped"
	StatusRejected      ItemStatus = "rejected"
	StatusFlagged       ItemStatus = "flagged"
	StatusRemoved       ItemStatus = "removed"
)

// AllItemStatuses lists every status in lifecycle order
var AllItemStatuses = []ItemStatus{
	StatusDraft,
	StatusPendingReview,
	StatusAvailable,
	StatusReserved,
	StatusSwapped,
	StatusRejected,
	StatusFlagged,
	StatusRemoved,
}

var itemTransitions = map[ItemStatus][]ItemStatus{
	StatusDraft:         {StatusPendingReview},
	StatusPendingReview: {StatusAvailable, StatusRejected},
	StatusAvailable:     {StatusReserved, StatusSwapped, StatusFlagged, StatusRemoved},
	StatusFlagged:       {StatusAvailable, StatusRemoved},
}

// Valid reports whether s is a known status
func (s ItemStatus) Valid() bool {
	for _, known := range AllItemStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransition reports whether an item may move from one status to another
func CanTransition(from, to ItemStatus) bool {
	for _, next := range itemTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// LedgerReason explains why a ledger entry exists
type LedgerReason string

const (
	ReasonSwapSpend       LedgerReason = "swap_spend"
	ReasonSwapEarn        LedgerReason = "swap_earn"
	ReasonAdminAdjustment LedgerReason = "admin_adjustment"
	ReasonSignupBonus     LedgerReason = "signup_bonus"
)

// IsSwap reports whether the reason belongs to a swap's entry pair
func (r LedgerReason) IsSwap() bool {
	return r == ReasonSwapSpend || r == ReasonSwapEarn
}

// SwapStatus is the resolution state of a swap transaction
type SwapStatus string

const (
	SwapPending   SwapStatus = "pending"
	SwapCommitted SwapStatus = "committed"
	SwapRejected  SwapStatus = "rejected"
)

// ModerationAction is an admin decision on an item
type ModerationAction string

const (
	ActionApprove ModerationAction = "approve"
	ActionReject  ModerationAction = "reject"
	ActionFlag    ModerationAction = "flag"
	ActionUnflag  ModerationAction = "unflag"
	ActionRemove  ModerationAction = "remove"
)

var moderationTargets = map[ModerationAction]ItemStatus{
	ActionApprove: StatusAvailable,
	ActionReject:  StatusRejected,
	ActionFlag:    StatusFlagged,
	ActionUnflag:  StatusAvailable,
	ActionRemove:  StatusRemoved,
}

// unflag must not double as approve, and approve must not clear a flag
var moderationSources = map[ModerationAction][]ItemStatus{
	ActionApprove: {StatusPendingReview},
	ActionReject:  {StatusPendingReview},
	ActionFlag:    {StatusAvailable},
	ActionUnflag:  {StatusFlagged},
	ActionRemove:  {StatusAvailable, StatusFlagged},
}

// Target returns the status a moderation action moves an item to
func (a ModerationAction) Target() (ItemStatus, bool) {
	s, ok := moderationTargets[a]
	return s, ok
}

// AppliesTo reports whether the action is meaningful for an item in the given status
func (a ModerationAction) AppliesTo(current ItemStatus) bool {
	for _, s := range moderationSources[a] {
		if s == current {
			return true
		}
	}
	return false
}
