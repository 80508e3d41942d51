package models

import (
	"time"

	"github.com/lib/pq"
)

// Account represents a user's wallet, keyed by the identity provider subject
type Account struct {
	ID            string    `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	Name          string    `db:"name" json:"name"`
	PhotoURL      string    `db:"photo_url" json:"photoUrl"`
	PointsBalance int64     `db:"points_balance" json:"pointsBalance"` // cached running total of ledger entries
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// Item represents a clothing listing
type Item struct {
	ID          string         `db:"id" json:"id"`
	OwnerID     string         `db:"owner_id" json:"ownerId"`
	Title       string         `db:"title" json:"title"`
	Description string         `db:"description" json:"description"`
	Category    string         `db:"category" json:"category"`
	Size        string         `db:"size" json:"size"`
	Condition   string         `db:"condition" json:"condition"`
	Images      pq.StringArray `db:"images" json:"images"`
	Status      ItemStatus     `db:"status" json:"status"`
	PointsValue int64          `db:"points_value" json:"pointsValue"`
	Version     int64          `db:"version" json:"version"`
	SwappedBy   *string        `db:"swapped_by" json:"swappedBy"`
	SwappedAt   *time.Time     `db:"swapped_at" json:"swappedAt"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// LedgerEntry is an immutable record of a balance change
type LedgerEntry struct {
	ID            string       `db:"id" json:"id"`
	AccountID     string       `db:"account_id" json:"accountId"`
	Delta         int64        `db:"delta" json:"delta"`
	Reason        LedgerReason `db:"reason" json:"reason"`
	RelatedItemID *string      `db:"related_item_id" json:"relatedItemId,omitempty"`
	SwapID        *string      `db:"swap_id" json:"swapId,omitempty"`
	Note          string       `db:"note" json:"note,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
}

// SwapTransaction is the unit of atomicity for one swap
type SwapTransaction struct {
	ID            string     `db:"id" json:"id"`
	ItemID        string     `db:"item_id" json:"itemId"`
	FromAccountID string     `db:"from_account_id" json:"fromAccountId"` // receives the points
	ToAccountID   string     `db:"to_account_id" json:"toAccountId"`     // spends the points, new owner
	PointsAmount  int64      `db:"points_amount" json:"pointsAmount"`
	Status        SwapStatus `db:"status" json:"status"`
	Reason        string     `db:"reason" json:"reason,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	ResolvedAt    *time.Time `db:"resolved_at" json:"resolvedAt"`
}

// Testimonial is a piece of user feedback shown on the landing page
type Testimonial struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email,omitempty" json:"email,omitempty"`
	Message   string    `bson:"message" json:"message"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Actor is the request-scoped identity performing an operation
type Actor struct {
	AccountID string
	IsAdmin   bool
}

// StatusUpdate describes a guarded item status change
type StatusUpdate struct {
	ItemID          string
	ExpectedVersion int64
	Status          ItemStatus
	SwappedBy       string // only used when Status is StatusSwapped
	At              time.Time
}

// ItemFilter is the stable read API for listing items
type ItemFilter struct {
	Status   ItemStatus
	OwnerID  string
	Category string
	Sort     string // "createdAt" or "pointsValue"
	Order    string // "asc" or "desc"
	Limit    int
	Offset   int
}
