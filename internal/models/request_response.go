package models

// Request models
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpsertUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoUrl"`
}

type CreateItemRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Category    string   `json:"category" binding:"required"`
	Size        string   `json:"size" binding:"required"`
	Condition   string   `json:"condition" binding:"required"`
	Images      []string `json:"images"`
	PointsValue *int64   `json:"pointsValue" binding:"omitempty,min=0"`
	Submit      bool     `json:"submit"` // move straight to pending_review
}

type ModerationRequest struct {
	Action          ModerationAction `json:"action" binding:"required,oneof=approve reject flag unflag remove"`
	ExpectedVersion int64            `json:"expectedVersion" binding:"required,min=1"`
}

type AdjustBalanceRequest struct {
	Delta int64  `json:"delta" binding:"required"`
	Note  string `json:"note" binding:"max=255"`
}

type CreateTestimonialRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"omitempty,email"`
	Message string `json:"message" binding:"required,max=1000"`
}

// NewItem is the validated input for creating a listing
type NewItem struct {
	OwnerID     string   `validate:"required"`
	Title       string   `validate:"required,max=200"`
	Description string   `validate:"required,max=2000"`
	Category    string   `validate:"required,max=64"`
	Size        string   `validate:"required,max=32"`
	Condition   string   `validate:"required,max=64"`
	Images      []string `validate:"max=10,dive,url"`
	PointsValue *int64   `validate:"omitempty,min=0"`
}

// Response models
type AuthResponse struct {
	Status    string `json:"status"`
	UserID    string `json:"userId,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

type SwapResponse struct {
	Status string          `json:"status"`
	Item   *Item           `json:"item"`
	Swap   SwapTransaction `json:"swap"`
}

type AccountSummary struct {
	Account       Account       `json:"account"`
	RecentEntries []LedgerEntry `json:"recentEntries"`
}

type ReconcileResponse struct {
	AccountID      string `json:"accountId"`
	CachedBalance  int64  `json:"cachedBalance"`
	DerivedBalance int64  `json:"derivedBalance"`
	Consistent     bool   `json:"consistent"`
}

type PublicStats struct {
	TotalSwapped      int64  `json:"totalSwapped"`
	TextileWasteSaved string `json:"textileWasteSaved"`
	TotalUsers        int64  `json:"totalUsers"`
}

type DashboardStats struct {
	TotalUsers       int64                `json:"totalUsers"`
	TotalItems       int64                `json:"totalItems"`
	ItemsByStatus    map[ItemStatus]int64 `json:"itemsByStatus"`
	PendingApprovals int64                `json:"pendingApprovals"`
	CompletedSwaps   int64                `json:"completedSwaps"`
	RejectedSwaps    int64                `json:"rejectedSwaps"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
