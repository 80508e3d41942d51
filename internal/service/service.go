package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rewear/swap-ledger/internal/cache"
	"github.com/rewear/swap-ledger/internal/events"
	"github.com/rewear/swap-ledger/internal/models"
	"github.com/rewear/swap-ledger/internal/observability"
	"github.com/rewear/swap-ledger/internal/repository"
	"github.com/rewear/swap-ledger/internal/utils"
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	AdminLogin(ctx context.Context, req models.AdminLoginRequest) (*models.AuthResponse, error)

	// Accounts
	UpsertAccount(ctx context.Context, actor models.Actor, req models.UpsertUserRequest) (*models.Account, bool, error)
	GetAccountSummary(ctx context.Context, accountID string) (*models.AccountSummary, error)
	ListAccounts(ctx context.Context, actor models.Actor, limit, offset int) ([]models.Account, error)
	AdjustBalance(ctx context.Context, actor models.Actor, accountID string, req models.AdjustBalanceRequest) (*models.Account, error)
	ReconcileAccount(ctx context.Context, actor models.Actor, accountID string) (*models.ReconcileResponse, error)

	// Item catalog
	CreateItem(ctx context.Context, actor models.Actor, req models.CreateItemRequest) (*models.Item, error)
	GetItem(ctx context.Context, itemID string) (*models.Item, error)
	ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error)
	SubmitItem(ctx context.Context, actor models.Actor, itemID string) (*models.Item, error)

	// Swaps
	ProposeSwap(ctx context.Context, itemID, requesterID string) (*models.SwapTransaction, error)
	ListSwaps(ctx context.Context, accountID string, limit int) ([]models.SwapTransaction, error)

	// Moderation
	ApplyModeration(ctx context.Context, actor models.Actor, itemID string, expectedVersion int64, action models.ModerationAction) (*models.Item, error)

	// Statistics
	GetPublicStats(ctx context.Context) (*models.PublicStats, error)
	GetDashboardStats(ctx context.Context, actor models.Actor) (*models.DashboardStats, error)

	// Testimonials
	ListTestimonials(ctx context.Context, limit int) ([]models.Testimonial, error)
	CreateTestimonial(ctx context.Context, req models.CreateTestimonialRequest) (*models.Testimonial, error)
}

// Dependencies are the collaborators of DefaultService. Only Repo is
// required; the rest fall back to in-process implementations.
type Dependencies struct {
	Repo         repository.Repository
	Testimonials repository.TestimonialStore
	Cache        cache.StatsCache
	Publisher    events.Publisher
	Metrics      *observability.Metrics
	Logger       *utils.Logger
}

// Settings holds the tunable values of the points economy and admin login
type Settings struct {
	JWTSecret         string
	TokenTTL          time.Duration
	AdminUsername     string
	AdminPasswordHash string
	SignupBonus       int64
	DefaultItemPoints int64
}

var _ Service = (*DefaultService)(nil)

// DefaultService implements the Service interface
type DefaultService struct {
	repo         repository.Repository
	testimonials repository.TestimonialStore
	cache        cache.StatsCache
	publisher    events.Publisher
	metrics      *observability.Metrics
	logger       *utils.Logger
	validate     *validator.Validate

	jwtSecret         []byte
	tokenDuration     time.Duration
	adminUsername     string
	adminPasswordHash []byte
	signupBonus       int64
	defaultItemPoints int64

	now func() time.Time
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(deps Dependencies, settings Settings) *DefaultService {
	s := &DefaultService{
		repo:              deps.Repo,
		testimonials:      deps.Testimonials,
		cache:             deps.Cache,
		publisher:         deps.Publisher,
		metrics:           deps.Metrics,
		logger:            deps.Logger,
		validate:          validator.New(),
		jwtSecret:         []byte(settings.JWTSecret),
		tokenDuration:     settings.TokenTTL,
		adminUsername:     settings.AdminUsername,
		adminPasswordHash: []byte(settings.AdminPasswordHash),
		signupBonus:       settings.SignupBonus,
		defaultItemPoints: settings.DefaultItemPoints,
		now:               func() time.Time { return time.Now().UTC() },
	}

	if s.testimonials == nil {
		s.testimonials = repository.NewMemoryTestimonialStore()
	}
	if s.cache == nil {
		s.cache = cache.NopStatsCache{}
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetrics("")
	}
	if s.logger == nil {
		s.logger = utils.NewLogger()
	}
	if s.tokenDuration <= 0 {
		s.tokenDuration = 24 * time.Hour
	}

	return s
}

// afterCommit runs the side effects of a committed change. They use a
// detached context so a request deadline that fired right after the commit
// does not drop them, and their failures never undo the change.
func (s *DefaultService) afterCommit(ctx context.Context, event events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.EventPublishErrs.Inc()
		s.logger.Warn("publish %s for item %s: %v", event.Type, event.ItemID, err)
	}
	if err := s.cache.Invalidate(ctx, cache.KeyPublicStats, cache.KeyDashboardStats); err != nil {
		s.logger.Warn("invalidate stats cache: %v", err)
	}
}
