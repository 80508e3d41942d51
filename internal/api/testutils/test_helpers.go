package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rewear/swap-ledger/internal/api"
	"github.com/rewear/swap-ledger/internal/events"
	"github.com/rewear/swap-ledger/internal/models"
	"github.com/rewear/swap-ledger/internal/observability"
	"github.com/rewear/swap-ledger/internal/repository"
	"github.com/rewear/swap-ledger/internal/service"
	"github.com/rewear/swap-ledger/internal/utils"
)

const (
	JWTSecret     = "test-secret-key"
	AdminUsername = "admin"
	AdminPassword = "admin-password"
)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router     *gin.Engine
	Repository *repository.MemoryRepository
	Service    service.Service
	Events     *events.MemoryPublisher
	Metrics    *observability.Metrics
}

// SetupTestContext builds the full HTTP stack over the in-memory store
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(AdminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	repo := repository.NewMemoryRepository()
	pub := &events.MemoryPublisher{}
	metrics := observability.NewMetrics("test")

	svc := service.NewDefaultService(service.Dependencies{
		Repo:         repo,
		Testimonials: repository.NewMemoryTestimonialStore(),
		Publisher:    pub,
		Metrics:      metrics,
		Logger:       utils.NewLoggerTo(io.Discard, io.Discard),
	}, service.Settings{
		JWTSecret:         JWTSecret,
		TokenTTL:          time.Hour,
		AdminUsername:     AdminUsername,
		AdminPasswordHash: string(hash),
		SignupBonus:       50,
		DefaultItemPoints: 25,
	})

	handler := api.NewHandler(svc, api.HandlerConfig{
		JWTSecret:   JWTSecret,
		SwapTimeout: 5 * time.Second,
		Metrics:     metrics.Handler(),
	})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.SetupRoutes(router)

	return &TestContext{
		Router:     router,
		Repository: repo,
		Service:    svc,
		Events:     pub,
		Metrics:    metrics,
	}
}

// Token signs a bearer token for subject
func Token(t *testing.T, subject string, admin bool) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	if admin {
		claims["role"] = service.AdminRole
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(JWTSecret))
	require.NoError(t, err, "Failed to generate JWT token")
	return token
}

// SeedAccount creates an account holding exactly balance points
func (tc *TestContext) SeedAccount(t *testing.T, id string, balance int64) {
	t.Helper()
	ctx := context.Background()

	_, err := tc.Repository.UpsertAccount(ctx, &models.Account{ID: id, Email: id + "@example.com", Name: id})
	require.NoError(t, err)
	if balance > 0 {
		require.NoError(t, tc.Repository.AppendEntries(ctx, []models.LedgerEntry{{
			AccountID: id,
			Delta:     balance,
			Reason:    models.ReasonAdminAdjustment,
		}}))
	}
}

// SeedAvailableItem lists an item for owner and approves it
func (tc *TestContext) SeedAvailableItem(t *testing.T, owner string, points int64) *models.Item {
	t.Helper()
	ctx := context.Background()

	item, err := tc.Service.CreateItem(ctx, models.Actor{AccountID: owner}, models.CreateItemRequest{
		Title:       "Denim jacket",
		Description: "Barely worn",
		Category:    "outerwear",
		Size:        "M",
		Condition:   "good",
		PointsValue: &points,
		Submit:      true,
	})
	require.NoError(t, err)

	item, err = tc.Service.ApplyModeration(ctx, models.Actor{AccountID: "admin:" + AdminUsername, IsAdmin: true},
		item.ID, item.Version, models.ActionApprove)
	require.NoError(t, err)
	return item
}

// Balance reads the cached balance of id
func (tc *TestContext) Balance(t *testing.T, id string) int64 {
	t.Helper()
	balance, err := tc.Repository.GetBalance(context.Background(), id)
	require.NoError(t, err)
	return balance
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}

// DecodeError parses an error response body
func DecodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
