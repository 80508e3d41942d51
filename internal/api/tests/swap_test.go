package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewear/swap-ledger/internal/api/testutils"
	"github.com/rewear/swap-ledger/internal/events"
	"github.com/rewear/swap-ledger/internal/models"
)

func swapPath(itemID string) string {
	return "/api/items/" + itemID + "/swap"
}

func TestProposeSwap(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	testCtx.SeedAccount(t, "owner", 0)
	testCtx.SeedAccount(t, "buyer", 50)
	item := testCtx.SeedAvailableItem(t, "owner", 30)

	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, swapPath(item.ID), nil,
		testutils.AuthHeaders(testutils.Token(t, "buyer", false)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.SwapResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, models.SwapCommitted, resp.Swap.Status)
	assert.Equal(t, int64(30), resp.Swap.PointsAmount)
	require.NotNil(t, resp.Item)
	assert.Equal(t, models.StatusSwapped, resp.Item.Status)
	require.NotNil(t, resp.Item.SwappedBy)
	assert.Equal(t, "buyer", *resp.Item.SwappedBy)

	assert.Equal(t, int64(20), testCtx.Balance(t, "buyer"))
	assert.Equal(t, int64(30), testCtx.Balance(t, "owner"))
	assert.Len(t, testCtx.Events.OfType(events.TypeSwapCommitted), 1)

	// Test case 2: The item cannot be swapped twice
	testCtx.SeedAccount(t, "late", 100)
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, swapPath(item.ID), nil,
		testutils.AuthHeaders(testutils.Token(t, "late", false)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ITEM_NOT_AVAILABLE", testutils.DecodeError(t, w).Code)
	assert.Equal(t, int64(100), testCtx.Balance(t, "late"))
}

func TestProposeSwapErrors(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	testCtx.SeedAccount(t, "owner", 0)
	testCtx.SeedAccount(t, "poor", 10)
	item := testCtx.SeedAvailableItem(t, "owner", 30)

	tests := []struct {
		name     string
		subject  string
		path     string
		wantCode int
		wantErr  string
	}{
		{"insufficient points", "poor", swapPath(item.ID), http.StatusBadRequest, "INSUFFICIENT_POINTS"},
		{"self swap", "owner", swapPath(item.ID), http.StatusBadRequest, "SELF_SWAP"},
		{"unknown requester", "stranger", swapPath(item.ID), http.StatusNotFound, "ACCOUNT_NOT_FOUND"},
		{"unknown item", "poor", swapPath("6f1f3f2e-0000-4000-8000-000000000000"), http.StatusNotFound, "ITEM_NOT_FOUND"},
		{"malformed id", "poor", swapPath("not-a-uuid"), http.StatusBadRequest, "INVALID_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutils.PerformRequest(testCtx.Router, http.MethodPost, tt.path, nil,
				testutils.AuthHeaders(testutils.Token(t, tt.subject, false)))
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantErr, testutils.DecodeError(t, w).Code)
		})
	}

	// Nothing moved
	assert.Equal(t, int64(10), testCtx.Balance(t, "poor"))
	assert.Equal(t, int64(0), testCtx.Balance(t, "owner"))

	got, err := testCtx.Service.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, got.Status)
	assert.Equal(t, item.Version, got.Version)

	// Without a token the route is closed
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, swapPath(item.ID), nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestConcurrentSwapRequests(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	testCtx.SeedAccount(t, "owner", 0)
	item := testCtx.SeedAvailableItem(t, "owner", 40)

	const requesters = 8
	tokens := make([]string, requesters)
	for i := 0; i < requesters; i++ {
		testCtx.SeedAccount(t, fmt.Sprintf("buyer-%d", i), 100)
		tokens[i] = testutils.Token(t, fmt.Sprintf("buyer-%d", i), false)
	}

	codes := make(chan int, requesters)
	var wg sync.WaitGroup
	for i := 0; i < requesters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := testutils.PerformRequest(testCtx.Router, http.MethodPost, swapPath(item.ID), nil,
				testutils.AuthHeaders(tokens[i]))
			codes <- w.Code
		}(i)
	}
	wg.Wait()
	close(codes)

	winners := 0
	for code := range codes {
		if code == http.StatusOK {
			winners++
			continue
		}
		assert.Contains(t, []int{http.StatusBadRequest, http.StatusConflict}, code)
	}
	assert.Equal(t, 1, winners)

	var total int64
	for i := 0; i < requesters; i++ {
		total += testCtx.Balance(t, fmt.Sprintf("buyer-%d", i))
	}
	assert.Equal(t, int64(requesters*100-40), total)
	assert.Equal(t, int64(40), testCtx.Balance(t, "owner"))
	assert.Equal(t, float64(1), testutil.ToFloat64(testCtx.Metrics.SwapsTotal.WithLabelValues("committed")))
}

func TestListMySwaps(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	testCtx.SeedAccount(t, "owner", 0)
	testCtx.SeedAccount(t, "buyer", 100)
	first := testCtx.SeedAvailableItem(t, "owner", 30)
	second := testCtx.SeedAvailableItem(t, "owner", 90)

	headers := testutils.AuthHeaders(testutils.Token(t, "buyer", false))
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, swapPath(first.ID), nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, swapPath(second.ID), nil, headers)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/me/swaps", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Swaps []models.SwapTransaction `json:"swaps"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Swaps, 2)

	statuses := map[models.SwapStatus]int{}
	for _, s := range resp.Swaps {
		statuses[s.Status]++
	}
	assert.Equal(t, 1, statuses[models.SwapCommitted])
	assert.Equal(t, 1, statuses[models.SwapRejected])
}
