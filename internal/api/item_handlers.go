package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rewear/swap-ledger/internal/models"
)

// itemID validates the :id path parameter
func itemID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondBadRequest(c, "INVALID_ID", "Item ID must be a UUID")
		return "", false
	}
	return id, true
}

func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		respondBadRequest(c, "INVALID_QUERY", name+" must be a non-negative integer")
		return 0, false
	}
	return v, true
}

func (h *Handler) ListItems(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}

	filter := models.ItemFilter{
		Status:   models.ItemStatus(c.Query("status")),
		OwnerID:  c.Query("ownerId"),
		Category: c.Query("category"),
		Sort:     c.Query("sort"),
		Order:    c.Query("order"),
		Limit:    limit,
		Offset:   offset,
	}

	items, err := h.service.ListItems(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "items": items})
}

func (h *Handler) GetItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	item, err := h.service.GetItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "item": item})
}

func (h *Handler) CreateItem(c *gin.Context) {
	var req models.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	item, err := h.service.CreateItem(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "item": item})
}

func (h *Handler) SubmitItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	item, err := h.service.SubmitItem(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "item": item})
}

// ProposeSwap handles POST /api/items/:id/swap for the authenticated requester
func (h *Handler) ProposeSwap(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.swapTimeout)
	defer cancel()

	swap, err := h.service.ProposeSwap(ctx, id, actorFrom(c).AccountID)
	if err != nil {
		respondError(c, err)
		return
	}

	item, err := h.service.GetItem(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SwapResponse{
		Status: "success",
		Item:   item,
		Swap:   *swap,
	})
}
