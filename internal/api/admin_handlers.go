package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rewear/swap-ledger/internal/models"
)

func (h *Handler) AdminLogin(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	resp, err := h.service.AdminLogin(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListUsers(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}

	accounts, err := h.service.ListAccounts(c.Request.Context(), actorFrom(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "users": accounts})
}

// ModerateItem applies {action, expectedVersion} to an item
func (h *Handler) ModerateItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	var req models.ModerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	item, err := h.service.ApplyModeration(c.Request.Context(), actorFrom(c), id, req.ExpectedVersion, req.Action)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "item": item})
}

func (h *Handler) AdjustBalance(c *gin.Context) {
	var req models.AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	account, err := h.service.AdjustBalance(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "user": account})
}

func (h *Handler) ReconcileUser(c *gin.Context) {
	res, err := h.service.ReconcileAccount(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetDashboard(c *gin.Context) {
	stats, err := h.service.GetDashboardStats(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
