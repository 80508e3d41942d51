package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rewear/swap-ledger/internal/models"
)

func (h *Handler) UpsertUser(c *gin.Context) {
	var req models.UpsertUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	account, created, err := h.service.UpsertAccount(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"status": "success", "user": account, "created": created})
}

func (h *Handler) GetMe(c *gin.Context) {
	summary, err := h.service.GetAccountSummary(c.Request.Context(), actorFrom(c).AccountID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "account": summary.Account, "recentEntries": summary.RecentEntries})
}

func (h *Handler) ListMySwaps(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	swaps, err := h.service.ListSwaps(c.Request.Context(), actorFrom(c).AccountID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "swaps": swaps})
}

func (h *Handler) CreateTestimonial(c *gin.Context) {
	var req models.CreateTestimonialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	testimonial, err := h.service.CreateTestimonial(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "testimonial": testimonial})
}

func (h *Handler) ListTestimonials(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	testimonials, err := h.service.ListTestimonials(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "testimonials": testimonials})
}

func (h *Handler) GetPublicStats(c *gin.Context) {
	stats, err := h.service.GetPublicStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
