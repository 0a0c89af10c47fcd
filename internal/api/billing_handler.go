package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/journal-submission-api/internal/auth"
	"github.com/journal-submission-api/internal/models"
	"github.com/journal-submission-api/internal/service"
	"github.com/rs/zerolog"
)

// BillingHandler handles subscription, wallet and finance endpoints
type BillingHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(services *service.Services, log zerolog.Logger) *BillingHandler {
	return &BillingHandler{
		services: services,
		log:      log.With().Str("handler", "billing").Logger(),
	}
}

// MySubscription handles GET /api/billing/my-subscription/
func (h *BillingHandler) MySubscription(c *gin.Context) {
	sub, err := h.services.Billing.MySubscription(c.Request.Context(), auth.ActorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Subscribe handles POST /api/billing/subscribe/
func (h *BillingHandler) Subscribe(c *gin.Context) {
	var req models.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PlanID <= 0 {
		badRequest(c, "plan_id is required")
		return
	}

	sub, err := h.services.Billing.Subscribe(c.Request.Context(), auth.ActorFrom(c), req.PlanID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":      "Subscription activated",
		"subscription": sub,
	})
}

// Transactions handles GET /api/billing/transactions/?limit=
func (h *BillingHandler) Transactions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = v
	}

	txns, err := h.services.Billing.Transactions(c.Request.Context(), auth.ActorFrom(c), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

// AdjustBalance handles POST /api/billing/adjust-balance/
func (h *BillingHandler) AdjustBalance(c *gin.Context) {
	var req models.AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	user, err := h.services.Billing.AdjustBalance(c.Request.Context(), auth.ActorFrom(c), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":    user.ID,
		"balance": user.Balance.StringFixed(2),
	})
}

// FinanceSummary handles GET /api/finance/summary/
func (h *BillingHandler) FinanceSummary(c *gin.Context) {
	summary, err := h.services.Billing.FinanceSummary(c.Request.Context(), auth.ActorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
