package handlers

import (
	"io"
	"net/http"

	"github.com/mek0124/momentum/internal/middleware"
	"github.com/mek0124/momentum/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type BillingHandler struct {
	db      *gorm.DB
	billing services.BillingService
}

func NewBillingHandler(db *gorm.DB, billing services.BillingService) *BillingHandler {
	return &BillingHandler{db: db, billing: billing}
}

// Status reports the caller's subscription state.
// GET /subscription/status
func (h *BillingHandler) Status(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "could not validate credentials"})
		return
	}

	status, err := h.billing.Status(h.db, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Checkout starts a payment-processor checkout for the caller.
// POST /subscription/checkout
func (h *BillingHandler) Checkout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "could not validate credentials"})
		return
	}

	session, err := h.billing.CreateCheckoutSession(user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// Webhook receives payment-processor events. The raw body is read before
// any parsing because the signature covers the exact bytes on the wire.
// This route is unauthenticated; the HMAC signature is the credential.
// POST /subscription/webhook
func (h *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	if err := h.billing.HandleWebhook(h.db, payload, sigHeader); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Cancel clears the caller's subscription flag locally.
// POST /subscription/cancel
func (h *BillingHandler) Cancel(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "could not validate credentials"})
		return
	}

	if err := h.billing.Cancel(h.db, user); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "cancelled",
		"message": "subscription cancelled",
	})
}
