package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/festalaurea/booking-backend/internal/middleware"
	"github.com/festalaurea/booking-backend/internal/models"
	"github.com/festalaurea/booking-backend/internal/services"
)

// PaymentHandler handles payment HTTP requests
type PaymentHandler struct {
	stripeService *services.StripeService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(stripeService *services.StripeService) *PaymentHandler {
	return &PaymentHandler{stripeService: stripeService}
}

// CreateIntent handles POST /api/v1/payments/intent
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.stripeService.CreateIntent(requester(userCtx), req.BookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    resp,
	})
}

// Webhook handles POST /api/v1/payments/webhook
//
// Stripe signs the raw request body, so the payload must be read before
// any JSON binding touches it. This route is unauthenticated; the
// signature check is the authentication.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "bad_request",
			Message: "Failed to read request body",
			Code:    "INVALID_PAYLOAD",
		})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if err := h.stripeService.HandleWebhook(payload, signature); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// Refund handles POST /api/v1/payments/refund
func (h *PaymentHandler) Refund(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.stripeService.Refund(requester(userCtx), req.BookingID, req.Reason); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Refund requested",
	})
}

// Status handles GET /api/v1/bookings/:id/payment
func (h *PaymentHandler) Status(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, models.ErrNotFound)
		return
	}

	status, err := h.stripeService.GetPaymentStatus(requester(userCtx), bookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    status,
	})
}
