package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/festalaurea/booking-backend/internal/middleware"
	"github.com/festalaurea/booking-backend/internal/models"
	"github.com/festalaurea/booking-backend/internal/services"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// respondError maps a service error to an HTTP status and envelope.
// Unknown errors become an opaque 500 so internals never leak.
func respondError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: validationErr.Message,
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	var rateLimitErr *services.RateLimitError
	if errors.As(err, &rateLimitErr) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success":     false,
			"error":       "rate_limit_exceeded",
			"message":     rateLimitErr.Message,
			"retry_after": rateLimitErr.RetryAfter,
			"type":        rateLimitErr.Type,
		})
		return
	}

	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Resource not found",
			Code:    "NOT_FOUND",
		})
	case errors.Is(err, models.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_credentials",
			Message: "Invalid email or password",
			Code:    "INVALID_CREDENTIALS",
		})
	case errors.Is(err, models.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired token",
			Code:    "INVALID_TOKEN",
		})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: "You do not have permission to perform this action",
			Code:    "FORBIDDEN",
		})
	case errors.Is(err, models.ErrEmailTaken):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "email_taken",
			Message: "An account with this email already exists",
			Code:    "EMAIL_TAKEN",
		})
	case errors.Is(err, models.ErrSlotUnavailable):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "slot_unavailable",
			Message: "The venue is already booked for this date and time",
			Code:    "SLOT_UNAVAILABLE",
		})
	case errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "invalid_status",
			Message: "The booking cannot move to the requested status",
			Code:    "INVALID_STATUS_TRANSITION",
		})
	case errors.Is(err, models.ErrTooLateToCancel):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "too_late_to_cancel",
			Message: "Bookings can only be cancelled more than 24 hours before the event",
			Code:    "CANCELLATION_WINDOW_PASSED",
		})
	case errors.Is(err, models.ErrNotEligible):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "not_eligible",
			Message: "Only customers with a completed booking can review this venue",
			Code:    "NOT_ELIGIBLE",
		})
	case errors.Is(err, models.ErrAlreadyReviewed):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "already_reviewed",
			Message: "You have already reviewed this booking",
			Code:    "ALREADY_REVIEWED",
		})
	case errors.Is(err, models.ErrAlreadyMarked):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "already_marked",
			Message: "You have already marked this review as helpful",
			Code:    "ALREADY_MARKED",
		})
	case errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: "The resource conflicts with an existing one",
			Code:    "CONFLICT",
		})
	case errors.Is(err, models.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_signature",
			Message: "Webhook signature verification failed",
			Code:    "INVALID_SIGNATURE",
		})
	case errors.Is(err, models.ErrPaymentRequired):
		c.JSON(http.StatusPaymentRequired, ErrorResponse{
			Error:   "payment_required",
			Message: "The booking has no refundable payment",
			Code:    "PAYMENT_REQUIRED",
		})
	case errors.Is(err, models.ErrExternalService):
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "external_service_error",
			Message: "The payment provider is unavailable. Please try again.",
			Code:    "EXTERNAL_SERVICE_ERROR",
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Something went wrong. Please try again.",
			Code:    "INTERNAL_ERROR",
		})
	}
}

// respondBindError reports a malformed or incomplete JSON body
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: "Invalid request body: " + err.Error(),
		Code:    "INVALID_BODY",
	})
}

// requester builds the service-level caller reference from the
// middleware user context.
func requester(ctx middleware.UserContext) services.UserRef {
	return services.UserRef{ID: ctx.UserID, Type: ctx.Type}
}
