package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/festalaurea/booking-backend/internal/middleware"
	"github.com/festalaurea/booking-backend/internal/models"
	"github.com/festalaurea/booking-backend/internal/services"
)

// BookingHandler handles booking HTTP requests
type BookingHandler struct {
	bookingService *services.BookingService
	cronService    *services.CronService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService *services.BookingService, cronService *services.CronService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		cronService:    cronService,
	}
}

// Create handles POST /api/v1/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	booking, err := h.bookingService.CreateBooking(userCtx.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    booking,
	})
}

// Get handles GET /api/v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, models.ErrNotFound)
		return
	}

	booking, err := h.bookingService.GetBooking(requester(userCtx), bookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    booking,
	})
}

// GetByCode handles GET /api/v1/bookings/code/:code. Confirmation
// codes appear on emails and receipts, so customers can look a booking
// up without knowing its id.
func (h *BookingHandler) GetByCode(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	booking, err := h.bookingService.GetBookingByCode(requester(userCtx), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    booking,
	})
}

// Mine handles GET /api/v1/bookings/mine
func (h *BookingHandler) Mine(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	bookings, err := h.bookingService.GetUserBookings(userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    bookings,
	})
}

// Upcoming handles GET /api/v1/bookings/upcoming
func (h *BookingHandler) Upcoming(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	bookings, err := h.bookingService.GetUpcomingBookings(userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    bookings,
	})
}

// VenueAvailability handles GET /api/v1/venues/:id/availability (public)
func (h *BookingHandler) VenueAvailability(c *gin.Context) {
	venueID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, models.ErrNotFound)
		return
	}

	days := 0
	if v := c.Query("days"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			days = parsed
		}
	}

	slots, err := h.bookingService.GetVenueAvailability(venueID, days)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    slots,
	})
}

// VenueBookings handles GET /api/v1/venues/:id/bookings (owner or admin)
func (h *BookingHandler) VenueBookings(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	venueID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, models.ErrNotFound)
		return
	}

	bookings, err := h.bookingService.GetVenueBookings(requester(userCtx), venueID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    bookings,
	})
}

// UpdateStatus handles PATCH /api/v1/bookings/:id/status
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, models.ErrNotFound)
		return
	}

	var req models.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	booking, err := h.bookingService.UpdateStatus(requester(userCtx), bookingID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    booking,
	})
}

// Cancel handles POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, models.ErrNotFound)
		return
	}

	// Body is optional; an empty body means no cancellation reason.
	var req models.CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	booking, err := h.bookingService.CancelBooking(requester(userCtx), bookingID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    booking,
	})
}

// OwnerStats handles GET /api/v1/bookings/stats (venue owner dashboard)
func (h *BookingHandler) OwnerStats(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	stats, err := h.bookingService.GetOwnerStats(userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// RunAutoComplete handles POST /api/v1/admin/jobs/complete-bookings,
// the manual trigger for the hourly completion sweep.
func (h *BookingHandler) RunAutoComplete(c *gin.Context) {
	if err := h.cronService.RunCompleteBookingsNow(); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Booking completion sweep finished",
	})
}

// JobStatus handles GET /api/v1/admin/jobs, reporting scheduler state
func (h *BookingHandler) JobStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.cronService.GetJobStatus(),
	})
}
