package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/festalaurea/booking-backend/internal/middleware"
	"github.com/festalaurea/booking-backend/internal/models"
	"github.com/festalaurea/booking-backend/internal/services"
	"github.com/festalaurea/booking-backend/internal/utils"
)

// AnalyticsHandler handles page-view tracking and traffic stats
type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// Track handles POST /api/v1/analytics/track
//
// Works for both anonymous and authenticated visitors; when a valid
// token came in, the page view is attributed to the user.
func (h *AnalyticsHandler) Track(c *gin.Context) {
	var req models.TrackPageViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	var userID *int64
	if userCtx, ok := middleware.GetUserContext(c); ok {
		userID = &userCtx.UserID
	}

	ip := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)

	if err := h.analyticsService.TrackPageView(&req, userID, ip, userAgent); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
	})
}

// PopularVenues handles GET /api/v1/analytics/popular-venues
//
// Public ranking of venues by recent booking volume. Accepts optional
// ?days= and ?limit= parameters.
func (h *AnalyticsHandler) PopularVenues(c *gin.Context) {
	days := 0
	if v := c.Query("days"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			days = parsed
		}
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	venues, err := h.analyticsService.GetPopularVenues(days, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    venues,
	})
}

// Stats handles GET /api/v1/admin/analytics (admin only)
//
// Accepts an optional ?days= parameter, defaulting to the last 30 days.
func (h *AnalyticsHandler) Stats(c *gin.Context) {
	days := 0
	if v := c.Query("days"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			days = parsed
		}
	}

	stats, err := h.analyticsService.GetStats(days)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}
