package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/festalaurea/booking-backend/internal/middleware"
	"github.com/festalaurea/booking-backend/internal/models"
	"github.com/festalaurea/booking-backend/internal/services"
)

// VenueHandler handles venue catalogue HTTP requests
type VenueHandler struct {
	venueService *services.VenueService
}

// NewVenueHandler creates a new venue handler
func NewVenueHandler(venueService *services.VenueService) *VenueHandler {
	return &VenueHandler{venueService: venueService}
}

// List handles GET /api/v1/venues
//
// Supported query parameters: type, capacity, max_price, featured,
// search, page, per_page.
func (h *VenueHandler) List(c *gin.Context) {
	filter := &models.VenueFilter{
		Page:    1,
		PerPage: 20,
	}

	if v := c.Query("type"); v != "" {
		filter.Type = &v
	}
	if v := c.Query("capacity"); v != "" {
		if capacity, err := strconv.Atoi(v); err == nil && capacity > 0 {
			filter.Capacity = &capacity
		}
	}
	if v := c.Query("max_price"); v != "" {
		if maxPrice, err := strconv.ParseFloat(v, 64); err == nil && maxPrice > 0 {
			filter.MaxPrice = &maxPrice
		}
	}
	if v := c.Query("featured"); v != "" {
		featured := v == "true" || v == "1"
		filter.Featured = &featured
	}
	if v := c.Query("search"); v != "" {
		filter.Search = &v
	}
	if v := c.Query("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil {
			filter.Page = page
		}
	}
	if v := c.Query("per_page"); v != "" {
		if perPage, err := strconv.Atoi(v); err == nil {
			filter.PerPage = perPage
		}
	}

	venues, total, err := h.venueService.ListVenues(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    venues,
		"meta": gin.H{
			"total":    total,
			"page":     filter.Page,
			"per_page": filter.PerPage,
		},
	})
}

// Get handles GET /api/v1/venues/:id, by numeric id or slug
func (h *VenueHandler) Get(c *gin.Context) {
	param := c.Param("id")

	id, _ := strconv.ParseInt(param, 10, 64)
	venue, err := h.venueService.GetVenue(param, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    venue,
	})
}

// Mine handles GET /api/v1/venues/mine, the owner's venues
func (h *VenueHandler) Mine(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	venues, err := h.venueService.GetOwnerVenues(userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    venues,
	})
}

// Create handles POST /api/v1/venues
func (h *VenueHandler) Create(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.CreateVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	venue, err := h.venueService.CreateVenue(requester(userCtx), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    venue,
	})
}

// Update handles PUT /api/v1/venues/:id
//
// Ownership is enforced by the RequireVenueOwnership middleware, which
// stores the loaded venue in the context.
func (h *VenueHandler) Update(c *gin.Context) {
	venue, ok := middleware.GetVenueContext(c)
	if !ok {
		respondError(c, models.ErrNotFound)
		return
	}

	var req models.UpdateVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.venueService.UpdateVenue(venue, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    updated,
	})
}

// Delete handles DELETE /api/v1/venues/:id. The venue is deactivated,
// not removed.
func (h *VenueHandler) Delete(c *gin.Context) {
	venue, ok := middleware.GetVenueContext(c)
	if !ok {
		respondError(c, models.ErrNotFound)
		return
	}

	if err := h.venueService.DeleteVenue(venue); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Venue deactivated",
	})
}

// SetFeatured handles PATCH /api/v1/venues/:id/featured (admin only)
func (h *VenueHandler) SetFeatured(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	venueID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, models.ErrNotFound)
		return
	}

	var req struct {
		Featured bool `json:"featured"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	venue, err := h.venueService.SetFeatured(requester(userCtx), venueID, req.Featured)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    venue,
	})
}

// SetActive handles PATCH /api/v1/venues/:id/active (admin only).
// New listings wait here until an administrator approves them.
func (h *VenueHandler) SetActive(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	venueID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, models.ErrNotFound)
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	venue, err := h.venueService.SetActive(requester(userCtx), venueID, req.Active)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    venue,
	})
}
