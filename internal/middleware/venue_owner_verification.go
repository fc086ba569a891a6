package middleware

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/festalaurea/booking-backend/internal/database"
	"github.com/festalaurea/booking-backend/internal/models"
)

// VenueContextKey is the key used to store the resolved venue in Gin context
const VenueContextKey = "venue"

// RequireVenueOwnership resolves the :id route parameter to a venue and
// checks it belongs to the authenticated user. Admins pass regardless.
// Must be used after AuthMiddleware.
func RequireVenueOwnership(venueRepo *database.VenueRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "unauthorized",
				"message": "User context not found",
			})
			c.Abort()
			return
		}

		venueID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "invalid_id",
				"message": "Venue id must be a number",
			})
			c.Abort()
			return
		}

		venue, err := venueRepo.GetByID(venueID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{
					"success": false,
					"error":   "not_found",
					"message": "Venue not found",
				})
			} else {
				log.Printf("ERROR: Failed to load venue for ownership check: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   "internal_error",
					"message": "Failed to load venue",
				})
			}
			c.Abort()
			return
		}

		if venue.OwnerID != userCtx.UserID && userCtx.Type != models.UserTypeAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "forbidden",
				"message": "You don't manage this venue",
				"code":    "NOT_VENUE_OWNER",
			})
			c.Abort()
			return
		}

		c.Set(VenueContextKey, venue)

		c.Next()
	}
}

// GetVenueContext retrieves the venue resolved by RequireVenueOwnership
func GetVenueContext(c *gin.Context) (*models.Venue, bool) {
	value, exists := c.Get(VenueContextKey)
	if !exists {
		return nil, false
	}

	venue, ok := value.(*models.Venue)
	return venue, ok
}
