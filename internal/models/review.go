package models

import (
	"strings"
	"time"
)

// Review represents a verified venue review tied to a completed booking
type Review struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	VenueID      int64     `json:"venue_id" db:"venue_id"`
	BookingID    int64     `json:"booking_id" db:"booking_id"`
	Rating       int       `json:"rating" db:"rating"`
	Title        *string   `json:"title,omitempty" db:"title"`
	Comment      *string   `json:"comment,omitempty" db:"comment"`
	Verified     bool      `json:"verified" db:"verified"`
	HelpfulCount int       `json:"helpful_count" db:"helpful_count"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`

	// Joined fields
	UserName  *string `json:"user_name,omitempty" db:"user_name"`
	VenueName *string `json:"venue_name,omitempty" db:"venue_name"`
}

// Reasons a user may be ineligible to review a venue
const (
	ReviewReasonNoCompletedBooking = "NoCompletedBooking"
	ReviewReasonAlreadyReviewedAll = "AlreadyReviewedAll"
)

// ReviewEligibility reports whether a user may review a venue and,
// when eligible, which booking the review would attach to.
type ReviewEligibility struct {
	CanReview bool     `json:"can_review"`
	BookingID *int64   `json:"booking_id,omitempty"`
	Reason    *string  `json:"reason,omitempty"`
	Booking   *Booking `json:"booking,omitempty"`
}

// CreateReviewRequest represents the request to post a review
type CreateReviewRequest struct {
	VenueID int64   `json:"venue_id" binding:"required"`
	Rating  int     `json:"rating" binding:"required,min=1,max=5"`
	Title   *string `json:"title,omitempty"`
	Comment *string `json:"comment,omitempty"`
}

// UpdateReviewRequest represents the request to edit a review
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating,omitempty"`
	Title   *string `json:"title,omitempty"`
	Comment *string `json:"comment,omitempty"`
}

// Validate validates the create review request
func (r *CreateReviewRequest) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return NewValidationError("rating", "rating must be between 1 and 5")
	}

	if r.Comment != nil && len(strings.TrimSpace(*r.Comment)) > 2000 {
		return NewValidationError("comment", "comment must be at most 2000 characters")
	}

	return nil
}

// Validate validates the update review request
func (r *UpdateReviewRequest) Validate() error {
	if r.Rating != nil && (*r.Rating < 1 || *r.Rating > 5) {
		return NewValidationError("rating", "rating must be between 1 and 5")
	}

	return nil
}
