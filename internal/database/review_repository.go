package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/festalaurea/booking-backend/internal/models"
)

// ReviewRepository handles database operations for reviews
type ReviewRepository struct {
	db DB
}

// NewReviewRepository creates a new ReviewRepository
func NewReviewRepository(db DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// EligibleBooking finds the booking a new review would attach to: the
// user's most recent completed past booking at the venue that has no
// review yet. When none qualifies, the returned reason says why.
func (r *ReviewRepository) EligibleBooking(userID, venueID int64) (*models.Booking, string, error) {
	query := `
		SELECT b.id, b.user_id, b.venue_id, b.event_date, b.event_time,
		       b.guests, b.total_amount, b.status, b.confirmation_code
		FROM bookings b
		WHERE b.user_id = $1
		  AND b.venue_id = $2
		  AND b.status = 'completed'
		  AND (b.event_date + b.event_time::time) < NOW()
		  AND NOT EXISTS (SELECT 1 FROM reviews rv WHERE rv.booking_id = b.id)
		ORDER BY b.event_date DESC, b.event_time DESC
		LIMIT 1
	`

	booking := &models.Booking{}
	err := r.db.QueryRow(query, userID, venueID).Scan(
		&booking.ID, &booking.UserID, &booking.VenueID, &booking.EventDate, &booking.EventTime,
		&booking.Guests, &booking.TotalAmount, &booking.Status, &booking.ConfirmationCode,
	)
	if err == nil {
		return booking, "", nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("failed to find eligible booking: %w", err)
	}

	var completed int
	countQuery := `
		SELECT COUNT(*)
		FROM bookings
		WHERE user_id = $1
		  AND venue_id = $2
		  AND status = 'completed'
		  AND (event_date + event_time::time) < NOW()
	`
	if err := r.db.QueryRow(countQuery, userID, venueID).Scan(&completed); err != nil {
		return nil, "", fmt.Errorf("failed to count completed bookings: %w", err)
	}

	if completed == 0 {
		return nil, models.ReviewReasonNoCompletedBooking, nil
	}
	return nil, models.ReviewReasonAlreadyReviewedAll, nil
}

// Create inserts a review and refreshes the venue's cached rating in
// the same transaction. The unique (user_id, venue_id, booking_id)
// constraint rejects a concurrent duplicate for the same booking.
func (r *ReviewRepository) Create(review *models.Review) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO reviews (user_id, venue_id, booking_id, rating, title, comment, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRow(
		query,
		review.UserID, review.VenueID, review.BookingID,
		review.Rating, review.Title, review.Comment, review.Verified,
	).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, "") {
			return models.ErrAlreadyReviewed
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	if err := recomputeVenueRating(tx, review.VenueID); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves a review by ID
func (r *ReviewRepository) GetByID(id int64) (*models.Review, error) {
	var review models.Review

	query := `
		SELECT id, user_id, venue_id, booking_id, rating, title, comment,
		       verified, helpful_count, created_at, updated_at
		FROM reviews
		WHERE id = $1
	`

	err := r.db.Get(&review, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	return &review, nil
}

// GetByVenueID retrieves all reviews for a venue, newest first
func (r *ReviewRepository) GetByVenueID(venueID int64) ([]models.Review, error) {
	reviews := []models.Review{}

	query := `
		SELECT rv.id, rv.user_id, rv.venue_id, rv.booking_id, rv.rating,
		       rv.title, rv.comment, rv.verified, rv.helpful_count,
		       rv.created_at, rv.updated_at, u.name AS user_name
		FROM reviews rv
		JOIN users u ON u.id = rv.user_id
		WHERE rv.venue_id = $1
		ORDER BY rv.created_at DESC
	`

	if err := r.db.Select(&reviews, query, venueID); err != nil {
		return nil, fmt.Errorf("failed to get reviews by venue: %w", err)
	}

	return reviews, nil
}

// GetByUserID retrieves all reviews written by a user, newest first
func (r *ReviewRepository) GetByUserID(userID int64) ([]models.Review, error) {
	reviews := []models.Review{}

	query := `
		SELECT rv.id, rv.user_id, rv.venue_id, rv.booking_id, rv.rating,
		       rv.title, rv.comment, rv.verified, rv.helpful_count,
		       rv.created_at, rv.updated_at, v.name AS venue_name
		FROM reviews rv
		JOIN venues v ON v.id = rv.venue_id
		WHERE rv.user_id = $1
		ORDER BY rv.created_at DESC
	`

	if err := r.db.Select(&reviews, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get reviews by user: %w", err)
	}

	return reviews, nil
}

// Update edits a review and refreshes the venue's cached rating
func (r *ReviewRepository) Update(review *models.Review, req *models.UpdateReviewRequest) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE reviews
		SET rating = COALESCE($1, rating),
		    title = COALESCE($2, title),
		    comment = COALESCE($3, comment),
		    updated_at = NOW()
		WHERE id = $4
	`

	result, err := tx.Exec(query, req.Rating, req.Title, req.Comment, review.ID)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrNotFound
	}

	if err := recomputeVenueRating(tx, review.VenueID); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a review and refreshes the venue's cached rating
func (r *ReviewRepository) Delete(review *models.Review) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM reviews WHERE id = $1`, review.ID)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrNotFound
	}

	if err := recomputeVenueRating(tx, review.VenueID); err != nil {
		return err
	}

	return tx.Commit()
}

// MarkHelpful records a helpful vote. Each user may vote once per
// review; a second vote returns ErrAlreadyMarked.
func (r *ReviewRepository) MarkHelpful(reviewID, userID int64) (int, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO review_helpful (review_id, user_id) VALUES ($1, $2)`, reviewID, userID)
	if err != nil {
		if isUniqueViolation(err, "") {
			return 0, models.ErrAlreadyMarked
		}
		return 0, fmt.Errorf("failed to record helpful vote: %w", err)
	}

	var count int
	err = tx.QueryRow(`
		UPDATE reviews
		SET helpful_count = helpful_count + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING helpful_count
	`, reviewID).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, models.ErrNotFound
		}
		return 0, fmt.Errorf("failed to increment helpful count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return count, nil
}

// recomputeVenueRating refreshes the cached average rating and review
// count on the venue row. Only verified reviews count.
func recomputeVenueRating(tx *sqlx.Tx, venueID int64) error {
	query := `
		UPDATE venues
		SET rating = COALESCE((SELECT ROUND(AVG(rating)::numeric, 1) FROM reviews WHERE venue_id = $1 AND verified = TRUE), 0),
		    reviews_count = (SELECT COUNT(*) FROM reviews WHERE venue_id = $1 AND verified = TRUE),
		    updated_at = NOW()
		WHERE id = $1
	`

	if _, err := tx.Exec(query, venueID); err != nil {
		return fmt.Errorf("failed to recompute venue rating: %w", err)
	}

	return nil
}
