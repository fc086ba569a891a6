package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/festalaurea/booking-backend/internal/models"
)

// scanner abstracts sql.Row and sql.Rows for single-row scans
type scanner interface {
	Scan(dest ...interface{}) error
}

// BookingRepository handles database operations for bookings table
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	b.id, b.user_id, b.venue_id, b.event_date, b.event_time,
	b.guests, b.menu_type, b.notes, b.total_amount, b.deposit_amount,
	b.status, b.payment_status, b.confirmation_code, b.stripe_payment_intent_id,
	b.cancelled_at, b.cancellation_reason, b.created_at, b.updated_at
`

// Create creates a new booking. The partial unique index on
// (venue_id, event_date, event_time) rejects a second non-cancelled
// booking for the same slot, which is surfaced as ErrSlotUnavailable.
func (r *BookingRepository) Create(booking *models.Booking) error {
	query := `
		INSERT INTO bookings (
			user_id, venue_id, event_date, event_time, guests,
			menu_type, notes, total_amount, deposit_amount,
			status, payment_status, confirmation_code
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		booking.UserID, booking.VenueID, booking.EventDate, booking.EventTime,
		booking.Guests, booking.MenuType, booking.Notes,
		booking.TotalAmount, booking.DepositAmount,
		booking.Status, booking.PaymentStatus, booking.ConfirmationCode,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, "bookings_slot_unique") {
			return models.ErrSlotUnavailable
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(bookingID int64) (*models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.id = $1
	`

	return r.scanBooking(r.db.QueryRow(query, bookingID))
}

// GetByConfirmationCode retrieves a booking by its confirmation code
func (r *BookingRepository) GetByConfirmationCode(code string) (*models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.confirmation_code = $1
	`

	return r.scanBooking(r.db.QueryRow(query, code))
}

// GetByPaymentIntentID retrieves the booking tied to a payment intent
func (r *BookingRepository) GetByPaymentIntentID(intentID string) (*models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.stripe_payment_intent_id = $1
	`

	return r.scanBooking(r.db.QueryRow(query, intentID))
}

// GetByUserID retrieves all bookings made by a user, newest event first
func (r *BookingRepository) GetByUserID(userID int64) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `, v.name AS venue_name
		FROM bookings b
		JOIN venues v ON v.id = b.venue_id
		WHERE b.user_id = $1
		ORDER BY b.event_date DESC, b.event_time DESC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by user: %w", err)
	}
	defer rows.Close()

	return r.scanBookingsWith(rows, withVenueName)
}

// GetByVenueID retrieves all bookings for a venue, newest event first
func (r *BookingRepository) GetByVenueID(venueID int64) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `, u.name AS user_name, u.email AS user_email
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		WHERE b.venue_id = $1
		ORDER BY b.event_date DESC, b.event_time DESC
	`

	rows, err := r.db.Query(query, venueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by venue: %w", err)
	}
	defer rows.Close()

	return r.scanBookingsWith(rows, withUserInfo)
}

// GetUpcomingByUser retrieves a user's pending or confirmed future bookings
func (r *BookingRepository) GetUpcomingByUser(userID int64) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `, v.name AS venue_name
		FROM bookings b
		JOIN venues v ON v.id = b.venue_id
		WHERE b.user_id = $1
		  AND b.status IN ('pending', 'confirmed')
		  AND (b.event_date + b.event_time::time) >= NOW()
		ORDER BY b.event_date, b.event_time
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming bookings: %w", err)
	}
	defer rows.Close()

	return r.scanBookingsWith(rows, withVenueName)
}

// UpdateStatus updates the booking lifecycle status
func (r *BookingRepository) UpdateStatus(bookingID int64, status models.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, bookingID, status)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Cancel cancels a booking
func (r *BookingRepository) Cancel(bookingID int64, reason *string) error {
	query := `
		UPDATE bookings
		SET status = 'cancelled',
			cancellation_reason = $2,
			cancelled_at = NOW(),
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, bookingID, reason)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return models.ErrNotFound
	}

	return nil
}

// SetPaymentStatus updates the payment state of a booking, optionally
// recording the payment intent id and moving the lifecycle status.
func (r *BookingRepository) SetPaymentStatus(bookingID int64, payment models.PaymentStatus, status models.BookingStatus, intentID *string) error {
	query := `
		UPDATE bookings
		SET payment_status = $2,
			status = $3,
			stripe_payment_intent_id = COALESCE($4, stripe_payment_intent_id),
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, bookingID, payment, status, intentID)
	if err != nil {
		return fmt.Errorf("failed to set payment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return models.ErrNotFound
	}

	return nil
}

// SlotTaken checks whether a non-cancelled booking already holds the
// given venue/date/time slot.
func (r *BookingRepository) SlotTaken(venueID int64, eventDate, eventTime string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE venue_id = $1
			  AND event_date = $2
			  AND event_time = $3
			  AND status <> 'cancelled'
		)
	`

	var taken bool
	err := r.db.QueryRow(query, venueID, eventDate, eventTime).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check slot availability: %w", err)
	}

	return taken, nil
}

// BookedSlots lists the non-cancelled date/time slots of a venue in the
// given date range, for the public availability calendar.
func (r *BookingRepository) BookedSlots(venueID int64, from, to time.Time) ([]models.BookedSlot, error) {
	query := `
		SELECT event_date, event_time
		FROM bookings
		WHERE venue_id = $1
		  AND event_date >= $2
		  AND event_date <= $3
		  AND status <> 'cancelled'
		ORDER BY event_date, event_time
	`

	slots := []models.BookedSlot{}
	if err := r.db.Select(&slots, query, venueID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list booked slots: %w", err)
	}

	return slots, nil
}

// CompleteFinishedBookings marks confirmed bookings whose event is in
// the past as completed and returns how many rows changed. Safe to run
// repeatedly.
func (r *BookingRepository) CompleteFinishedBookings() (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'completed', updated_at = NOW()
		WHERE status = 'confirmed'
		  AND (event_date + event_time::time) < NOW()
	`

	result, err := r.db.Exec(query)
	if err != nil {
		return 0, fmt.Errorf("failed to complete finished bookings: %w", err)
	}

	return result.RowsAffected()
}

// GetStatsForOwner aggregates booking counts and paid revenue across
// all venues owned by a user.
func (r *BookingRepository) GetStatsForOwner(ownerID int64) (*models.BookingStats, error) {
	query := `
		SELECT
			COUNT(*) AS total_bookings,
			COUNT(*) FILTER (WHERE b.status = 'pending') AS pending_bookings,
			COUNT(*) FILTER (WHERE b.status = 'confirmed') AS confirmed_bookings,
			COUNT(*) FILTER (WHERE b.status = 'completed') AS completed_bookings,
			COUNT(*) FILTER (WHERE b.status = 'cancelled') AS cancelled_bookings,
			COALESCE(SUM(b.total_amount) FILTER (WHERE b.payment_status = 'paid'), 0) AS total_revenue
		FROM bookings b
		JOIN venues v ON v.id = b.venue_id
		WHERE v.owner_id = $1
	`

	var stats models.BookingStats
	err := r.db.Get(&stats, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	return &stats, nil
}

type extraColumns int

const (
	withVenueName extraColumns = iota
	withUserInfo
)

// scanBooking scans a single booking
func (r *BookingRepository) scanBooking(row scanner) (*models.Booking, error) {
	booking := &models.Booking{}
	var menuType sql.NullString
	var notes sql.NullString
	var intentID sql.NullString
	var cancelledAt sql.NullTime
	var cancellationReason sql.NullString

	err := row.Scan(
		&booking.ID, &booking.UserID, &booking.VenueID, &booking.EventDate, &booking.EventTime,
		&booking.Guests, &menuType, &notes, &booking.TotalAmount, &booking.DepositAmount,
		&booking.Status, &booking.PaymentStatus, &booking.ConfirmationCode, &intentID,
		&cancelledAt, &cancellationReason, &booking.CreatedAt, &booking.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	// Convert sql.Null* types
	if menuType.Valid {
		booking.MenuType = &menuType.String
	}
	if notes.Valid {
		booking.Notes = &notes.String
	}
	if intentID.Valid {
		booking.StripePaymentIntentID = &intentID.String
	}
	if cancelledAt.Valid {
		booking.CancelledAt = &cancelledAt.Time
	}
	if cancellationReason.Valid {
		booking.CancellationReason = &cancellationReason.String
	}

	return booking, nil
}

// scanBookingsWith scans multiple bookings from rows, including the
// joined columns the query selected.
func (r *BookingRepository) scanBookingsWith(rows *sql.Rows, extras extraColumns) ([]models.Booking, error) {
	bookings := []models.Booking{}

	for rows.Next() {
		var booking models.Booking
		var menuType sql.NullString
		var notes sql.NullString
		var intentID sql.NullString
		var cancelledAt sql.NullTime
		var cancellationReason sql.NullString
		var venueName sql.NullString
		var userName sql.NullString
		var userEmail sql.NullString

		dest := []interface{}{
			&booking.ID, &booking.UserID, &booking.VenueID, &booking.EventDate, &booking.EventTime,
			&booking.Guests, &menuType, &notes, &booking.TotalAmount, &booking.DepositAmount,
			&booking.Status, &booking.PaymentStatus, &booking.ConfirmationCode, &intentID,
			&cancelledAt, &cancellationReason, &booking.CreatedAt, &booking.UpdatedAt,
		}

		switch extras {
		case withVenueName:
			dest = append(dest, &venueName)
		case withUserInfo:
			dest = append(dest, &userName, &userEmail)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		// Convert sql.Null* types
		if menuType.Valid {
			booking.MenuType = &menuType.String
		}
		if notes.Valid {
			booking.Notes = &notes.String
		}
		if intentID.Valid {
			booking.StripePaymentIntentID = &intentID.String
		}
		if cancelledAt.Valid {
			booking.CancelledAt = &cancelledAt.Time
		}
		if cancellationReason.Valid {
			booking.CancellationReason = &cancellationReason.String
		}
		if venueName.Valid {
			booking.VenueName = &venueName.String
		}
		if userName.Valid {
			booking.UserName = &userName.String
		}
		if userEmail.Valid {
			booking.UserEmail = &userEmail.String
		}

		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}
