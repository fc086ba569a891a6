package models

import (
	"time"
)

// PaymentStatus represents the payment status of a booking
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// IsValid checks that the status is one of the known lifecycle states
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// CancellationWindow is the minimum lead time before the event at which
// a booking may still be cancelled.
const CancellationWindow = 24 * time.Hour

// Booking represents a venue reservation for an event
type Booking struct {
	ID                    int64         `json:"id" db:"id"`
	UserID                int64         `json:"user_id" db:"user_id"`
	VenueID               int64         `json:"venue_id" db:"venue_id"`
	EventDate             time.Time     `json:"event_date" db:"event_date"`
	EventTime             string        `json:"event_time" db:"event_time"`
	Guests                int           `json:"guests" db:"guests"`
	MenuType              *string       `json:"menu_type,omitempty" db:"menu_type"`
	Notes                 *string       `json:"notes,omitempty" db:"notes"`
	TotalAmount           float64       `json:"total_amount" db:"total_amount"`
	DepositAmount         float64       `json:"deposit_amount" db:"deposit_amount"`
	Status                BookingStatus `json:"status" db:"status"`
	PaymentStatus         PaymentStatus `json:"payment_status" db:"payment_status"`
	ConfirmationCode      string        `json:"confirmation_code" db:"confirmation_code"`
	StripePaymentIntentID *string       `json:"stripe_payment_intent_id,omitempty" db:"stripe_payment_intent_id"`
	CancelledAt           *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancellationReason    *string       `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CreatedAt             time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at" db:"updated_at"`

	// Joined fields, populated by list queries
	VenueName *string `json:"venue_name,omitempty" db:"venue_name"`
	UserName  *string `json:"user_name,omitempty" db:"user_name"`
	UserEmail *string `json:"user_email,omitempty" db:"user_email"`
}

// CreateBookingRequest represents the request to create a booking
type CreateBookingRequest struct {
	VenueID       int64   `json:"venue_id" binding:"required"`
	EventDate     string  `json:"event_date" binding:"required"`
	EventTime     string  `json:"event_time" binding:"required"`
	Guests        int     `json:"guests" binding:"required,min=1"`
	MenuType      *string `json:"menu_type,omitempty"`
	Notes         *string `json:"notes,omitempty"`
	TotalAmount   float64 `json:"total_amount" binding:"required"`
	DepositAmount float64 `json:"deposit_amount"`
}

// UpdateBookingStatusRequest represents the request to change a booking's status
type UpdateBookingStatusRequest struct {
	Status BookingStatus `json:"status" binding:"required"`
}

// CancelBookingRequest represents the request to cancel a booking
type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// BookedSlot is an occupied date/time pair on a venue's calendar
type BookedSlot struct {
	EventDate time.Time `json:"event_date" db:"event_date"`
	EventTime string    `json:"event_time" db:"event_time"`
}

// Validate validates the create booking request
func (r *CreateBookingRequest) Validate() error {
	if r.Guests < 1 {
		return NewValidationError("guests", "guests must be at least 1")
	}

	if _, err := time.Parse("2006-01-02", r.EventDate); err != nil {
		return NewValidationError("event_date", "event_date must be in YYYY-MM-DD format")
	}

	if _, err := time.Parse("15:04", r.EventTime); err != nil {
		return NewValidationError("event_time", "event_time must be in HH:MM format")
	}

	if r.TotalAmount < 0 {
		return NewValidationError("total_amount", "total_amount cannot be negative")
	}

	if r.DepositAmount < 0 {
		return NewValidationError("deposit_amount", "deposit_amount cannot be negative")
	}

	if r.DepositAmount > r.TotalAmount {
		return NewValidationError("deposit_amount", "deposit_amount cannot exceed total_amount")
	}

	return nil
}

// EventDateTime combines the event date and time into a single instant
func (b *Booking) EventDateTime() time.Time {
	t, err := time.Parse("15:04", b.EventTime)
	if err != nil {
		return b.EventDate
	}
	return time.Date(b.EventDate.Year(), b.EventDate.Month(), b.EventDate.Day(),
		t.Hour(), t.Minute(), 0, 0, time.UTC)
}

// CanBeCancelled checks whether cancellation is still allowed at the
// given instant: the booking must be pending or confirmed and the event
// must be more than the cancellation window away.
func (b *Booking) CanBeCancelled(now time.Time) bool {
	if b.Status != BookingStatusPending && b.Status != BookingStatusConfirmed {
		return false
	}
	return b.EventDateTime().Sub(now) >= CancellationWindow
}

// Cancel transitions the booking to cancelled
func (b *Booking) Cancel(reason *string, now time.Time) {
	b.Status = BookingStatusCancelled
	b.CancelledAt = &now
	b.CancellationReason = reason
	b.UpdatedAt = now
}

// CanTransitionTo checks whether a status change is allowed by the
// booking lifecycle. Completed and cancelled are terminal.
func (b *Booking) CanTransitionTo(target BookingStatus) bool {
	switch b.Status {
	case BookingStatusPending:
		return target == BookingStatusConfirmed || target == BookingStatusCancelled
	case BookingStatusConfirmed:
		return target == BookingStatusCompleted || target == BookingStatusCancelled
	}
	return false
}

// NeedsRefund checks if a cancellation should trigger a refund
func (b *Booking) NeedsRefund() bool {
	return b.PaymentStatus == PaymentStatusPaid
}
