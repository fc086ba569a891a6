package models

import "time"

// PaymentEvent records a processed payment-provider webhook event.
// The unique provider id makes replayed deliveries no-ops.
type PaymentEvent struct {
	ID         string    `json:"id" db:"id"`
	ProviderID string    `json:"provider_id" db:"provider_id"`
	EventType  string    `json:"event_type" db:"event_type"`
	BookingID  *int64    `json:"booking_id,omitempty" db:"booking_id"`
	ReceivedAt time.Time `json:"received_at" db:"received_at"`
}

// CreateIntentRequest represents the request to start a payment
type CreateIntentRequest struct {
	BookingID int64 `json:"booking_id" binding:"required"`
}

// CreateIntentResponse carries the client secret for the payment form
type CreateIntentResponse struct {
	PaymentIntentID string  `json:"payment_intent_id"`
	ClientSecret    string  `json:"client_secret"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
}

// RefundRequest represents the request to refund a paid booking
type RefundRequest struct {
	BookingID int64   `json:"booking_id" binding:"required"`
	Reason    *string `json:"reason,omitempty"`
}

// PaymentStatusResponse reports the payment state of a booking
type PaymentStatusResponse struct {
	BookingID       int64         `json:"booking_id"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	PaymentIntentID *string       `json:"payment_intent_id,omitempty"`
	Amount          float64       `json:"amount"`
}
