package database

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/festalaurea/booking-backend/internal/models"
)

// PaymentEventRepository records processed payment-provider events
type PaymentEventRepository struct {
	db DB
}

// NewPaymentEventRepository creates a new PaymentEventRepository
func NewPaymentEventRepository(db DB) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

// Record stores a provider event. A replayed delivery hits the unique
// provider_id constraint and returns ErrDuplicateEvent, so the caller
// can skip reprocessing.
func (r *PaymentEventRepository) Record(event *models.PaymentEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	query := `
		INSERT INTO payment_events (id, provider_id, event_type, booking_id)
		VALUES ($1, $2, $3, $4)
		RETURNING received_at
	`

	err := r.db.QueryRow(query, event.ID, event.ProviderID, event.EventType, event.BookingID).
		Scan(&event.ReceivedAt)
	if err != nil {
		if isUniqueViolation(err, "payment_events_provider_id_key") {
			return models.ErrDuplicateEvent
		}
		return fmt.Errorf("failed to record payment event: %w", err)
	}

	return nil
}

// Seen checks whether a provider event id was already processed
func (r *PaymentEventRepository) Seen(providerID string) (bool, error) {
	var seen bool

	query := `SELECT EXISTS (SELECT 1 FROM payment_events WHERE provider_id = $1)`

	if err := r.db.QueryRow(query, providerID).Scan(&seen); err != nil {
		return false, fmt.Errorf("failed to check payment event: %w", err)
	}

	return seen, nil
}
