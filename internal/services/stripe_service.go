package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/festalaurea/booking-backend/internal/config"
	"github.com/festalaurea/booking-backend/internal/database"
	"github.com/festalaurea/booking-backend/internal/metrics"
	"github.com/festalaurea/booking-backend/internal/models"
)

// signatureTolerance bounds how old a webhook timestamp may be before
// the delivery is rejected as a possible replay.
const signatureTolerance = 5 * time.Minute

// StripeService talks to the Stripe REST API for deposits and refunds
// and verifies incoming webhook deliveries.
type StripeService struct {
	cfg         config.StripeConfig
	bookingRepo *database.BookingRepository
	eventRepo   *database.PaymentEventRepository
	client      *http.Client
	logger      *logrus.Logger
}

// NewStripeService creates a new StripeService
func NewStripeService(
	cfg config.StripeConfig,
	bookingRepo *database.BookingRepository,
	eventRepo *database.PaymentEventRepository,
	logger *logrus.Logger,
) *StripeService {
	return &StripeService{
		cfg:         cfg,
		bookingRepo: bookingRepo,
		eventRepo:   eventRepo,
		client:      &http.Client{Timeout: 15 * time.Second},
		logger:      logger,
	}
}

// stripeIntent is the subset of a Stripe PaymentIntent we consume
type stripeIntent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	Metadata     map[string]string `json:"metadata"`
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateIntent starts a payment for the deposit of the requester's
// booking. Calling it again for the same booking creates a fresh
// intent; only the succeeded one ends up on the booking.
func (s *StripeService) CreateIntent(requester UserRef, bookingID int64) (*models.CreateIntentResponse, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	if booking.UserID != requester.ID && requester.Type != models.UserTypeAdmin {
		return nil, models.ErrNotFound
	}

	if booking.Status == models.BookingStatusCancelled {
		return nil, models.ErrInvalidTransition
	}
	if booking.PaymentStatus == models.PaymentStatusPaid {
		return nil, models.ErrConflict
	}

	amount := booking.DepositAmount
	if amount <= 0 {
		amount = booking.TotalAmount
	}
	if amount <= 0 {
		return nil, models.NewValidationError("amount", "booking has no payable amount")
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(toCents(amount), 10))
	form.Set("currency", s.cfg.Currency)
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("metadata[booking_id]", strconv.FormatInt(booking.ID, 10))
	form.Set("metadata[confirmation_code]", booking.ConfirmationCode)

	var intent stripeIntent
	if err := s.post("/payment_intents", form, &intent); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.SetPaymentStatus(booking.ID, booking.PaymentStatus, booking.Status, &intent.ID); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("failed to attach payment intent to booking")
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":        booking.ID,
		"payment_intent_id": intent.ID,
		"amount":            amount,
	}).Info("payment intent created")

	return &models.CreateIntentResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          amount,
		Currency:        intent.Currency,
	}, nil
}

// webhookEvent is the envelope Stripe posts to the webhook endpoint
type webhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// HandleWebhook verifies and applies a webhook delivery. The signature
// check runs on the raw body before anything is parsed; processed event
// ids are recorded so a redelivery changes nothing.
func (s *StripeService) HandleWebhook(payload []byte, signatureHeader string) error {
	if err := s.verifySignature(payload, signatureHeader, time.Now()); err != nil {
		metrics.IncWebhookEvent("rejected")
		return err
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to parse webhook payload: %w", err)
	}
	if event.ID == "" || event.Type == "" {
		return models.NewValidationError("event", "webhook payload missing id or type")
	}

	var intent stripeIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		return fmt.Errorf("failed to parse event object: %w", err)
	}

	seen, err := s.eventRepo.Seen(event.ID)
	if err != nil {
		return err
	}
	if seen {
		s.logger.WithField("event_id", event.ID).Info("webhook event already processed")
		metrics.IncWebhookEvent("duplicate")
		return nil
	}

	booking, err := s.resolveBooking(&intent)
	if err != nil {
		return err
	}

	// Apply before recording: if the transition fails the event stays
	// unrecorded and the provider's retry gets a clean second attempt.
	if err := s.applyEvent(&event, &intent, booking); err != nil {
		return err
	}

	record := &models.PaymentEvent{
		ProviderID: event.ID,
		EventType:  event.Type,
	}
	if booking != nil {
		record.BookingID = &booking.ID
	}
	if err := s.eventRepo.Record(record); err != nil {
		if errors.Is(err, models.ErrDuplicateEvent) {
			// Concurrent delivery of the same event
			metrics.IncWebhookEvent("duplicate")
			return nil
		}
		return err
	}

	metrics.IncWebhookEvent("processed")
	return nil
}

func (s *StripeService) applyEvent(event *webhookEvent, intent *stripeIntent, booking *models.Booking) error {
	log := s.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	if booking == nil {
		log.Warn("webhook event has no matching booking")
		return nil
	}
	log = log.WithField("booking_id", booking.ID)

	switch event.Type {
	case "payment_intent.succeeded":
		status := booking.Status
		if status == models.BookingStatusPending {
			status = models.BookingStatusConfirmed
		}
		if err := s.bookingRepo.SetPaymentStatus(booking.ID, models.PaymentStatusPaid, status, &intent.ID); err != nil {
			return err
		}
		log.Info("booking paid and confirmed")

	case "payment_intent.payment_failed":
		if err := s.bookingRepo.SetPaymentStatus(booking.ID, models.PaymentStatusFailed, booking.Status, nil); err != nil {
			return err
		}
		log.Info("booking payment failed")

	case "charge.refunded", "refund.created":
		status := booking.Status
		if status == models.BookingStatusPending || status == models.BookingStatusConfirmed {
			status = models.BookingStatusCancelled
		}
		if err := s.bookingRepo.SetPaymentStatus(booking.ID, models.PaymentStatusRefunded, status, nil); err != nil {
			return err
		}
		log.Info("booking refunded")

	default:
		log.Debug("ignoring unhandled webhook event type")
	}

	return nil
}

// resolveBooking finds the booking an event refers to, by metadata
// first and then by the stored intent id.
func (s *StripeService) resolveBooking(intent *stripeIntent) (*models.Booking, error) {
	if raw, ok := intent.Metadata["booking_id"]; ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			booking, err := s.bookingRepo.GetByID(id)
			if err == nil {
				return booking, nil
			}
			if !errors.Is(err, models.ErrNotFound) {
				return nil, err
			}
		}
	}

	if intent.ID != "" {
		booking, err := s.bookingRepo.GetByPaymentIntentID(intent.ID)
		if err == nil {
			return booking, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
	}

	return nil, nil
}

// verifySignature checks the Stripe-Signature header against the raw
// payload: HMAC-SHA256 of "<timestamp>.<payload>" with the webhook
// secret, compared in constant time, timestamp within tolerance.
func (s *StripeService) verifySignature(payload []byte, header string, now time.Time) error {
	if header == "" {
		return models.ErrInvalidSignature
	}

	var timestamp int64
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return models.ErrInvalidSignature
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == 0 || len(signatures) == 0 {
		return models.ErrInvalidSignature
	}

	age := now.Sub(time.Unix(timestamp, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return models.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(s.cfg.WebhookSecret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}

	return models.ErrInvalidSignature
}

// Refund refunds a paid booking's payment intent. The booking state is
// updated when Stripe confirms via webhook, not here.
func (s *StripeService) Refund(requester UserRef, bookingID int64, reason *string) error {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return err
	}

	if booking.UserID != requester.ID && requester.Type != models.UserTypeAdmin {
		return models.ErrNotFound
	}

	if !booking.NeedsRefund() {
		return models.ErrPaymentRequired
	}
	if booking.StripePaymentIntentID == nil {
		return models.ErrPaymentRequired
	}

	form := url.Values{}
	form.Set("payment_intent", *booking.StripePaymentIntentID)
	if reason != nil {
		form.Set("metadata[reason]", *reason)
	}

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := s.post("/refunds", form, &out); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"refund_id":  out.ID,
	}).Info("refund requested")

	return nil
}

// GetPaymentStatus reports the payment state of the requester's booking
func (s *StripeService) GetPaymentStatus(requester UserRef, bookingID int64) (*models.PaymentStatusResponse, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	if booking.UserID != requester.ID && requester.Type != models.UserTypeAdmin {
		return nil, models.ErrNotFound
	}

	amount := booking.DepositAmount
	if amount <= 0 {
		amount = booking.TotalAmount
	}

	return &models.PaymentStatusResponse{
		BookingID:       booking.ID,
		PaymentStatus:   booking.PaymentStatus,
		PaymentIntentID: booking.StripePaymentIntentID,
		Amount:          amount,
	}, nil
}

// post sends a form-encoded request to the Stripe API
func (s *StripeService) post(path string, form url.Values, out any) error {
	req, err := http.NewRequest(http.MethodPost, s.cfg.APIBaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrExternalService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", models.ErrExternalService, err)
	}

	if resp.StatusCode >= 400 {
		var stripeErr stripeError
		if json.Unmarshal(body, &stripeErr) == nil && stripeErr.Error.Message != "" {
			return fmt.Errorf("%w: %s (%s)", models.ErrExternalService, stripeErr.Error.Message, stripeErr.Error.Code)
		}
		return fmt.Errorf("%w: status %d", models.ErrExternalService, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse stripe response: %w", err)
		}
	}

	return nil
}

// toCents converts a euro amount to Stripe's integer minor units
func toCents(amount float64) int64 {
	return int64(amount*100 + 0.5)
}
