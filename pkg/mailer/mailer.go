package mailer

import (
	"github.com/sirupsen/logrus"
)

// BookingEmail carries the booking details rendered into emails
type BookingEmail struct {
	UserName         string
	UserEmail        string
	VenueName        string
	VenueEmail       string
	EventDate        string
	EventTime        string
	Guests           int
	TotalAmount      float64
	ConfirmationCode string
}

// ReviewEmail carries the review details rendered into emails
type ReviewEmail struct {
	UserName   string
	VenueName  string
	VenueEmail string
	Rating     int
	Title      string
	Comment    string
}

// Mailer sends transactional emails
type Mailer interface {
	// SendWelcome greets a newly registered user
	SendWelcome(toEmail, name string) error

	// SendBookingConfirmation notifies the customer their booking was received
	SendBookingConfirmation(b BookingEmail) error

	// SendVenueNotification notifies the venue about a new booking
	SendVenueNotification(b BookingEmail) error

	// SendBookingCancelled notifies the customer their booking was cancelled
	SendBookingCancelled(b BookingEmail, reason string) error

	// SendReviewPosted notifies the venue a new review was published
	SendReviewPosted(r ReviewEmail) error
}

// DevMailer logs emails instead of sending them. Used in development
// so the flow can be exercised without an SMTP account.
type DevMailer struct {
	logger *logrus.Logger
}

// NewDevMailer creates a log-only mailer
func NewDevMailer(logger *logrus.Logger) *DevMailer {
	return &DevMailer{logger: logger}
}

func (m *DevMailer) SendWelcome(toEmail, name string) error {
	m.logger.WithFields(logrus.Fields{
		"to":   toEmail,
		"name": name,
	}).Info("DEV MODE: welcome email")
	return nil
}

func (m *DevMailer) SendBookingConfirmation(b BookingEmail) error {
	m.logger.WithFields(logrus.Fields{
		"to":                b.UserEmail,
		"venue":             b.VenueName,
		"event_date":        b.EventDate,
		"confirmation_code": b.ConfirmationCode,
	}).Info("DEV MODE: booking confirmation email")
	return nil
}

func (m *DevMailer) SendVenueNotification(b BookingEmail) error {
	m.logger.WithFields(logrus.Fields{
		"to":         b.VenueEmail,
		"customer":   b.UserName,
		"event_date": b.EventDate,
		"guests":     b.Guests,
	}).Info("DEV MODE: venue booking notification email")
	return nil
}

func (m *DevMailer) SendBookingCancelled(b BookingEmail, reason string) error {
	m.logger.WithFields(logrus.Fields{
		"to":                b.UserEmail,
		"confirmation_code": b.ConfirmationCode,
		"reason":            reason,
	}).Info("DEV MODE: booking cancelled email")
	return nil
}

func (m *DevMailer) SendReviewPosted(r ReviewEmail) error {
	m.logger.WithFields(logrus.Fields{
		"to":     r.VenueEmail,
		"rating": r.Rating,
	}).Info("DEV MODE: review posted email")
	return nil
}
