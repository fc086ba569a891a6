package services

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/festalaurea/booking-backend/internal/database"
	"github.com/festalaurea/booking-backend/internal/metrics"
	"github.com/festalaurea/booking-backend/internal/models"
	"github.com/festalaurea/booking-backend/internal/utils"
	"github.com/festalaurea/booking-backend/pkg/mailer"
)

// BookingService implements the booking lifecycle
type BookingService struct {
	bookingRepo *database.BookingRepository
	venueRepo   *database.VenueRepository
	userRepo    *database.UserRepository
	mailer      mailer.Mailer
	logger      *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	bookingRepo *database.BookingRepository,
	venueRepo *database.VenueRepository,
	userRepo *database.UserRepository,
	m mailer.Mailer,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		venueRepo:   venueRepo,
		userRepo:    userRepo,
		mailer:      m,
		logger:      logger,
	}
}

// CreateBooking books a venue slot for a user. The slot check here
// gives a friendly error; the database unique index is what actually
// guarantees no double booking under concurrency.
func (s *BookingService) CreateBooking(userID int64, req *models.CreateBookingRequest) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	eventDate, err := time.Parse("2006-01-02", req.EventDate)
	if err != nil {
		return nil, models.NewValidationError("event_date", "event_date must be in YYYY-MM-DD format")
	}

	venue, err := s.venueRepo.GetByID(req.VenueID)
	if err != nil {
		return nil, err
	}
	if !venue.Active {
		return nil, models.ErrNotFound
	}

	if venue.CapacityMax > 0 && req.Guests > venue.CapacityMax {
		return nil, models.NewValidationError("guests",
			fmt.Sprintf("venue holds at most %d guests", venue.CapacityMax))
	}

	booking := &models.Booking{
		UserID:           userID,
		VenueID:          venue.ID,
		EventDate:        eventDate,
		EventTime:        req.EventTime,
		Guests:           req.Guests,
		MenuType:         req.MenuType,
		Notes:            req.Notes,
		TotalAmount:      req.TotalAmount,
		DepositAmount:    req.DepositAmount,
		Status:           models.BookingStatusPending,
		PaymentStatus:    models.PaymentStatusUnpaid,
		ConfirmationCode: utils.GenerateConfirmationCode(),
	}

	if booking.EventDateTime().Before(time.Now()) {
		return nil, models.NewValidationError("event_date", "event date must be in the future")
	}

	taken, err := s.bookingRepo.SlotTaken(venue.ID, req.EventDate, req.EventTime)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.ErrSlotUnavailable
	}

	if err := s.bookingRepo.Create(booking); err != nil {
		return nil, err
	}
	metrics.IncBookingCreated()

	s.logger.WithFields(logrus.Fields{
		"booking_id":        booking.ID,
		"venue_id":          venue.ID,
		"user_id":           userID,
		"event_date":        req.EventDate,
		"confirmation_code": booking.ConfirmationCode,
	}).Info("booking created")

	s.sendBookingEmails(booking, venue)

	return booking, nil
}

// GetBooking loads a booking if the requester may see it: the customer,
// the venue owner, or an admin. Anyone else gets a not-found, so ids
// cannot be probed.
func (s *BookingService) GetBooking(requester UserRef, bookingID int64) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(requester, booking); err != nil {
		return nil, err
	}

	return booking, nil
}

// GetBookingByCode looks a booking up by its confirmation code, under
// the same visibility rules as GetBooking.
func (s *BookingService) GetBookingByCode(requester UserRef, code string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByConfirmationCode(code)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(requester, booking); err != nil {
		return nil, err
	}

	return booking, nil
}

// GetUserBookings returns all bookings made by a user
func (s *BookingService) GetUserBookings(userID int64) ([]models.Booking, error) {
	return s.bookingRepo.GetByUserID(userID)
}

// GetUpcomingBookings returns a user's pending or confirmed future bookings
func (s *BookingService) GetUpcomingBookings(userID int64) ([]models.Booking, error) {
	return s.bookingRepo.GetUpcomingByUser(userID)
}

// GetVenueBookings returns a venue's bookings to its owner or an admin
func (s *BookingService) GetVenueBookings(requester UserRef, venueID int64) ([]models.Booking, error) {
	venue, err := s.venueRepo.GetByID(venueID)
	if err != nil {
		return nil, err
	}

	if venue.OwnerID != requester.ID && requester.Type != models.UserTypeAdmin {
		return nil, models.ErrForbidden
	}

	return s.bookingRepo.GetByVenueID(venueID)
}

// UpdateStatus moves a booking through its lifecycle. Only the venue
// owner or an admin may confirm or complete; terminal states reject
// any further change.
func (s *BookingService) UpdateStatus(requester UserRef, bookingID int64, target models.BookingStatus) (*models.Booking, error) {
	if !target.IsValid() {
		return nil, models.NewValidationError("status", "unknown status")
	}

	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	venue, err := s.venueRepo.GetByID(booking.VenueID)
	if err != nil {
		return nil, err
	}

	if venue.OwnerID != requester.ID && requester.Type != models.UserTypeAdmin {
		return nil, models.ErrForbidden
	}

	if !booking.CanTransitionTo(target) {
		return nil, models.ErrInvalidTransition
	}

	if target == models.BookingStatusCancelled {
		// The 24h window binds owners and admins too, not just the customer
		now := time.Now()
		if !booking.CanBeCancelled(now) {
			return nil, models.ErrTooLateToCancel
		}
		if err := s.bookingRepo.Cancel(bookingID, nil); err != nil {
			return nil, err
		}
		booking.Cancel(nil, now)
	} else {
		if err := s.bookingRepo.UpdateStatus(bookingID, target); err != nil {
			return nil, err
		}
		booking.Status = target
		booking.UpdatedAt = time.Now()
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"status":     target,
	}).Info("booking status updated")

	if target == models.BookingStatusConfirmed {
		s.sendConfirmedEmail(booking, venue)
	}

	return booking, nil
}

// sendConfirmedEmail tells the customer the venue accepted the booking
func (s *BookingService) sendConfirmedEmail(booking *models.Booking, venue *models.Venue) {
	user, err := s.userRepo.GetUserByID(booking.UserID)
	if err != nil {
		s.logger.WithError(err).Warn("cannot load user for confirmation email")
		return
	}

	err = s.mailer.SendBookingConfirmation(mailer.BookingEmail{
		UserName:         user.Name,
		UserEmail:        user.Email,
		VenueName:        venue.Name,
		EventDate:        booking.EventDate.Format("2006-01-02"),
		EventTime:        booking.EventTime,
		Guests:           booking.Guests,
		TotalAmount:      booking.TotalAmount,
		ConfirmationCode: booking.ConfirmationCode,
	})
	if err != nil {
		s.logger.WithError(err).Warn("failed to send confirmation email")
	}
}

// CancelBooking cancels the requester's own booking. Cancellation is
// only allowed while the event is more than 24 hours away.
func (s *BookingService) CancelBooking(requester UserRef, bookingID int64, reason *string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	if booking.UserID != requester.ID && requester.Type != models.UserTypeAdmin {
		return nil, models.ErrNotFound
	}

	now := time.Now()
	if booking.Status != models.BookingStatusPending && booking.Status != models.BookingStatusConfirmed {
		return nil, models.ErrInvalidTransition
	}
	if !booking.CanBeCancelled(now) {
		return nil, models.ErrTooLateToCancel
	}

	if err := s.bookingRepo.Cancel(bookingID, reason); err != nil {
		return nil, err
	}
	booking.Cancel(reason, now)

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"user_id":    requester.ID,
	}).Info("booking cancelled")

	s.sendCancellationEmail(booking, reason)

	return booking, nil
}

// AutoCompleteBookings marks confirmed past bookings as completed.
// Safe to run on a schedule; a second run is a no-op.
func (s *BookingService) AutoCompleteBookings() (int64, error) {
	n, err := s.bookingRepo.CompleteFinishedBookings()
	if err != nil {
		return 0, err
	}

	if n > 0 {
		s.logger.WithField("count", n).Info("bookings auto-completed")
	}

	return n, nil
}

// GetVenueAvailability returns the occupied slots of an active venue
// over the next days so clients can grey out the calendar.
func (s *BookingService) GetVenueAvailability(venueID int64, days int) ([]models.BookedSlot, error) {
	if days < 1 || days > 90 {
		days = 30
	}

	venue, err := s.venueRepo.GetByID(venueID)
	if err != nil {
		return nil, err
	}
	if !venue.Active {
		return nil, models.ErrNotFound
	}

	from := time.Now()
	return s.bookingRepo.BookedSlots(venue.ID, from, from.AddDate(0, 0, days))
}

// GetOwnerStats aggregates booking counts and revenue for a venue owner
func (s *BookingService) GetOwnerStats(ownerID int64) (*models.BookingStats, error) {
	return s.bookingRepo.GetStatsForOwner(ownerID)
}

// authorize checks read access to a booking
func (s *BookingService) authorize(requester UserRef, booking *models.Booking) error {
	if booking.UserID == requester.ID || requester.Type == models.UserTypeAdmin {
		return nil
	}

	venue, err := s.venueRepo.GetByID(booking.VenueID)
	if err == nil && venue.OwnerID == requester.ID {
		return nil
	}

	return models.ErrNotFound
}

// sendBookingEmails notifies the customer and the venue. Email failures
// are logged, never surfaced; the booking already exists.
func (s *BookingService) sendBookingEmails(booking *models.Booking, venue *models.Venue) {
	user, err := s.userRepo.GetUserByID(booking.UserID)
	if err != nil {
		s.logger.WithError(err).Warn("cannot load user for booking emails")
		return
	}

	email := mailer.BookingEmail{
		UserName:         user.Name,
		UserEmail:        user.Email,
		VenueName:        venue.Name,
		EventDate:        booking.EventDate.Format("2006-01-02"),
		EventTime:        booking.EventTime,
		Guests:           booking.Guests,
		TotalAmount:      booking.TotalAmount,
		ConfirmationCode: booking.ConfirmationCode,
	}
	if venue.Email != nil {
		email.VenueEmail = *venue.Email
	}

	if err := s.mailer.SendBookingConfirmation(email); err != nil {
		s.logger.WithError(err).Warn("failed to send booking confirmation email")
	}
	if err := s.mailer.SendVenueNotification(email); err != nil {
		s.logger.WithError(err).Warn("failed to send venue notification email")
	}
}

func (s *BookingService) sendCancellationEmail(booking *models.Booking, reason *string) {
	user, err := s.userRepo.GetUserByID(booking.UserID)
	if err != nil {
		s.logger.WithError(err).Warn("cannot load user for cancellation email")
		return
	}

	venueName := ""
	if venue, err := s.venueRepo.GetByID(booking.VenueID); err == nil {
		venueName = venue.Name
	}

	reasonText := ""
	if reason != nil {
		reasonText = *reason
	}

	err = s.mailer.SendBookingCancelled(mailer.BookingEmail{
		UserName:         user.Name,
		UserEmail:        user.Email,
		VenueName:        venueName,
		EventDate:        booking.EventDate.Format("2006-01-02"),
		EventTime:        booking.EventTime,
		ConfirmationCode: booking.ConfirmationCode,
	}, reasonText)
	if err != nil {
		s.logger.WithError(err).Warn("failed to send cancellation email")
	}
}
