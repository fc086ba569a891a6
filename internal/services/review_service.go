package services

import (
	"github.com/sirupsen/logrus"

	"github.com/festalaurea/booking-backend/internal/database"
	"github.com/festalaurea/booking-backend/internal/models"
	"github.com/festalaurea/booking-backend/pkg/mailer"
)

// ReviewService implements verified reviews and the helpful votes
type ReviewService struct {
	reviewRepo *database.ReviewRepository
	venueRepo  *database.VenueRepository
	userRepo   *database.UserRepository
	mailer     mailer.Mailer
	logger     *logrus.Logger
}

// NewReviewService creates a new ReviewService
func NewReviewService(
	reviewRepo *database.ReviewRepository,
	venueRepo *database.VenueRepository,
	userRepo *database.UserRepository,
	m mailer.Mailer,
	logger *logrus.Logger,
) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		venueRepo:  venueRepo,
		userRepo:   userRepo,
		mailer:     m,
		logger:     logger,
	}
}

// CheckEligibility reports whether the user may review the venue and
// which completed booking the review would attach to.
func (s *ReviewService) CheckEligibility(userID, venueID int64) (*models.ReviewEligibility, error) {
	booking, reason, err := s.reviewRepo.EligibleBooking(userID, venueID)
	if err != nil {
		return nil, err
	}

	if booking == nil {
		return &models.ReviewEligibility{CanReview: false, Reason: &reason}, nil
	}

	return &models.ReviewEligibility{
		CanReview: true,
		BookingID: &booking.ID,
		Booking:   booking,
	}, nil
}

// CreateReview posts a review against the user's most recent completed
// booking at the venue. Users without such a booking, or who already
// reviewed all of theirs, are rejected.
func (s *ReviewService) CreateReview(userID int64, req *models.CreateReviewRequest) (*models.Review, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	booking, _, err := s.reviewRepo.EligibleBooking(userID, req.VenueID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrNotEligible
	}

	review := &models.Review{
		UserID:    userID,
		VenueID:   req.VenueID,
		BookingID: booking.ID,
		Rating:    req.Rating,
		Title:     req.Title,
		Comment:   req.Comment,
		Verified:  true,
	}

	if err := s.reviewRepo.Create(review); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"review_id": review.ID,
		"venue_id":  req.VenueID,
		"user_id":   userID,
		"rating":    req.Rating,
	}).Info("review created")

	s.notifyVenue(review)

	return review, nil
}

// UpdateReview edits the author's own review and recomputes the venue rating
func (s *ReviewService) UpdateReview(requester UserRef, reviewID int64, req *models.UpdateReviewRequest) (*models.Review, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	review, err := s.reviewRepo.GetByID(reviewID)
	if err != nil {
		return nil, err
	}

	if review.UserID != requester.ID && requester.Type != models.UserTypeAdmin {
		return nil, models.ErrForbidden
	}

	if err := s.reviewRepo.Update(review, req); err != nil {
		return nil, err
	}

	return s.reviewRepo.GetByID(reviewID)
}

// DeleteReview removes the author's own review and recomputes the venue rating
func (s *ReviewService) DeleteReview(requester UserRef, reviewID int64) error {
	review, err := s.reviewRepo.GetByID(reviewID)
	if err != nil {
		return err
	}

	if review.UserID != requester.ID && requester.Type != models.UserTypeAdmin {
		return models.ErrForbidden
	}

	if err := s.reviewRepo.Delete(review); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"review_id": reviewID,
		"venue_id":  review.VenueID,
	}).Info("review deleted")

	return nil
}

// GetVenueReviews lists a venue's reviews, newest first
func (s *ReviewService) GetVenueReviews(venueID int64) ([]models.Review, error) {
	if _, err := s.venueRepo.GetByID(venueID); err != nil {
		return nil, err
	}
	return s.reviewRepo.GetByVenueID(venueID)
}

// GetUserReviews lists the reviews written by a user
func (s *ReviewService) GetUserReviews(userID int64) ([]models.Review, error) {
	return s.reviewRepo.GetByUserID(userID)
}

// MarkHelpful records a helpful vote. One vote per user per review;
// a repeat vote returns the already-marked error.
func (s *ReviewService) MarkHelpful(userID, reviewID int64) (int, error) {
	if _, err := s.reviewRepo.GetByID(reviewID); err != nil {
		return 0, err
	}
	return s.reviewRepo.MarkHelpful(reviewID, userID)
}

func (s *ReviewService) notifyVenue(review *models.Review) {
	venue, err := s.venueRepo.GetByID(review.VenueID)
	if err != nil || venue.Email == nil {
		return
	}

	user, err := s.userRepo.GetUserByID(review.UserID)
	if err != nil {
		return
	}

	email := mailer.ReviewEmail{
		UserName:   user.Name,
		VenueName:  venue.Name,
		VenueEmail: *venue.Email,
		Rating:     review.Rating,
	}
	if review.Title != nil {
		email.Title = *review.Title
	}
	if review.Comment != nil {
		email.Comment = *review.Comment
	}

	if err := s.mailer.SendReviewPosted(email); err != nil {
		s.logger.WithError(err).Warn("failed to send review notification email")
	}
}
