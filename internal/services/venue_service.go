package services

import (
	"github.com/sirupsen/logrus"

	"github.com/festalaurea/booking-backend/internal/database"
	"github.com/festalaurea/booking-backend/internal/models"
)

// VenueService implements the venue catalogue
type VenueService struct {
	venueRepo *database.VenueRepository
	logger    *logrus.Logger
}

// NewVenueService creates a new VenueService
func NewVenueService(venueRepo *database.VenueRepository, logger *logrus.Logger) *VenueService {
	return &VenueService{venueRepo: venueRepo, logger: logger}
}

// ListVenues returns active venues matching the filter plus the total count
func (s *VenueService) ListVenues(filter *models.VenueFilter) ([]models.Venue, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 || filter.PerPage > 100 {
		filter.PerPage = 20
	}
	return s.venueRepo.List(filter)
}

// GetVenue loads a venue by numeric id or slug
func (s *VenueService) GetVenue(idOrSlug string, id int64) (*models.Venue, error) {
	if id > 0 {
		return s.venueRepo.GetByID(id)
	}
	return s.venueRepo.GetBySlug(idOrSlug)
}

// GetOwnerVenues lists the venues belonging to an owner
func (s *VenueService) GetOwnerVenues(ownerID int64) ([]models.Venue, error) {
	return s.venueRepo.GetByOwnerID(ownerID)
}

// CreateVenue registers a venue under the requesting owner. The slug is
// derived from the name; a duplicate slug is a conflict. New venues
// start inactive and enter listings once an admin approves them.
func (s *VenueService) CreateVenue(requester UserRef, req *models.CreateVenueRequest) (*models.Venue, error) {
	if requester.Type != models.UserTypeVenueOwner && requester.Type != models.UserTypeAdmin {
		return nil, models.ErrForbidden
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	venue := &models.Venue{
		OwnerID:     requester.ID,
		Name:        req.Name,
		Slug:        models.Slugify(req.Name),
		Type:        req.Type,
		Description: req.Description,
		Address:     req.Address,
		Phone:       req.Phone,
		Email:       req.Email,
		CapacityMin: req.CapacityMin,
		CapacityMax: req.CapacityMax,
		PriceMin:    req.PriceMin,
		PriceMax:    req.PriceMax,
		Active:      false,
	}

	if err := s.venueRepo.Create(venue); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"venue_id": venue.ID,
		"owner_id": requester.ID,
		"slug":     venue.Slug,
	}).Info("venue created, pending approval")

	return venue, nil
}

// UpdateVenue edits a venue. Ownership is checked by the route
// middleware; the loaded venue arrives through it.
func (s *VenueService) UpdateVenue(venue *models.Venue, req *models.UpdateVenueRequest) (*models.Venue, error) {
	if req.CapacityMin != nil && *req.CapacityMin < 0 {
		return nil, models.NewValidationError("capacity_min", "capacity cannot be negative")
	}
	if req.CapacityMax != nil && *req.CapacityMax < 0 {
		return nil, models.NewValidationError("capacity_max", "capacity cannot be negative")
	}
	if req.PriceMin != nil && *req.PriceMin < 0 {
		return nil, models.NewValidationError("price_min", "price cannot be negative")
	}
	if req.PriceMax != nil && *req.PriceMax < 0 {
		return nil, models.NewValidationError("price_max", "price cannot be negative")
	}

	// Activation and featured placement are admin knobs, not owner ones
	if req.Active != nil || req.Featured != nil {
		return nil, models.ErrForbidden
	}

	if err := s.venueRepo.Update(venue.ID, req); err != nil {
		return nil, err
	}

	return s.venueRepo.GetByID(venue.ID)
}

// SetFeatured toggles a venue's featured placement (admin only)
func (s *VenueService) SetFeatured(requester UserRef, venueID int64, featured bool) (*models.Venue, error) {
	if requester.Type != models.UserTypeAdmin {
		return nil, models.ErrForbidden
	}

	req := &models.UpdateVenueRequest{Featured: &featured}
	if err := s.venueRepo.Update(venueID, req); err != nil {
		return nil, err
	}

	return s.venueRepo.GetByID(venueID)
}

// SetActive approves or suspends a venue listing (admin only)
func (s *VenueService) SetActive(requester UserRef, venueID int64, active bool) (*models.Venue, error) {
	if requester.Type != models.UserTypeAdmin {
		return nil, models.ErrForbidden
	}

	req := &models.UpdateVenueRequest{Active: &active}
	if err := s.venueRepo.Update(venueID, req); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"venue_id": venueID,
		"active":   active,
	}).Info("venue activation changed")

	return s.venueRepo.GetByID(venueID)
}

// DeleteVenue deactivates a venue. Bookings already taken stay on the
// books; the venue just stops appearing in listings.
func (s *VenueService) DeleteVenue(venue *models.Venue) error {
	if err := s.venueRepo.Delete(venue.ID); err != nil {
		return err
	}

	s.logger.WithField("venue_id", venue.ID).Info("venue deactivated")
	return nil
}
