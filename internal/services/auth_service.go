package services

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/festalaurea/booking-backend/internal/database"
	"github.com/festalaurea/booking-backend/internal/models"
	"github.com/festalaurea/booking-backend/pkg/jwt"
	"github.com/festalaurea/booking-backend/pkg/mailer"
	"github.com/festalaurea/booking-backend/pkg/validator"
)

// AuthService handles registration, login and token rotation
type AuthService struct {
	userRepo   *database.UserRepository
	venueRepo  *database.VenueRepository
	jwtService *jwt.Service
	emails     *validator.EmailValidator
	mailer     mailer.Mailer
	bcryptCost int
	logger     *logrus.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo *database.UserRepository,
	venueRepo *database.VenueRepository,
	jwtService *jwt.Service,
	emails *validator.EmailValidator,
	m mailer.Mailer,
	bcryptCost int,
	logger *logrus.Logger,
) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		userRepo:   userRepo,
		venueRepo:  venueRepo,
		jwtService: jwtService,
		emails:     emails,
		mailer:     m,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates an account and returns a token pair. Student
// addresses go through the domain allow list; venue owners may register
// with any address and get an inactive venue listing created from
// their business name.
func (s *AuthService) Register(req *models.RegisterRequest) (*models.AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	userType := req.Type
	if userType == "" {
		userType = models.UserTypeStudent
	}

	var email string
	var err error
	if userType == models.UserTypeStudent {
		email, err = s.emails.Validate(req.Email)
	} else {
		email, err = s.emails.ValidateSyntax(req.Email)
	}
	if err != nil {
		return nil, models.NewValidationError("email", err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         req.Name,
		Email:        email,
		Phone:        req.Phone,
		Department:   req.Department,
		University:   req.University,
		PasswordHash: string(hash),
		Type:         userType,
		// No confirmation email flow; accounts are verified at registration
		EmailVerified: true,
	}

	if err := s.userRepo.CreateUser(user); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
		"type":    user.Type,
	}).Info("user registered")

	if userType == models.UserTypeVenueOwner {
		s.createPendingVenue(user, *req.BusinessName)
	}

	if err := s.mailer.SendWelcome(user.Email, user.Name); err != nil {
		s.logger.WithError(err).Warn("failed to send welcome email")
	}

	return s.buildAuthResponse(user)
}

// createPendingVenue seeds an inactive listing for a new owner account.
// Failure does not fail registration; the owner can create the venue
// from the dashboard instead.
func (s *AuthService) createPendingVenue(user *models.User, businessName string) {
	venue := &models.Venue{
		OwnerID: user.ID,
		Name:    businessName,
		Slug:    models.Slugify(businessName),
		Phone:   user.Phone,
		Email:   &user.Email,
		Active:  false,
	}

	if err := s.venueRepo.Create(venue); err != nil {
		s.logger.WithError(err).WithField("owner_id", user.ID).Warn("failed to create pending venue for new owner")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"venue_id": venue.ID,
		"owner_id": user.ID,
	}).Info("pending venue created for new owner")
}

// Login authenticates by email and password. Wrong email and wrong
// password return the same error so accounts cannot be enumerated.
func (s *AuthService) Login(req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.userRepo.GetUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	if err := s.userRepo.UpdateLastLogin(user.ID); err != nil {
		s.logger.WithError(err).Warn("failed to record last login")
	}

	return s.buildAuthResponse(user)
}

// Refresh exchanges a valid refresh token for a fresh token pair
func (s *AuthService) Refresh(refreshToken string) (*models.AuthResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, models.ErrUnauthorized
	}

	// Reload the user so a changed role or deleted account takes effect
	user, err := s.userRepo.GetUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		return nil, err
	}

	return s.buildAuthResponse(user)
}

// GetProfile returns the user's own account
func (s *AuthService) GetProfile(userID int64) (*models.User, error) {
	return s.userRepo.GetUserByID(userID)
}

// UpdateProfile updates the user's own editable fields
func (s *AuthService) UpdateProfile(userID int64, req *models.UpdateProfileRequest) (*models.User, error) {
	if req.Name != nil && *req.Name == "" {
		return nil, models.NewValidationError("name", "name cannot be empty")
	}

	if err := s.userRepo.UpdateProfile(userID, req); err != nil {
		return nil, err
	}

	return s.userRepo.GetUserByID(userID)
}

func (s *AuthService) buildAuthResponse(user *models.User) (*models.AuthResponse, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, user.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &models.AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtService.AccessTokenExpiry().Seconds()),
	}, nil
}
