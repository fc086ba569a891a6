package models

import (
	"strings"
	"time"
)

// UserType represents the role of a user account
type UserType string

const (
	UserTypeStudent    UserType = "student"
	UserTypeVenueOwner UserType = "venue_owner"
	UserTypeAdmin      UserType = "admin"
)

// User represents a registered account
type User struct {
	ID            int64      `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Email         string     `json:"email" db:"email"`
	Phone         *string    `json:"phone,omitempty" db:"phone"`
	Department    *string    `json:"department,omitempty" db:"department"`
	University    *string    `json:"university,omitempty" db:"university"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	Type          UserType   `json:"type" db:"type"`
	EmailVerified bool       `json:"email_verified" db:"email_verified"`
	LastLogin     *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// RegisterRequest represents the request to register an account.
// Type defaults to student; venue owners must also supply the business
// name their first venue listing is created under.
type RegisterRequest struct {
	Name         string   `json:"name" binding:"required"`
	Email        string   `json:"email" binding:"required,email"`
	Password     string   `json:"password" binding:"required,min=8"`
	Type         UserType `json:"type,omitempty"`
	BusinessName *string  `json:"business_name,omitempty"`
	Phone        *string  `json:"phone,omitempty"`
	Department   *string  `json:"department,omitempty"`
	University   *string  `json:"university,omitempty"`
}

// LoginRequest represents the request to log in
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the request to rotate an access token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UpdateProfileRequest represents the request to update profile fields
type UpdateProfileRequest struct {
	Name       *string `json:"name,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Department *string `json:"department,omitempty"`
	University *string `json:"university,omitempty"`
}

// AuthResponse is returned on successful register/login/refresh
type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Validate validates the register request
func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return NewValidationError("name", "name is required")
	}

	if len(r.Password) < 8 {
		return NewValidationError("password", "password must be at least 8 characters")
	}

	switch r.Type {
	case "", UserTypeStudent:
	case UserTypeVenueOwner:
		if r.BusinessName == nil || strings.TrimSpace(*r.BusinessName) == "" {
			return NewValidationError("business_name", "business name is required for venue owner accounts")
		}
	default:
		return NewValidationError("type", "type must be student or venue_owner")
	}

	return nil
}

// IsAdmin checks if the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Type == UserTypeAdmin
}

// IsVenueOwner checks if the user owns venues
func (u *User) IsVenueOwner() bool {
	return u.Type == UserTypeVenueOwner
}
