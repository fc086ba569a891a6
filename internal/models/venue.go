package models

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// Venue represents a bookable event venue
type Venue struct {
	ID           int64     `json:"id" db:"id"`
	OwnerID      int64     `json:"owner_id" db:"owner_id"`
	Name         string    `json:"name" db:"name"`
	Slug         string    `json:"slug" db:"slug"`
	Type         *string   `json:"type,omitempty" db:"type"`
	Description  *string   `json:"description,omitempty" db:"description"`
	Address      *string   `json:"address,omitempty" db:"address"`
	Phone        *string   `json:"phone,omitempty" db:"phone"`
	Email        *string   `json:"email,omitempty" db:"email"`
	CapacityMin  int       `json:"capacity_min" db:"capacity_min"`
	CapacityMax  int       `json:"capacity_max" db:"capacity_max"`
	PriceMin     float64   `json:"price_min" db:"price_min"`
	PriceMax     float64   `json:"price_max" db:"price_max"`
	Active       bool      `json:"active" db:"active"`
	Featured     bool      `json:"featured" db:"featured"`
	Rating       float64   `json:"-" db:"rating"`
	ReviewsCount int       `json:"reviews_count" db:"reviews_count"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayRating is the rating shown to clients. Venues without reviews
// show "Nuovo" instead of a number.
func (v *Venue) DisplayRating() any {
	if v.ReviewsCount == 0 {
		return "Nuovo"
	}
	return v.Rating
}

// venueJSON mirrors Venue with the display rating substituted in
type venueJSON struct {
	*venueAlias
	Rating any `json:"rating"`
}

type venueAlias Venue

// MarshalJSON implements json.Marshaler so the rating sentinel is
// applied everywhere venues are serialized.
func (v Venue) MarshalJSON() ([]byte, error) {
	return json.Marshal(venueJSON{venueAlias: (*venueAlias)(&v), Rating: v.DisplayRating()})
}

// CreateVenueRequest represents the request to create a venue
type CreateVenueRequest struct {
	Name        string  `json:"name" binding:"required"`
	Type        *string `json:"type,omitempty"`
	Description *string `json:"description,omitempty"`
	Address     *string `json:"address,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Email       *string `json:"email,omitempty"`
	CapacityMin int     `json:"capacity_min"`
	CapacityMax int     `json:"capacity_max"`
	PriceMin    float64 `json:"price_min"`
	PriceMax    float64 `json:"price_max"`
}

// UpdateVenueRequest represents the request to update venue fields
type UpdateVenueRequest struct {
	Name        *string  `json:"name,omitempty"`
	Type        *string  `json:"type,omitempty"`
	Description *string  `json:"description,omitempty"`
	Address     *string  `json:"address,omitempty"`
	Phone       *string  `json:"phone,omitempty"`
	Email       *string  `json:"email,omitempty"`
	CapacityMin *int     `json:"capacity_min,omitempty"`
	CapacityMax *int     `json:"capacity_max,omitempty"`
	PriceMin    *float64 `json:"price_min,omitempty"`
	PriceMax    *float64 `json:"price_max,omitempty"`
	Active      *bool    `json:"active,omitempty"`
	Featured    *bool    `json:"featured,omitempty"`
}

// VenueFilter captures list query parameters
type VenueFilter struct {
	Type      *string
	Capacity  *int
	MaxPrice  *float64
	Featured  *bool
	Search    *string
	Page      int
	PerPage   int
}

// Validate validates the create venue request
func (r *CreateVenueRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return NewValidationError("name", "name is required")
	}

	if r.CapacityMin < 0 || r.CapacityMax < 0 {
		return NewValidationError("capacity", "capacity cannot be negative")
	}

	if r.CapacityMax > 0 && r.CapacityMin > r.CapacityMax {
		return NewValidationError("capacity", "capacity_min cannot exceed capacity_max")
	}

	if r.PriceMin < 0 || r.PriceMax < 0 {
		return NewValidationError("price", "price cannot be negative")
	}

	return nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a venue name
func Slugify(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
