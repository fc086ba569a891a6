package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/festalaurea/booking-backend/internal/models"
)

// VenueRepository handles database operations for venues table
type VenueRepository struct {
	db DB
}

// NewVenueRepository creates a new VenueRepository
func NewVenueRepository(db DB) *VenueRepository {
	return &VenueRepository{db: db}
}

const venueColumns = `
	id, owner_id, name, slug, type, description, address, phone, email,
	capacity_min, capacity_max, price_min, price_max,
	active, featured, rating, reviews_count, created_at, updated_at
`

// Create creates a new venue
func (r *VenueRepository) Create(venue *models.Venue) error {
	query := `
		INSERT INTO venues (
			owner_id, name, slug, type, description, address, phone, email,
			capacity_min, capacity_max, price_min, price_max, active, featured
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		venue.OwnerID, venue.Name, venue.Slug, venue.Type,
		venue.Description, venue.Address, venue.Phone, venue.Email,
		venue.CapacityMin, venue.CapacityMax, venue.PriceMin, venue.PriceMax,
		venue.Active, venue.Featured,
	).Scan(&venue.ID, &venue.CreatedAt, &venue.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, "venues_slug_key") {
			return models.ErrConflict
		}
		return fmt.Errorf("failed to create venue: %w", err)
	}

	return nil
}

// GetByID retrieves a venue by ID
func (r *VenueRepository) GetByID(id int64) (*models.Venue, error) {
	var venue models.Venue

	query := `SELECT ` + venueColumns + ` FROM venues WHERE id = $1`

	err := r.db.Get(&venue, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}

	return &venue, nil
}

// GetBySlug retrieves a venue by its URL slug
func (r *VenueRepository) GetBySlug(slug string) (*models.Venue, error) {
	var venue models.Venue

	query := `SELECT ` + venueColumns + ` FROM venues WHERE slug = $1`

	err := r.db.Get(&venue, query, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get venue by slug: %w", err)
	}

	return &venue, nil
}

// List retrieves active venues matching the filter, newest first
func (r *VenueRepository) List(filter *models.VenueFilter) ([]models.Venue, int, error) {
	where := `WHERE active = TRUE`
	args := []interface{}{}
	argn := 1

	if filter.Type != nil {
		where += fmt.Sprintf(" AND type = $%d", argn)
		args = append(args, *filter.Type)
		argn++
	}
	if filter.Capacity != nil {
		where += fmt.Sprintf(" AND capacity_min <= $%d AND capacity_max >= $%d", argn, argn)
		args = append(args, *filter.Capacity)
		argn++
	}
	if filter.MaxPrice != nil {
		where += fmt.Sprintf(" AND price_min <= $%d", argn)
		args = append(args, *filter.MaxPrice)
		argn++
	}
	if filter.Featured != nil {
		where += fmt.Sprintf(" AND featured = $%d", argn)
		args = append(args, *filter.Featured)
		argn++
	}
	if filter.Search != nil {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", argn, argn)
		args = append(args, "%"+*filter.Search+"%")
		argn++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM venues ` + where
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count venues: %w", err)
	}

	query := `SELECT ` + venueColumns + ` FROM venues ` + where +
		fmt.Sprintf(" ORDER BY featured DESC, rating DESC, created_at DESC LIMIT $%d OFFSET $%d", argn, argn+1)
	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)

	venues := []models.Venue{}
	if err := r.db.Select(&venues, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list venues: %w", err)
	}

	return venues, total, nil
}

// GetByOwnerID retrieves all venues owned by a user
func (r *VenueRepository) GetByOwnerID(ownerID int64) ([]models.Venue, error) {
	venues := []models.Venue{}

	query := `SELECT ` + venueColumns + ` FROM venues WHERE owner_id = $1 ORDER BY created_at DESC`

	if err := r.db.Select(&venues, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get venues by owner: %w", err)
	}

	return venues, nil
}

// Update updates the mutable fields of a venue
func (r *VenueRepository) Update(id int64, req *models.UpdateVenueRequest) error {
	query := `
		UPDATE venues
		SET name = COALESCE($1, name),
		    type = COALESCE($2, type),
		    description = COALESCE($3, description),
		    address = COALESCE($4, address),
		    phone = COALESCE($5, phone),
		    email = COALESCE($6, email),
		    capacity_min = COALESCE($7, capacity_min),
		    capacity_max = COALESCE($8, capacity_max),
		    price_min = COALESCE($9, price_min),
		    price_max = COALESCE($10, price_max),
		    active = COALESCE($11, active),
		    featured = COALESCE($12, featured),
		    updated_at = $13
		WHERE id = $14
	`

	result, err := r.db.Exec(query,
		req.Name, req.Type, req.Description, req.Address, req.Phone, req.Email,
		req.CapacityMin, req.CapacityMax, req.PriceMin, req.PriceMax,
		req.Active, req.Featured, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update venue: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Delete deactivates a venue. Venues are never hard-deleted because
// bookings and reviews reference them.
func (r *VenueRepository) Delete(id int64) error {
	query := `
		UPDATE venues
		SET active = FALSE, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete venue: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return models.ErrNotFound
	}

	return nil
}
