package database

import (
	"fmt"
	"time"

	"github.com/festalaurea/booking-backend/internal/models"
)

// AnalyticsRepository handles page view tracking and traffic aggregates
type AnalyticsRepository struct {
	db DB
}

// NewAnalyticsRepository creates a new AnalyticsRepository
func NewAnalyticsRepository(db DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// TrackPageView records a single page visit
func (r *AnalyticsRepository) TrackPageView(view *models.PageView) error {
	query := `
		INSERT INTO page_views (page, user_id, session_id, ip_address, user_agent, device)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		query,
		view.Page, view.UserID, view.SessionID,
		view.IPAddress, view.UserAgent, view.Device,
	).Scan(&view.ID, &view.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to track page view: %w", err)
	}

	return nil
}

// GetPopularVenues ranks active venues by non-cancelled bookings since
// the given time, with page views of /venues/<slug> as a tiebreaker.
func (r *AnalyticsRepository) GetPopularVenues(since time.Time, limit int) ([]models.PopularVenue, error) {
	query := `
		SELECT v.id AS venue_id, v.name, v.slug, v.rating,
		       COUNT(DISTINCT b.id) AS bookings,
		       COUNT(DISTINCT pv.id) AS page_views
		FROM venues v
		LEFT JOIN bookings b
		       ON b.venue_id = v.id
		      AND b.status <> 'cancelled'
		      AND b.created_at >= $1
		LEFT JOIN page_views pv
		       ON pv.page = '/venues/' || v.slug
		      AND pv.created_at >= $1
		WHERE v.active = TRUE
		GROUP BY v.id, v.name, v.slug, v.rating
		ORDER BY bookings DESC, page_views DESC, v.rating DESC
		LIMIT $2
	`

	venues := []models.PopularVenue{}
	if err := r.db.Select(&venues, query, since, limit); err != nil {
		return nil, fmt.Errorf("failed to get popular venues: %w", err)
	}

	return venues, nil
}

// DeletePageViewsBefore removes tracked page views older than the cutoff
func (r *AnalyticsRepository) DeletePageViewsBefore(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM page_views WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old page views: %w", err)
	}

	return result.RowsAffected()
}

// GetPageViewStats aggregates tracked traffic since the given time
func (r *AnalyticsRepository) GetPageViewStats(since time.Time) (*models.PageViewStats, error) {
	stats := &models.PageViewStats{}

	query := `
		SELECT COUNT(*), COUNT(DISTINCT session_id)
		FROM page_views
		WHERE created_at >= $1
	`
	if err := r.db.QueryRow(query, since).Scan(&stats.TotalViews, &stats.UniqueSessions); err != nil {
		return nil, fmt.Errorf("failed to get page view totals: %w", err)
	}

	byPage := []models.PageCount{}
	pageQuery := `
		SELECT page, COUNT(*) AS count
		FROM page_views
		WHERE created_at >= $1
		GROUP BY page
		ORDER BY count DESC
		LIMIT 20
	`
	if err := r.db.Select(&byPage, pageQuery, since); err != nil {
		return nil, fmt.Errorf("failed to get views by page: %w", err)
	}
	stats.ViewsByPage = byPage

	byDay := []models.DayCount{}
	dayQuery := `
		SELECT DATE_TRUNC('day', created_at) AS day, COUNT(*) AS count
		FROM page_views
		WHERE created_at >= $1
		GROUP BY day
		ORDER BY day
	`
	if err := r.db.Select(&byDay, dayQuery, since); err != nil {
		return nil, fmt.Errorf("failed to get views by day: %w", err)
	}
	stats.ViewsByDay = byDay

	byDevice := []models.DeviceCount{}
	deviceQuery := `
		SELECT COALESCE(device, 'unknown') AS device, COUNT(*) AS count
		FROM page_views
		WHERE created_at >= $1
		GROUP BY device
		ORDER BY count DESC
	`
	if err := r.db.Select(&byDevice, deviceQuery, since); err != nil {
		return nil, fmt.Errorf("failed to get views by device: %w", err)
	}
	stats.ViewsByDevice = byDevice

	return stats, nil
}
