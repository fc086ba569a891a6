package models

import "time"

// PageView records a single tracked page visit
type PageView struct {
	ID        int64     `json:"id" db:"id"`
	Page      string    `json:"page" db:"page"`
	UserID    *int64    `json:"user_id,omitempty" db:"user_id"`
	SessionID *string   `json:"session_id,omitempty" db:"session_id"`
	IPAddress *string   `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent *string   `json:"user_agent,omitempty" db:"user_agent"`
	Device    *string   `json:"device,omitempty" db:"device"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TrackPageViewRequest represents the request to record a page view
type TrackPageViewRequest struct {
	Page      string  `json:"page" binding:"required"`
	SessionID *string `json:"session_id,omitempty"`
}

// BookingStats aggregates booking counts and revenue for a venue owner
type BookingStats struct {
	TotalBookings     int     `json:"total_bookings" db:"total_bookings"`
	PendingBookings   int     `json:"pending_bookings" db:"pending_bookings"`
	ConfirmedBookings int     `json:"confirmed_bookings" db:"confirmed_bookings"`
	CompletedBookings int     `json:"completed_bookings" db:"completed_bookings"`
	CancelledBookings int     `json:"cancelled_bookings" db:"cancelled_bookings"`
	TotalRevenue      float64 `json:"total_revenue" db:"total_revenue"`
}

// PageViewStats aggregates tracked traffic for the dashboard
type PageViewStats struct {
	TotalViews     int            `json:"total_views"`
	UniqueSessions int            `json:"unique_sessions"`
	ViewsByPage    []PageCount    `json:"views_by_page"`
	ViewsByDay     []DayCount     `json:"views_by_day"`
	ViewsByDevice  []DeviceCount  `json:"views_by_device"`
}

// PopularVenue is a venue ranked by recent booking volume
type PopularVenue struct {
	VenueID   int64   `json:"venue_id" db:"venue_id"`
	Name      string  `json:"name" db:"name"`
	Slug      string  `json:"slug" db:"slug"`
	Bookings  int     `json:"bookings" db:"bookings"`
	Rating    float64 `json:"rating" db:"rating"`
	PageViews int     `json:"page_views" db:"page_views"`
}

// PageCount is a per-page view count
type PageCount struct {
	Page  string `json:"page" db:"page"`
	Count int    `json:"count" db:"count"`
}

// DayCount is a per-day view count
type DayCount struct {
	Day   time.Time `json:"day" db:"day"`
	Count int       `json:"count" db:"count"`
}

// DeviceCount is a per-device-class view count
type DeviceCount struct {
	Device string `json:"device" db:"device"`
	Count  int    `json:"count" db:"count"`
}
