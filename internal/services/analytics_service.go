package services

import (
	"strings"
	"time"

	"github.com/mssola/user_agent"
	"github.com/sirupsen/logrus"

	"github.com/festalaurea/booking-backend/internal/database"
	"github.com/festalaurea/booking-backend/internal/models"
)

// AnalyticsService records page views and serves the traffic dashboard
type AnalyticsService struct {
	analyticsRepo *database.AnalyticsRepository
	logger        *logrus.Logger
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(analyticsRepo *database.AnalyticsRepository, logger *logrus.Logger) *AnalyticsService {
	return &AnalyticsService{analyticsRepo: analyticsRepo, logger: logger}
}

// TrackPageView records a visit. userID is nil for anonymous visitors;
// tracking failures are logged but never break the page.
func (s *AnalyticsService) TrackPageView(req *models.TrackPageViewRequest, userID *int64, ip, userAgent string) error {
	view := &models.PageView{
		Page:      req.Page,
		UserID:    userID,
		SessionID: req.SessionID,
	}
	if ip != "" {
		view.IPAddress = &ip
	}
	if userAgent != "" {
		view.UserAgent = &userAgent
		device := classifyDevice(userAgent)
		view.Device = &device
	}

	if err := s.analyticsRepo.TrackPageView(view); err != nil {
		s.logger.WithError(err).WithField("page", req.Page).Warn("failed to track page view")
		return err
	}

	return nil
}

// GetStats aggregates page views over the trailing number of days
func (s *AnalyticsService) GetStats(days int) (*models.PageViewStats, error) {
	if days < 1 || days > 365 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)
	return s.analyticsRepo.GetPageViewStats(since)
}

// GetPopularVenues ranks venues by recent booking volume
func (s *AnalyticsService) GetPopularVenues(days, limit int) ([]models.PopularVenue, error) {
	if days < 1 || days > 365 {
		days = 30
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}
	since := time.Now().AddDate(0, 0, -days)
	return s.analyticsRepo.GetPopularVenues(since, limit)
}

// CleanupOldPageViews removes raw tracking rows older than the given
// number of days. Aggregates served by GetStats only look back a year,
// so anything older is dead weight.
func (s *AnalyticsService) CleanupOldPageViews(days int) (int64, error) {
	if days < 30 {
		days = 365
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	n, err := s.analyticsRepo.DeletePageViewsBefore(cutoff)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		s.logger.WithField("count", n).Info("old page views removed")
	}

	return n, nil
}

// classifyDevice buckets a User-Agent string into mobile, tablet,
// desktop or bot.
func classifyDevice(uaString string) string {
	ua := user_agent.New(uaString)

	if ua.Bot() {
		return "bot"
	}
	// Tablets report a desktop-ish UA; catch the common ones before
	// the mobile check. Android tablets omit the "Mobile" token.
	if strings.Contains(uaString, "iPad") || strings.Contains(uaString, "Tablet") ||
		(strings.Contains(uaString, "Android") && !strings.Contains(uaString, "Mobile")) {
		return "tablet"
	}
	if ua.Mobile() {
		return "mobile"
	}
	return "desktop"
}
