package services

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron         *cron.Cron
	bookingSvc   *BookingService
	analyticsSvc *AnalyticsService
	rateLimitSvc *RateLimitService
}

// NewCronService creates a new CronService
func NewCronService(bookingSvc *BookingService, analyticsSvc *AnalyticsService, rateLimitSvc *RateLimitService) *CronService {
	c := cron.New(cron.WithSeconds())

	return &CronService{
		cron:         c,
		bookingSvc:   bookingSvc,
		analyticsSvc: analyticsSvc,
		rateLimitSvc: rateLimitSvc,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	log.Println("Starting cron service...")

	// Job 1: Complete finished bookings every hour
	// Cron format: second minute hour day month weekday
	// "0 0 * * * *" = at the top of every hour
	_, err := s.cron.AddFunc("0 0 * * * *", s.completeBookingsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule booking completion job: %w", err)
	}
	log.Println("✓ Scheduled: Complete finished bookings (Hourly)")

	// Job 2: Log traffic summary daily at 6 AM
	// "0 0 6 * * *" = at 6:00 AM every day
	_, err = s.cron.AddFunc("0 0 6 * * *", s.trafficSummaryJob)
	if err != nil {
		return fmt.Errorf("failed to schedule traffic summary job: %w", err)
	}
	log.Println("✓ Scheduled: Traffic summary (Daily at 6:00 AM)")

	// Job 3: Cleanup expired rate limit records daily at 5 AM
	// "0 0 5 * * *" = at 5:00 AM every day
	_, err = s.cron.AddFunc("0 0 5 * * *", s.cleanupRateLimitsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule rate limit cleanup job: %w", err)
	}
	log.Println("✓ Scheduled: Cleanup rate limits (Daily at 5:00 AM)")

	// Job 4: Drop page view rows older than a year, weekly on Sunday at 4 AM
	// "0 0 4 * * 0" = at 4:00 AM every Sunday
	_, err = s.cron.AddFunc("0 0 4 * * 0", s.cleanupPageViewsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule page view cleanup job: %w", err)
	}
	log.Println("✓ Scheduled: Cleanup old page views (Weekly, Sunday 4:00 AM)")

	s.cron.Start()
	log.Println("✓ Cron service started successfully")

	return nil
}

// Stop stops all cron jobs
func (s *CronService) Stop() {
	log.Println("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("✓ Cron service stopped")
}

// completeBookingsJob marks confirmed bookings whose event has passed
// as completed, which unlocks reviews for them
func (s *CronService) completeBookingsJob() {
	log.Println("[CRON] Starting booking completion job...")
	startTime := time.Now()

	completed, err := s.bookingSvc.AutoCompleteBookings()
	if err != nil {
		log.Printf("[CRON ERROR] Failed to complete finished bookings: %v\n", err)
		return
	}

	duration := time.Since(startTime)
	log.Printf("[CRON] ✓ Completed %d bookings in %v\n", completed, duration)
}

// trafficSummaryJob logs yesterday's page view totals
func (s *CronService) trafficSummaryJob() {
	log.Println("[CRON] Starting traffic summary job...")

	stats, err := s.analyticsSvc.GetStats(1)
	if err != nil {
		log.Printf("[CRON ERROR] Failed to load traffic stats: %v\n", err)
		return
	}

	log.Printf("[CRON] ✓ Last 24h: %d views across %d sessions\n", stats.TotalViews, stats.UniqueSessions)
}

// cleanupRateLimitsJob removes login attempt records past their window
func (s *CronService) cleanupRateLimitsJob() {
	log.Println("[CRON] Starting rate limit cleanup job...")

	removed, err := s.rateLimitSvc.CleanupExpiredRateLimits()
	if err != nil {
		log.Printf("[CRON ERROR] Failed to cleanup rate limits: %v\n", err)
		return
	}

	log.Printf("[CRON] ✓ Removed %d expired rate limit records\n", removed)
}

// cleanupPageViewsJob removes raw tracking rows older than a year
func (s *CronService) cleanupPageViewsJob() {
	log.Println("[CRON] Starting page view cleanup job...")

	removed, err := s.analyticsSvc.CleanupOldPageViews(365)
	if err != nil {
		log.Printf("[CRON ERROR] Failed to cleanup page views: %v\n", err)
		return
	}

	log.Printf("[CRON] ✓ Removed %d old page view records\n", removed)
}

// RunCompleteBookingsNow runs the booking completion job immediately (for testing)
func (s *CronService) RunCompleteBookingsNow() error {
	log.Println("[MANUAL] Running booking completion now...")
	s.completeBookingsJob()
	return nil
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
