package services

import (
	"database/sql"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festalaurea/booking-backend/internal/database"
	"github.com/festalaurea/booking-backend/internal/models"
	"github.com/festalaurea/booking-backend/pkg/mailer"
)

func setupBookingTest(t *testing.T) (*BookingService, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	postgresDB := &database.PostgresDB{DB: sqlxDB}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	service := NewBookingService(
		database.NewBookingRepository(postgresDB),
		database.NewVenueRepository(postgresDB),
		database.NewUserRepository(postgresDB),
		mailer.NewDevMailer(logger),
		logger,
	)

	return service, mock
}

func venueRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "name", "slug", "type", "description", "address", "phone", "email",
		"capacity_min", "capacity_max", "price_min", "price_max",
		"active", "featured", "rating", "reviews_count", "created_at", "updated_at",
	})
}

func svcBookingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "venue_id", "event_date", "event_time",
		"guests", "menu_type", "notes", "total_amount", "deposit_amount",
		"status", "payment_status", "confirmation_code", "stripe_payment_intent_id",
		"cancelled_at", "cancellation_reason", "created_at", "updated_at",
	})
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "email", "phone", "department", "university",
		"password_hash", "type", "email_verified", "last_login", "created_at", "updated_at",
	})
}

func addVenue(rows *sqlmock.Rows, id, ownerID int64, capacityMax int, active bool) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, ownerID, "Villa Aurora", "villa-aurora", nil, nil, nil, nil, "villa@example.it",
		10, capacityMax, 500.0, 3000.0,
		active, false, 4.5, 12, now, now,
	)
}

func addUser(rows *sqlmock.Rows, id int64) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, "Mario Rossi", "mario.rossi@studenti.unipd.it", nil, nil, nil,
		"$2a$10$hash", "student", true, nil, now, now,
	)
}

func TestCreateBookingService(t *testing.T) {
	futureDate := time.Now().AddDate(0, 1, 0).Format("2006-01-02")

	t.Run("Success", func(t *testing.T) {
		service, mock := setupBookingTest(t)
		now := time.Now()
		parsedDate, _ := time.Parse("2006-01-02", futureDate)

		mock.ExpectQuery(`SELECT (.+) FROM venues WHERE id`).
			WithArgs(int64(2)).
			WillReturnRows(addVenue(venueRows(), 2, 3, 100, true))

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(int64(2), futureDate, "19:00").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(int64(11), now, now))

		// The confirmation emails load the customer
		mock.ExpectQuery(`SELECT (.+) FROM users`).
			WithArgs(int64(1)).
			WillReturnRows(addUser(userRows(), 1))

		booking, err := service.CreateBooking(1, &models.CreateBookingRequest{
			VenueID:       2,
			EventDate:     futureDate,
			EventTime:     "19:00",
			Guests:        40,
			TotalAmount:   1200,
			DepositAmount: 300,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(11), booking.ID)
		assert.Equal(t, models.BookingStatusPending, booking.Status)
		assert.Equal(t, models.PaymentStatusUnpaid, booking.PaymentStatus)
		assert.Equal(t, parsedDate, booking.EventDate)
		assert.Regexp(t, `^FL\d{8}$`, booking.ConfirmationCode)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Slot Taken", func(t *testing.T) {
		service, mock := setupBookingTest(t)

		mock.ExpectQuery(`SELECT (.+) FROM venues WHERE id`).
			WithArgs(int64(2)).
			WillReturnRows(addVenue(venueRows(), 2, 3, 100, true))

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(int64(2), futureDate, "19:00").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := service.CreateBooking(1, &models.CreateBookingRequest{
			VenueID:     2,
			EventDate:   futureDate,
			EventTime:   "19:00",
			Guests:      40,
			TotalAmount: 1200,
		})
		assert.ErrorIs(t, err, models.ErrSlotUnavailable)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Inactive Venue", func(t *testing.T) {
		service, mock := setupBookingTest(t)

		mock.ExpectQuery(`SELECT (.+) FROM venues WHERE id`).
			WithArgs(int64(2)).
			WillReturnRows(addVenue(venueRows(), 2, 3, 100, false))

		_, err := service.CreateBooking(1, &models.CreateBookingRequest{
			VenueID:     2,
			EventDate:   futureDate,
			EventTime:   "19:00",
			Guests:      40,
			TotalAmount: 1200,
		})
		assert.ErrorIs(t, err, models.ErrNotFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Too Many Guests", func(t *testing.T) {
		service, mock := setupBookingTest(t)

		mock.ExpectQuery(`SELECT (.+) FROM venues WHERE id`).
			WithArgs(int64(2)).
			WillReturnRows(addVenue(venueRows(), 2, 3, 50, true))

		_, err := service.CreateBooking(1, &models.CreateBookingRequest{
			VenueID:     2,
			EventDate:   futureDate,
			EventTime:   "19:00",
			Guests:      80,
			TotalAmount: 1200,
		})
		assert.True(t, models.IsValidationError(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Past Event Date", func(t *testing.T) {
		service, mock := setupBookingTest(t)

		mock.ExpectQuery(`SELECT (.+) FROM venues WHERE id`).
			WithArgs(int64(2)).
			WillReturnRows(addVenue(venueRows(), 2, 3, 100, true))

		_, err := service.CreateBooking(1, &models.CreateBookingRequest{
			VenueID:     2,
			EventDate:   "2020-01-01",
			EventTime:   "19:00",
			Guests:      40,
			TotalAmount: 1200,
		})
		assert.True(t, models.IsValidationError(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCancelBookingService(t *testing.T) {
	student := UserRef{ID: 1, Type: models.UserTypeStudent}

	t.Run("Too Close To Event", func(t *testing.T) {
		service, mock := setupBookingTest(t)
		now := time.Now()

		// Event tomorrow morning, inside the 24h window
		soon := time.Now().Add(6 * time.Hour)

		mock.ExpectQuery(`SELECT (.+) FROM bookings b WHERE b.id`).
			WithArgs(int64(5)).
			WillReturnRows(svcBookingRows().AddRow(
				int64(5), int64(1), int64(2), soon, soon.Format("15:04"),
				40, nil, nil, 1200.0, 300.0,
				"confirmed", "paid", "FL20261234", "pi_123",
				nil, nil, now, now,
			))

		_, err := service.CancelBooking(student, 5, nil)
		assert.ErrorIs(t, err, models.ErrTooLateToCancel)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success With Lead Time", func(t *testing.T) {
		service, mock := setupBookingTest(t)
		now := time.Now()

		future := time.Now().AddDate(0, 0, 10)
		reason := "change of plans"

		mock.ExpectQuery(`SELECT (.+) FROM bookings b WHERE b.id`).
			WithArgs(int64(5)).
			WillReturnRows(svcBookingRows().AddRow(
				int64(5), int64(1), int64(2), future, "19:00",
				40, nil, nil, 1200.0, 300.0,
				"confirmed", "paid", "FL20261234", "pi_123",
				nil, nil, now, now,
			))

		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(int64(5), &reason).
			WillReturnResult(sqlmock.NewResult(0, 1))

		// Cancellation email loads user and venue
		mock.ExpectQuery(`SELECT (.+) FROM users`).
			WithArgs(int64(1)).
			WillReturnRows(addUser(userRows(), 1))
		mock.ExpectQuery(`SELECT (.+) FROM venues WHERE id`).
			WithArgs(int64(2)).
			WillReturnRows(addVenue(venueRows(), 2, 3, 100, true))

		booking, err := service.CancelBooking(student, 5, &reason)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, booking.Status)
		require.NotNil(t, booking.CancellationReason)
		assert.Equal(t, reason, *booking.CancellationReason)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Someone Elses Booking", func(t *testing.T) {
		service, mock := setupBookingTest(t)
		now := time.Now()
		future := time.Now().AddDate(0, 0, 10)

		mock.ExpectQuery(`SELECT (.+) FROM bookings b WHERE b.id`).
			WithArgs(int64(5)).
			WillReturnRows(svcBookingRows().AddRow(
				int64(5), int64(99), int64(2), future, "19:00",
				40, nil, nil, 1200.0, 300.0,
				"confirmed", "unpaid", "FL20261234", nil,
				nil, nil, now, now,
			))

		_, err := service.CancelBooking(student, 5, nil)
		assert.ErrorIs(t, err, models.ErrNotFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Completed", func(t *testing.T) {
		service, mock := setupBookingTest(t)
		now := time.Now()
		past := time.Now().AddDate(0, 0, -10)

		mock.ExpectQuery(`SELECT (.+) FROM bookings b WHERE b.id`).
			WithArgs(int64(5)).
			WillReturnRows(svcBookingRows().AddRow(
				int64(5), int64(1), int64(2), past, "19:00",
				40, nil, nil, 1200.0, 300.0,
				"completed", "paid", "FL20261234", "pi_123",
				nil, nil, now, now,
			))

		_, err := service.CancelBooking(student, 5, nil)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateBookingStatusService(t *testing.T) {
	owner := UserRef{ID: 3, Type: models.UserTypeVenueOwner}

	t.Run("Owner Confirms Pending", func(t *testing.T) {
		service, mock := setupBookingTest(t)
		now := time.Now()
		future := time.Now().AddDate(0, 0, 10)

		mock.ExpectQuery(`SELECT (.+) FROM bookings b WHERE b.id`).
			WithArgs(int64(5)).
			WillReturnRows(svcBookingRows().AddRow(
				int64(5), int64(1), int64(2), future, "19:00",
				40, nil, nil, 1200.0, 300.0,
				"pending", "unpaid", "FL20261234", nil,
				nil, nil, now, now,
			))

		mock.ExpectQuery(`SELECT (.+) FROM venues WHERE id`).
			WithArgs(int64(2)).
			WillReturnRows(addVenue(venueRows(), 2, 3, 100, true))

		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(int64(5), models.BookingStatusConfirmed).
			WillReturnResult(sqlmock.NewResult(0, 1))

		// Confirming triggers the customer email
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
			WithArgs(int64(1)).
			WillReturnRows(addUser(userRows(), 1))

		booking, err := service.UpdateStatus(owner, 5, models.BookingStatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusConfirmed, booking.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Owner Cancels Too Close To Event", func(t *testing.T) {
		service, mock := setupBookingTest(t)
		now := time.Now()

		// Inside the 24h window: even the owner cannot cancel
		soon := time.Now().Add(6 * time.Hour)

		mock.ExpectQuery(`SELECT (.+) FROM bookings b WHERE b.id`).
			WithArgs(int64(5)).
			WillReturnRows(svcBookingRows().AddRow(
				int64(5), int64(1), int64(2), soon, soon.Format("15:04"),
				40, nil, nil, 1200.0, 300.0,
				"confirmed", "paid", "FL20261234", "pi_123",
				nil, nil, now, now,
			))

		mock.ExpectQuery(`SELECT (.+) FROM venues WHERE id`).
			WithArgs(int64(2)).
			WillReturnRows(addVenue(venueRows(), 2, 3, 100, true))

		_, err := service.UpdateStatus(owner, 5, models.BookingStatusCancelled)
		assert.ErrorIs(t, err, models.ErrTooLateToCancel)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Owner Cancels With Lead Time", func(t *testing.T) {
		service, mock := setupBookingTest(t)
		now := time.Now()
		future := time.Now().AddDate(0, 0, 10)

		mock.ExpectQuery(`SELECT (.+) FROM bookings b WHERE b.id`).
			WithArgs(int64(5)).
			WillReturnRows(svcBookingRows().AddRow(
				int64(5), int64(1), int64(2), future, "19:00",
				40, nil, nil, 1200.0, 300.0,
				"confirmed", "paid", "FL20261234", "pi_123",
				nil, nil, now, now,
			))

		mock.ExpectQuery(`SELECT (.+) FROM venues WHERE id`).
			WithArgs(int64(2)).
			WillReturnRows(addVenue(venueRows(), 2, 3, 100, true))

		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(int64(5), nil).
			WillReturnResult(sqlmock.NewResult(0, 1))

		booking, err := service.UpdateStatus(owner, 5, models.BookingStatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, booking.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Invalid Transition", func(t *testing.T) {
		service, mock := setupBookingTest(t)
		now := time.Now()
		future := time.Now().AddDate(0, 0, 10)

		mock.ExpectQuery(`SELECT (.+) FROM bookings b WHERE b.id`).
			WithArgs(int64(5)).
			WillReturnRows(svcBookingRows().AddRow(
				int64(5), int64(1), int64(2), future, "19:00",
				40, nil, nil, 1200.0, 300.0,
				"pending", "unpaid", "FL20261234", nil,
				nil, nil, now, now,
			))

		mock.ExpectQuery(`SELECT (.+) FROM venues WHERE id`).
			WithArgs(int64(2)).
			WillReturnRows(addVenue(venueRows(), 2, 3, 100, true))

		_, err := service.UpdateStatus(owner, 5, models.BookingStatusCompleted)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not The Owner", func(t *testing.T) {
		service, mock := setupBookingTest(t)
		now := time.Now()
		future := time.Now().AddDate(0, 0, 10)
		stranger := UserRef{ID: 42, Type: models.UserTypeVenueOwner}

		mock.ExpectQuery(`SELECT (.+) FROM bookings b WHERE b.id`).
			WithArgs(int64(5)).
			WillReturnRows(svcBookingRows().AddRow(
				int64(5), int64(1), int64(2), future, "19:00",
				40, nil, nil, 1200.0, 300.0,
				"pending", "unpaid", "FL20261234", nil,
				nil, nil, now, now,
			))

		mock.ExpectQuery(`SELECT (.+) FROM venues WHERE id`).
			WithArgs(int64(2)).
			WillReturnRows(addVenue(venueRows(), 2, 3, 100, true))

		_, err := service.UpdateStatus(stranger, 5, models.BookingStatusConfirmed)
		assert.ErrorIs(t, err, models.ErrForbidden)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetBookingAuthorization(t *testing.T) {
	t.Run("Stranger Sees Not Found", func(t *testing.T) {
		service, mock := setupBookingTest(t)
		now := time.Now()
		future := time.Now().AddDate(0, 0, 10)
		stranger := UserRef{ID: 42, Type: models.UserTypeStudent}

		mock.ExpectQuery(`SELECT (.+) FROM bookings b WHERE b.id`).
			WithArgs(int64(5)).
			WillReturnRows(svcBookingRows().AddRow(
				int64(5), int64(1), int64(2), future, "19:00",
				40, nil, nil, 1200.0, 300.0,
				"pending", "unpaid", "FL20261234", nil,
				nil, nil, now, now,
			))

		mock.ExpectQuery(`SELECT (.+) FROM venues WHERE id`).
			WithArgs(int64(2)).
			WillReturnRows(addVenue(venueRows(), 2, 3, 100, true))

		_, err := service.GetBooking(stranger, 5)
		assert.ErrorIs(t, err, models.ErrNotFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Admin Sees Everything", func(t *testing.T) {
		service, mock := setupBookingTest(t)
		now := time.Now()
		future := time.Now().AddDate(0, 0, 10)
		admin := UserRef{ID: 7, Type: models.UserTypeAdmin}

		mock.ExpectQuery(`SELECT (.+) FROM bookings b WHERE b.id`).
			WithArgs(int64(5)).
			WillReturnRows(svcBookingRows().AddRow(
				int64(5), int64(1), int64(2), future, "19:00",
				40, nil, nil, 1200.0, 300.0,
				"pending", "unpaid", "FL20261234", nil,
				nil, nil, now, now,
			))

		booking, err := service.GetBooking(admin, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(5), booking.ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetBookingByCode(t *testing.T) {
	t.Run("Customer Looks Up Own Code", func(t *testing.T) {
		service, mock := setupBookingTest(t)
		now := time.Now()
		future := time.Now().AddDate(0, 0, 10)
		customer := UserRef{ID: 1, Type: models.UserTypeStudent}

		mock.ExpectQuery(`SELECT (.+) FROM bookings b WHERE b.confirmation_code`).
			WithArgs("FL20261234").
			WillReturnRows(svcBookingRows().AddRow(
				int64(5), int64(1), int64(2), future, "19:00",
				40, nil, nil, 1200.0, 300.0,
				"confirmed", "paid", "FL20261234", "pi_123",
				nil, nil, now, now,
			))

		booking, err := service.GetBookingByCode(customer, "FL20261234")
		require.NoError(t, err)
		assert.Equal(t, int64(5), booking.ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Stranger Sees Not Found", func(t *testing.T) {
		service, mock := setupBookingTest(t)
		now := time.Now()
		future := time.Now().AddDate(0, 0, 10)
		stranger := UserRef{ID: 42, Type: models.UserTypeStudent}

		mock.ExpectQuery(`SELECT (.+) FROM bookings b WHERE b.confirmation_code`).
			WithArgs("FL20261234").
			WillReturnRows(svcBookingRows().AddRow(
				int64(5), int64(1), int64(2), future, "19:00",
				40, nil, nil, 1200.0, 300.0,
				"confirmed", "paid", "FL20261234", "pi_123",
				nil, nil, now, now,
			))

		mock.ExpectQuery(`SELECT (.+) FROM venues WHERE id`).
			WithArgs(int64(2)).
			WillReturnRows(addVenue(venueRows(), 2, 3, 100, true))

		_, err := service.GetBookingByCode(stranger, "FL20261234")
		assert.ErrorIs(t, err, models.ErrNotFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown Code", func(t *testing.T) {
		service, mock := setupBookingTest(t)

		mock.ExpectQuery(`SELECT (.+) FROM bookings b WHERE b.confirmation_code`).
			WithArgs("FL00000000").
			WillReturnError(sql.ErrNoRows)

		_, err := service.GetBookingByCode(UserRef{ID: 1, Type: models.UserTypeStudent}, "FL00000000")
		assert.ErrorIs(t, err, models.ErrNotFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
