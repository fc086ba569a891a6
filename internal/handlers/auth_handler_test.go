package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/festalaurea/booking-backend/internal/database"
	"github.com/festalaurea/booking-backend/internal/middleware"
	"github.com/festalaurea/booking-backend/internal/models"
	"github.com/festalaurea/booking-backend/internal/services"
	"github.com/festalaurea/booking-backend/pkg/jwt"
	"github.com/festalaurea/booking-backend/pkg/mailer"
	"github.com/festalaurea/booking-backend/pkg/validator"
)

// setupTestDB creates a mock database for testing
func setupTestDB(t *testing.T) (*database.PostgresDB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")
	return &database.PostgresDB{DB: sqlxDB}, mock
}

func setupAuthTestHandler(db *database.PostgresDB) *AuthHandler {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	jwtService := jwt.NewService("test-secret", "test-refresh-secret", 15*time.Minute, 7*24*time.Hour)
	authService := services.NewAuthService(
		database.NewUserRepository(db),
		database.NewVenueRepository(db),
		jwtService,
		validator.NewEmailValidator(nil),
		mailer.NewDevMailer(logger),
		bcrypt.MinCost,
		logger,
	)
	rateLimitService := services.NewRateLimitService(db)

	return NewAuthHandler(authService, rateLimitService)
}

func newJSONRequest(method, path string, body any) *http.Request {
	buf, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewBuffer(buf))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func rateLimitCountRows(count int, last time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count", "coalesce"}).AddRow(count, last)
}

func TestLoginHandler_RateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock := setupTestDB(t)
	handler := setupAuthTestHandler(db)

	// Email budget already spent; the user query must never run
	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(MAX\(created_at\), NOW\(\)\)`).
		WithArgs("mario.rossi@studenti.unipd.it", "email", sqlmock.AnyArg()).
		WillReturnRows(rateLimitCountRows(5, time.Now()))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = newJSONRequest(http.MethodPost, "/api/v1/auth/login", gin.H{
		"email":    "mario.rossi@studenti.unipd.it",
		"password": "whatever",
	})

	handler.Login(c)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, false, response["success"])
	assert.Equal(t, "rate_limit_exceeded", response["error"])
	assert.Equal(t, "email", response["type"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginHandler_WrongPasswordRecordsAttempt(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock := setupTestDB(t)
	handler := setupAuthTestHandler(db)

	hash, err := bcrypt.GenerateFromPassword([]byte("the-real-password"), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()

	// Both rate limit windows are still open
	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(MAX\(created_at\), NOW\(\)\)`).
		WithArgs("mario.rossi@studenti.unipd.it", "email", sqlmock.AnyArg()).
		WillReturnRows(rateLimitCountRows(1, now))
	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(MAX\(created_at\), NOW\(\)\)`).
		WithArgs(sqlmock.AnyArg(), "ip", sqlmock.AnyArg()).
		WillReturnRows(rateLimitCountRows(0, now))

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE email`).
		WithArgs("mario.rossi@studenti.unipd.it").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "email", "phone", "department", "university",
			"password_hash", "type", "email_verified", "last_login", "created_at", "updated_at",
		}).AddRow(int64(1), "Mario Rossi", "mario.rossi@studenti.unipd.it", nil, nil, nil,
			string(hash), models.UserTypeStudent, true, nil, now, now))

	// The failed attempt lands in the rate limit table for email and IP
	mock.ExpectExec(`INSERT INTO auth_rate_limits`).
		WithArgs("mario.rossi@studenti.unipd.it", "email").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO auth_rate_limits`).
		WithArgs(sqlmock.AnyArg(), "ip").
		WillReturnResult(sqlmock.NewResult(2, 1))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = newJSONRequest(http.MethodPost, "/api/v1/auth/login", gin.H{
		"email":    "mario.rossi@studenti.unipd.it",
		"password": "not-the-password",
	})

	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "invalid_credentials", response.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", response.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterHandler_InvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock := setupTestDB(t)
	handler := setupAuthTestHandler(db)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = newJSONRequest(http.MethodPost, "/api/v1/auth/register", gin.H{
		"name": "Mario Rossi",
		// missing email and password
	})

	handler.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "validation_error", response.Error)
	assert.Equal(t, "INVALID_BODY", response.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfileHandler_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock := setupTestDB(t)
	handler := setupAuthTestHandler(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "email", "phone", "department", "university",
			"password_hash", "type", "email_verified", "last_login", "created_at", "updated_at",
		}).AddRow(int64(7), "Giulia Bianchi", "giulia.bianchi@studenti.unipd.it", nil, nil, nil,
			"hash", models.UserTypeStudent, true, nil, now, now))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil)
	c.Set(middleware.UserContextKey, middleware.UserContext{
		UserID: 7,
		Email:  "giulia.bianchi@studenti.unipd.it",
		Type:   models.UserTypeStudent,
	})

	handler.GetProfile(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Success bool        `json:"success"`
		Data    models.User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, int64(7), response.Data.ID)
	assert.Equal(t, "Giulia Bianchi", response.Data.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
