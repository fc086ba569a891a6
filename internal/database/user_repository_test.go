package database

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festalaurea/booking-backend/internal/models"
)

func newMockDB(t *testing.T) (*mockDatabase, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &mockDatabase{db: sqlx.NewDb(db, "postgres")}, mock
}

func TestCreateUser(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := NewUserRepository(mockDB)

	t.Run("Success", func(t *testing.T) {
		now := time.Now()
		user := &models.User{
			Name:          "Mario Rossi",
			Email:         "mario.rossi@studenti.unipd.it",
			PasswordHash:  "$2a$12$hash",
			Type:          models.UserTypeStudent,
			EmailVerified: true,
		}

		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs(user.Name, user.Email, nil, nil, nil, user.PasswordHash, user.Type, true).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(int64(7), now, now))

		err := repo.CreateUser(user)
		require.NoError(t, err)
		assert.Equal(t, int64(7), user.ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate Email", func(t *testing.T) {
		user := &models.User{
			Name:         "Mario Rossi",
			Email:        "mario.rossi@studenti.unipd.it",
			PasswordHash: "$2a$12$hash",
			Type:         models.UserTypeStudent,
		}

		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

		err := repo.CreateUser(user)
		assert.ErrorIs(t, err, models.ErrEmailTaken)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		user := &models.User{Name: "Mario", Email: "m@example.com"}

		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(fmt.Errorf("database error"))

		err := repo.CreateUser(user)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create user")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetUserByEmail(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := NewUserRepository(mockDB)

	t.Run("Success", func(t *testing.T) {
		now := time.Now()
		email := "mario.rossi@studenti.unipd.it"

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email`).
			WithArgs(email).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "name", "email", "phone", "department", "university",
				"password_hash", "type", "email_verified", "last_login",
				"created_at", "updated_at",
			}).AddRow(
				int64(1), "Mario Rossi", email, nil, nil, nil,
				"$2a$12$hash", "student", true, nil, now, now,
			))

		user, err := repo.GetUserByEmail(email)
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
		assert.Equal(t, models.UserTypeStudent, user.Type)
		assert.Nil(t, user.Phone)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("User Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email`).
			WithArgs("nobody@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		user, err := repo.GetUserByEmail("nobody@example.com")
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Nil(t, user)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unverified Account Invisible", func(t *testing.T) {
		email := "pending@studenti.unipd.it"

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1 AND email_verified = TRUE`).
			WithArgs(email).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		user, err := repo.GetUserByEmail(email)
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Nil(t, user)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateProfile(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := NewUserRepository(mockDB)

	t.Run("Success", func(t *testing.T) {
		name := "Mario R."
		req := &models.UpdateProfileRequest{Name: &name}

		mock.ExpectExec(`UPDATE users`).
			WithArgs(&name, nil, nil, nil, sqlmock.AnyArg(), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateProfile(1, req)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("User Not Found", func(t *testing.T) {
		mock.ExpectExec(`UPDATE users`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateProfile(99, &models.UpdateProfileRequest{})
		assert.ErrorIs(t, err, models.ErrNotFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEmailExists(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := NewUserRepository(mockDB)

	t.Run("Exists", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("taken@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := repo.EmailExists("taken@example.com")
		require.NoError(t, err)
		assert.True(t, exists)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Free", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("free@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		exists, err := repo.EmailExists("free@example.com")
		require.NoError(t, err)
		assert.False(t, exists)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// Mock database implementation for testing
type mockDatabase struct {
	db *sqlx.DB
}

func (m *mockDatabase) Get(dest interface{}, query string, args ...interface{}) error {
	return m.db.Get(dest, query, args...)
}

func (m *mockDatabase) Select(dest interface{}, query string, args ...interface{}) error {
	return m.db.Select(dest, query, args...)
}

func (m *mockDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return m.db.Query(query, args...)
}

func (m *mockDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return m.db.QueryRow(query, args...)
}

func (m *mockDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return m.db.Exec(query, args...)
}

func (m *mockDatabase) Beginx() (*sqlx.Tx, error) {
	return m.db.Beginx()
}

func (m *mockDatabase) Close() error {
	return m.db.Close()
}

func (m *mockDatabase) Ping() error {
	return m.db.Ping()
}
