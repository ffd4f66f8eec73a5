package user

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "email", "password_hash", "full_name", "phone", "group_id", "last_login", "created_at", "updated_at"}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewService(NewRepository(db)), mock
}

func userRow(id, email string, groupID *string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userCols).
		AddRow(id, email, "hash", "Some User", "555-0100", groupID, nil, now, now)
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	params := &CreateUserParams{
		Email:        "a@example.com",
		PasswordHash: "hash",
		FullName:     "Some User",
		Phone:        "555-0100",
	}

	t.Run("creates user", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`FROM users WHERE email = \$1`).
			WithArgs("a@example.com").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs(sqlmock.AnyArg(), "a@example.com", "hash", "Some User", "555-0100", sqlmock.AnyArg()).
			WillReturnRows(userRow("u1", "a@example.com", nil))

		u, err := svc.Create(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", u.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`FROM users WHERE email = \$1`).
			WillReturnRows(userRow("u1", "a@example.com", nil))

		_, err := svc.Create(ctx, params)
		assert.ErrorIs(t, err, ErrEmailAlreadyInUse)
	})

	t.Run("racing duplicate email loses on the constraint", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`FROM users WHERE email = \$1`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

		_, err := svc.Create(ctx, params)
		assert.ErrorIs(t, err, ErrEmailAlreadyInUse)
	})

	t.Run("duplicate phone conflicts", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`FROM users WHERE email = \$1`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "users_phone_key"})

		_, err := svc.Create(ctx, params)
		assert.ErrorIs(t, err, ErrPhoneAlreadyInUse)
	})
}

func TestGetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the user with group affiliation", func(t *testing.T) {
		svc, mock := newTestService(t)
		g1 := "g1"

		mock.ExpectQuery(`FROM users WHERE id = \$1`).
			WithArgs("u1").
			WillReturnRows(userRow("u1", "a@example.com", &g1))

		u, err := svc.GetByID(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, u.GroupID)
		assert.Equal(t, "g1", *u.GroupID)
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`FROM users WHERE id = \$1`).
			WillReturnError(sql.ErrNoRows)

		_, err := svc.GetByID(ctx, "ghost")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
