package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fkhayef/huddle/internal/user"
)

var userCols = []string{"id", "email", "password_hash", "full_name", "phone", "group_id", "last_login", "created_at", "updated_at"}

const testSecret = "test-secret"

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := user.NewService(user.NewRepository(db))
	return NewService(users, []byte(testSecret), time.Hour), mock
}

func userRowWithHash(id, email, passwordHash string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userCols).
		AddRow(id, email, passwordHash, "Some User", "555-0100", nil, nil, now, now)
}

func TestRegister(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("a@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "a@example.com", sqlmock.AnyArg(), "Some User", "555-0100", sqlmock.AnyArg()).
		WillReturnRows(userRowWithHash("u1", "a@example.com", "stored-hash"))

	u, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "a@example.com",
		Password: "password123",
		FullName: "Some User",
		Phone:    "555-0100",
	})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("issues a token with the user as subject", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`FROM users WHERE email = \$1`).
			WithArgs("a@example.com").
			WillReturnRows(userRowWithHash("u1", "a@example.com", string(hash)))
		mock.ExpectExec(`UPDATE users SET last_login`).
			WithArgs("u1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		token, u, err := svc.Login(ctx, &LoginRequest{Email: "a@example.com", Password: "password123"})
		require.NoError(t, err)
		assert.Equal(t, "u1", u.ID)

		parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
			return []byte(testSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		require.NoError(t, err)
		sub, err := parsed.Claims.GetSubject()
		require.NoError(t, err)
		assert.Equal(t, "u1", sub)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`FROM users WHERE email = \$1`).
			WillReturnRows(userRowWithHash("u1", "a@example.com", string(hash)))

		_, _, err := svc.Login(ctx, &LoginRequest{Email: "a@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email reports the same error as a wrong password", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`FROM users WHERE email = \$1`).
			WillReturnError(sql.ErrNoRows)

		_, _, err := svc.Login(ctx, &LoginRequest{Email: "ghost@example.com", Password: "password123"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
