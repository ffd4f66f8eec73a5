package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func signToken(t *testing.T, key []byte, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestAuth(t *testing.T) {
	var gotUserID string
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, gotOK = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Auth(secret)(next)

	run := func(authHeader string) *httptest.ResponseRecorder {
		gotUserID, gotOK = "", false
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	t.Run("valid token puts the subject into context", func(t *testing.T) {
		token := signToken(t, secret, jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})

		rr := run("Bearer " + token)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, gotOK)
		assert.Equal(t, "u1", gotUserID)
	})

	t.Run("missing header", func(t *testing.T) {
		rr := run("")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.False(t, gotOK)
	})

	t.Run("malformed header", func(t *testing.T) {
		rr := run("Token abc")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, secret, jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		})

		rr := run("Bearer " + token)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("token signed with the wrong key", func(t *testing.T) {
		token := signToken(t, []byte("other-secret"), jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})

		rr := run("Bearer " + token)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("token without a subject", func(t *testing.T) {
		token := signToken(t, secret, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})

		rr := run("Bearer " + token)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
