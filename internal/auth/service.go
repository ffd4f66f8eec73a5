package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/fkhayef/huddle/internal/user"
)

// Common errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service handles registration and login
type Service struct {
	users    *user.Service
	secret   []byte
	tokenTTL time.Duration
}

// NewService creates a new auth service
func NewService(users *user.Service, secret []byte, tokenTTL time.Duration) *Service {
	return &Service{users: users, secret: secret, tokenTTL: tokenTTL}
}

// Register creates a new user with a hashed password
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*user.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return s.users.Create(ctx, &user.CreateUserParams{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Phone:        req.Phone,
	})
}

// Login verifies credentials and issues a signed bearer token
func (s *Service) Login(ctx context.Context, req *LoginRequest) (string, *user.User, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		return "", nil, err
	}

	if err := s.users.RecordLogin(ctx, u.ID); err != nil {
		return "", nil, err
	}

	return token, u, nil
}

// TokenTTL reports how long issued tokens stay valid
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}

func (s *Service) issueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
