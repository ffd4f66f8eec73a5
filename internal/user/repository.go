package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fkhayef/huddle/internal/database"
)

const userColumns = "id, email, password_hash, full_name, phone, group_id, last_login, created_at, updated_at"

// Repository handles user data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new user repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user into the database
func (r *Repository) Create(ctx context.Context, params *CreateUserParams) (*User, error) {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING ` + userColumns

	now := time.Now().UTC()
	row := r.db.QueryRowContext(ctx, query,
		uuid.NewString(), params.Email, params.PasswordHash, params.FullName, params.Phone, now)

	u, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return nil, ErrEmailAlreadyInUse
		}
		if isUniqueViolation(err, "users_phone_key") {
			return nil, ErrPhoneAlreadyInUse
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by ID, or nil when no such user exists
func (r *Repository) GetByID(ctx context.Context, q database.DBTX, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email, or nil when no such user exists
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// LockByID retrieves a user with a row lock held for the rest of the
// transaction, so concurrent admissions for the same user serialize.
func (r *Repository) LockByID(ctx context.Context, q database.DBTX, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	u, err := scanUser(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	return u, nil
}

// AssignGroup sets or clears a user's current group
func (r *Repository) AssignGroup(ctx context.Context, q database.DBTX, userID string, groupID *string) error {
	query := `UPDATE users SET group_id = $2, updated_at = now() WHERE id = $1`

	result, err := q.ExecContext(ctx, query, userID, groupID)
	if err != nil {
		return fmt.Errorf("failed to assign group: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListByGroup retrieves all users whose current group is the given group
func (r *Repository) ListByGroup(ctx context.Context, q database.DBTX, groupID string) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE group_id = $1 ORDER BY full_name`

	rows, err := q.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountByGroup returns the current member count of a group
func (r *Repository) CountByGroup(ctx context.Context, q database.DBTX, groupID string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE group_id = $1`, groupID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}

// SetLastLogin stamps the user's last successful login time
func (r *Repository) SetLastLogin(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to set last login: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Phone,
		&u.GroupID,
		&u.LastLogin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == constraint
	}
	return false
}
