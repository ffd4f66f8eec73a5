package group

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

const (
	groupColumns   = "id, name, description, capacity, visibility, invite_code, admin_id, created_at, updated_at"
	requestColumns = "id, user_id, group_id, status, created_at, updated_at"

	// searchLimit caps public search results
	searchLimit = 10
)

// Repository handles group and join-request persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new group repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new group
func (r *Repository) Create(ctx context.Context, adminID string, req *CreateGroupRequest) (*Group, error) {
	query := `
		INSERT INTO groups (id, name, description, capacity, visibility, admin_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING ` + groupColumns

	now := time.Now().UTC()
	g, err := scanGroup(r.db.QueryRowContext(ctx, query,
		uuid.NewString(), req.Name, req.Description, req.Capacity, req.Visibility, adminID, now))
	if err != nil {
		if isUniqueViolation(err, "groups_name_key") {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return g, nil
}

// GetByID retrieves a group by ID, or nil when no such group exists
func (r *Repository) GetByID(ctx context.Context, q database.DBTX, id string) (*Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1`

	g, err := scanGroup(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// GetByName retrieves a group by its unique name, or nil
func (r *Repository) GetByName(ctx context.Context, name string) (*Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE name = $1`

	g, err := scanGroup(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group by name: %w", err)
	}
	return g, nil
}

// LockByID retrieves a group holding its row lock for the rest of the
// transaction. Capacity checks against this group serialize behind it.
func (r *Repository) LockByID(ctx context.Context, q database.DBTX, id string) (*Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1 FOR UPDATE`

	g, err := scanGroup(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock group: %w", err)
	}
	return g, nil
}

// LockByInviteCode retrieves and locks the group holding the given code
func (r *Repository) LockByInviteCode(ctx context.Context, q database.DBTX, code string) (*Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE invite_code = $1 FOR UPDATE`

	g, err := scanGroup(q.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock group by invite code: %w", err)
	}
	return g, nil
}

// SearchPublic retrieves up to searchLimit public groups whose name contains
// the substring, newest first
func (r *Repository) SearchPublic(ctx context.Context, substring string) ([]*Group, error) {
	query := `
		SELECT ` + groupColumns + `
		FROM groups
		WHERE visibility = $1 AND name LIKE '%' || $2 || '%'
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, VisibilityPublic, substring, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// SetInviteCode stores a new invite code on a group, replacing any prior one
func (r *Repository) SetInviteCode(ctx context.Context, id, code string) error {
	query := `UPDATE groups SET invite_code = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, code)
	if err != nil {
		if isUniqueViolation(err, "groups_invite_code_key") {
			return errCodeCollision
		}
		return fmt.Errorf("failed to set invite code: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// CreatePendingRequest inserts a PENDING join request for a (user, group)
// pair. The partial unique index rejects a second pending row for the same
// pair, so one of two racing callers deterministically fails.
func (r *Repository) CreatePendingRequest(ctx context.Context, q database.DBTX, userID, groupID string) (*JoinRequest, error) {
	query := `
		INSERT INTO join_requests (id, user_id, group_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING ` + requestColumns

	now := time.Now().UTC()
	jr, err := scanRequest(q.QueryRowContext(ctx, query,
		uuid.NewString(), userID, groupID, RequestStatusPending, now))
	if err != nil {
		if isUniqueViolation(err, "join_requests_pending_uniq") {
			return nil, ErrRequestPending
		}
		return nil, fmt.Errorf("failed to create join request: %w", err)
	}
	return jr, nil
}

// GetRequestByID retrieves a join request by ID, or nil
func (r *Repository) GetRequestByID(ctx context.Context, q database.DBTX, id string) (*JoinRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM join_requests WHERE id = $1`

	jr, err := scanRequest(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get join request: %w", err)
	}
	return jr, nil
}

// LockRequestByID re-reads a join request under its row lock so a racing
// moderator observes the final status instead of a stale PENDING.
func (r *Repository) LockRequestByID(ctx context.Context, q database.DBTX, id string) (*JoinRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM join_requests WHERE id = $1 FOR UPDATE`

	jr, err := scanRequest(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock join request: %w", err)
	}
	return jr, nil
}

// LockPendingByPair retrieves and locks the single PENDING request for a
// (group, user) pair, or nil when none is pending
func (r *Repository) LockPendingByPair(ctx context.Context, q database.DBTX, groupID, userID string) (*JoinRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM join_requests
		WHERE group_id = $1 AND user_id = $2 AND status = $3
		FOR UPDATE
	`

	jr, err := scanRequest(q.QueryRowContext(ctx, query, groupID, userID, RequestStatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock join request: %w", err)
	}
	return jr, nil
}

// ListPendingByGroup retrieves all PENDING requests for a group with
// requester info
func (r *Repository) ListPendingByGroup(ctx context.Context, groupID string) ([]*JoinRequest, error) {
	query := `
		SELECT jr.id, jr.user_id, jr.group_id, jr.status, jr.created_at, jr.updated_at,
		       u.full_name, u.email
		FROM join_requests jr
		JOIN users u ON jr.user_id = u.id
		WHERE jr.group_id = $1 AND jr.status = $2
		ORDER BY jr.created_at
	`

	rows, err := r.db.QueryContext(ctx, query, groupID, RequestStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	defer rows.Close()

	var requests []*JoinRequest
	for rows.Next() {
		jr := &JoinRequest{}
		if err := rows.Scan(
			&jr.ID,
			&jr.UserID,
			&jr.GroupID,
			&jr.Status,
			&jr.CreatedAt,
			&jr.UpdatedAt,
			&jr.UserName,
			&jr.UserEmail,
		); err != nil {
			return nil, fmt.Errorf("failed to scan join request: %w", err)
		}
		requests = append(requests, jr)
	}
	return requests, rows.Err()
}

// SetRequestStatus moves a join request out of PENDING
func (r *Repository) SetRequestStatus(ctx context.Context, q database.DBTX, id string, status RequestStatus) error {
	query := `UPDATE join_requests SET status = $2, updated_at = now() WHERE id = $1`

	result, err := q.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update join request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRequestNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*Group, error) {
	g := &Group{}
	err := row.Scan(
		&g.ID,
		&g.Name,
		&g.Description,
		&g.Capacity,
		&g.Visibility,
		&g.InviteCode,
		&g.AdminID,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func scanRequest(row rowScanner) (*JoinRequest, error) {
	jr := &JoinRequest{}
	err := row.Scan(
		&jr.ID,
		&jr.UserID,
		&jr.GroupID,
		&jr.Status,
		&jr.CreatedAt,
		&jr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return jr, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == constraint
	}
	return false
}
