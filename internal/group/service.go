package group

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fkhayef/huddle/internal/database"
	"github.com/fkhayef/huddle/internal/user"
)

// Common errors
var (
	ErrGroupNotFound   = errors.New("group not found")
	ErrRequestNotFound = errors.New("join request not found")
	ErrInvalidCode     = errors.New("invalid invite code")

	ErrNameTaken       = errors.New("group with this name already exists")
	ErrAlreadyInGroup  = errors.New("user is already in a group")
	ErrRequestPending  = errors.New("join request already pending")
	ErrRequestResolved = errors.New("join request has already been resolved")
	ErrGroupFull       = errors.New("group is at full capacity")
	ErrNotInGroup      = errors.New("user is not in this group")

	ErrInvalidCapacity = errors.New("capacity must be at least 1")
	ErrNotPublic       = errors.New("can only request to join public groups")
	ErrNotPrivate      = errors.New("invite codes are only for private groups")
	ErrAdminJoin       = errors.New("group admin cannot join their own group")

	ErrNotGroupAdmin = errors.New("only the group admin can access this resource")

	// internal: invite code collided with another group's code, retry
	errCodeCollision = errors.New("invite code already in use")
)

const (
	inviteCodeLength   = 8
	inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	inviteCodeRetries  = 5
)

// Service is the admission engine. It validates and executes membership
// state transitions across the group, join-request and user stores, running
// every mutating operation as one transactional unit of work.
type Service struct {
	db     *sql.DB
	groups *Repository
	users  *user.Repository
}

// NewService creates a new group service
func NewService(db *sql.DB, groups *Repository, users *user.Repository) *Service {
	return &Service{db: db, groups: groups, users: users}
}

// Create creates a new group with the caller as admin
func (s *Service) Create(ctx context.Context, adminID string, req *CreateGroupRequest) (*Group, error) {
	if req.Capacity < 1 {
		return nil, ErrInvalidCapacity
	}

	existing, err := s.groups.GetByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrNameTaken
	}

	admin, err := s.users.GetByID(ctx, s.db, adminID)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, user.ErrUserNotFound
	}

	// The unique constraint on name catches a racing duplicate here.
	return s.groups.Create(ctx, adminID, req)
}

// SearchPublic returns up to ten public groups matching the name substring,
// newest first. An empty substring matches all public groups.
func (s *Service) SearchPublic(ctx context.Context, substring string) ([]*Group, error) {
	return s.groups.SearchPublic(ctx, substring)
}

// RequestJoin files a PENDING join request for a public group. Capacity is
// not checked here; requests are not reservations, capacity is enforced at
// approval time.
func (s *Service) RequestJoin(ctx context.Context, callerID, groupID string) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		g, err := s.groups.GetByID(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if g == nil {
			return ErrGroupNotFound
		}
		if g.AdminID == callerID {
			return ErrAdminJoin
		}
		if g.Visibility != VisibilityPublic {
			return ErrNotPublic
		}

		u, err := s.users.GetByID(ctx, tx, callerID)
		if err != nil {
			return err
		}
		if u == nil {
			return user.ErrUserNotFound
		}
		if u.GroupID != nil {
			return ErrAlreadyInGroup
		}

		// The partial unique index turns a racing duplicate into ErrRequestPending.
		_, err = s.groups.CreatePendingRequest(ctx, tx, callerID, groupID)
		return err
	})
}

// DirectJoin admits the caller to a public group immediately, with the
// capacity check taken under the group's row lock. No ledger entry is made.
func (s *Service) DirectJoin(ctx context.Context, callerID, groupID string) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		g, err := s.groups.LockByID(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if g == nil {
			return ErrGroupNotFound
		}
		if g.AdminID == callerID {
			return ErrAdminJoin
		}
		if g.Visibility != VisibilityPublic {
			return ErrNotPublic
		}

		return s.admit(ctx, tx, g, callerID)
	})
}

// ListPendingRequests returns all PENDING requests for a group. Admin only.
func (s *Service) ListPendingRequests(ctx context.Context, callerID, groupID string) ([]*JoinRequest, error) {
	if _, err := s.requireAdmin(ctx, s.db, groupID, callerID); err != nil {
		return nil, err
	}
	return s.groups.ListPendingByGroup(ctx, groupID)
}

// ApproveRequestByID approves a PENDING join request addressed by request ID
func (s *Service) ApproveRequestByID(ctx context.Context, callerID, requestID string) error {
	return s.resolveByID(ctx, callerID, requestID, RequestStatusApproved)
}

// RejectRequestByID rejects a PENDING join request addressed by request ID
func (s *Service) RejectRequestByID(ctx context.Context, callerID, requestID string) error {
	return s.resolveByID(ctx, callerID, requestID, RequestStatusRejected)
}

// ApproveRequest approves the PENDING request for a (group, user) pair
func (s *Service) ApproveRequest(ctx context.Context, callerID, groupID, userID string) error {
	return s.resolveByPair(ctx, callerID, groupID, userID, RequestStatusApproved)
}

// RejectRequest rejects the PENDING request for a (group, user) pair
func (s *Service) RejectRequest(ctx context.Context, callerID, groupID, userID string) error {
	return s.resolveByPair(ctx, callerID, groupID, userID, RequestStatusRejected)
}

// ListMembers returns the member roster of a group. Admin only; the admin
// does not appear unless their own affiliation points at the group.
func (s *Service) ListMembers(ctx context.Context, callerID, groupID string) ([]*user.User, error) {
	if _, err := s.requireAdmin(ctx, s.db, groupID, callerID); err != nil {
		return nil, err
	}
	return s.users.ListByGroup(ctx, s.db, groupID)
}

// GenerateInviteCode creates a fresh invite code for a private group,
// replacing any prior code. Admin only.
func (s *Service) GenerateInviteCode(ctx context.Context, callerID, groupID string) (string, error) {
	g, err := s.requireAdmin(ctx, s.db, groupID, callerID)
	if err != nil {
		return "", err
	}
	if g.Visibility != VisibilityPrivate {
		return "", ErrNotPrivate
	}

	for i := 0; i < inviteCodeRetries; i++ {
		code, err := newInviteCode()
		if err != nil {
			return "", err
		}
		err = s.groups.SetInviteCode(ctx, groupID, code)
		if errors.Is(err, errCodeCollision) {
			continue
		}
		if err != nil {
			return "", err
		}
		return code, nil
	}
	return "", fmt.Errorf("failed to generate a unique invite code")
}

// RedeemInviteCode admits the caller to the group holding the code. This is
// the atomic admission point for the invite path; capacity is checked under
// the group's row lock.
func (s *Service) RedeemInviteCode(ctx context.Context, callerID, code string) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		g, err := s.groups.LockByInviteCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if g == nil {
			return ErrInvalidCode
		}
		if g.AdminID == callerID {
			return ErrAdminJoin
		}

		return s.admit(ctx, tx, g, callerID)
	})
}

// RemoveMember removes a user from a group. Admin only. Terminal join
// request records are left untouched.
func (s *Service) RemoveMember(ctx context.Context, callerID, groupID, userID string) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := s.requireAdmin(ctx, tx, groupID, callerID); err != nil {
			return err
		}

		u, err := s.users.LockByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return user.ErrUserNotFound
		}
		if u.GroupID == nil || *u.GroupID != groupID {
			return ErrNotInGroup
		}

		return s.users.AssignGroup(ctx, tx, userID, nil)
	})
}

// requireAdmin is the capability gate for moderation operations. A missing
// group reports ErrNotGroupAdmin as well, so non-admins cannot probe for
// group existence.
func (s *Service) requireAdmin(ctx context.Context, q database.DBTX, groupID, callerID string) (*Group, error) {
	g, err := s.groups.GetByID(ctx, q, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil || g.AdminID != callerID {
		return nil, ErrNotGroupAdmin
	}
	return g, nil
}

// admit performs the final admission step shared by direct join and invite
// redemption: capacity check against the locked group, then assignment.
func (s *Service) admit(ctx context.Context, tx *sql.Tx, g *Group, callerID string) error {
	count, err := s.users.CountByGroup(ctx, tx, g.ID)
	if err != nil {
		return err
	}
	if count >= g.Capacity {
		return ErrGroupFull
	}

	u, err := s.users.LockByID(ctx, tx, callerID)
	if err != nil {
		return err
	}
	if u == nil {
		return user.ErrUserNotFound
	}
	if u.GroupID != nil {
		return ErrAlreadyInGroup
	}

	return s.users.AssignGroup(ctx, tx, callerID, &g.ID)
}

// resolveByID approves or rejects a join request addressed by request ID.
// The group lock is taken before the request lock so both addressing
// schemes acquire locks in the same order.
func (s *Service) resolveByID(ctx context.Context, callerID, requestID string, status RequestStatus) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		jr, err := s.groups.GetRequestByID(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if jr == nil {
			return ErrRequestNotFound
		}

		g, err := s.lockAsAdmin(ctx, tx, jr.GroupID, callerID)
		if err != nil {
			return err
		}

		// Re-read under the row lock; a racing moderator may have resolved it.
		jr, err = s.groups.LockRequestByID(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if jr == nil {
			return ErrRequestNotFound
		}

		return s.resolve(ctx, tx, g, jr, status)
	})
}

// resolveByPair approves or rejects the PENDING request for a (group, user)
// pair. The pair addresses at most one PENDING row; if the request was
// already resolved the pair no longer resolves and the result is not found.
func (s *Service) resolveByPair(ctx context.Context, callerID, groupID, userID string, status RequestStatus) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		g, err := s.lockAsAdmin(ctx, tx, groupID, callerID)
		if err != nil {
			return err
		}

		jr, err := s.groups.LockPendingByPair(ctx, tx, groupID, userID)
		if err != nil {
			return err
		}
		if jr == nil {
			return ErrRequestNotFound
		}

		return s.resolve(ctx, tx, g, jr, status)
	})
}

// lockAsAdmin combines the admin capability gate with the group row lock
func (s *Service) lockAsAdmin(ctx context.Context, tx *sql.Tx, groupID, callerID string) (*Group, error) {
	g, err := s.groups.LockByID(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil || g.AdminID != callerID {
		return nil, ErrNotGroupAdmin
	}
	return g, nil
}

// resolve moves a locked join request out of PENDING. Approval is the
// capacity enforcement point: first approved, first served.
func (s *Service) resolve(ctx context.Context, tx *sql.Tx, g *Group, jr *JoinRequest, status RequestStatus) error {
	if jr.Status != RequestStatusPending {
		return ErrRequestResolved
	}

	if status == RequestStatusApproved {
		count, err := s.users.CountByGroup(ctx, tx, g.ID)
		if err != nil {
			return err
		}
		if count >= g.Capacity {
			return ErrGroupFull
		}

		u, err := s.users.LockByID(ctx, tx, jr.UserID)
		if err != nil {
			return err
		}
		if u == nil {
			return user.ErrUserNotFound
		}
		if u.GroupID != nil {
			return ErrAlreadyInGroup
		}

		if err := s.users.AssignGroup(ctx, tx, jr.UserID, &g.ID); err != nil {
			return err
		}
	}

	return s.groups.SetRequestStatus(ctx, tx, jr.ID, status)
}

// newInviteCode produces a short uppercase alphanumeric code
func newInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}
	for i, b := range buf {
		buf[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return string(buf), nil
}
