package group

import "time"

// Visibility controls whether a group is discoverable and open to join requests
type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

// RequestStatus represents the lifecycle state of a join request.
// A request that leaves PENDING is terminal.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// Group represents a capacity-bounded group. Membership is derived from
// users.group_id; the admin is not a member of their own group.
type Group struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Capacity    int        `json:"capacity"`
	Visibility  Visibility `json:"visibility"`
	InviteCode  *string    `json:"invite_code,omitempty"`
	AdminID     string     `json:"admin_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// JoinRequest represents a moderated admission proposal against a
// (user, group) pair
type JoinRequest struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	GroupID   string        `json:"group_id"`
	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	// Populated from JOIN when listing
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}
