package group

// CreateGroupRequest represents the request to create a new group
type CreateGroupRequest struct {
	Name        string     `json:"name" validate:"required,min=1,max=255"`
	Description string     `json:"description" validate:"required"`
	Capacity    int        `json:"capacity" validate:"required,min=1"`
	Visibility  Visibility `json:"visibility" validate:"required,oneof=PUBLIC PRIVATE"`
}

// RedeemInviteRequest represents the request to join a private group by code
type RedeemInviteRequest struct {
	InviteCode string `json:"invite_code" validate:"required,alphanum,len=8"`
}

// GroupResponse represents the response for a group
type GroupResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Capacity    int        `json:"capacity"`
	Visibility  Visibility `json:"visibility"`
	AdminID     string     `json:"admin_id"`
	CreatedAt   string     `json:"created_at"`
}

// InviteCodeResponse carries a freshly generated invite code
type InviteCodeResponse struct {
	InviteCode string `json:"invite_code"`
}

// JoinRequestResponse represents a pending join request in listings
type JoinRequestResponse struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	GroupID   string        `json:"group_id"`
	Status    RequestStatus `json:"status"`
	UserName  string        `json:"user_name,omitempty"`
	UserEmail string        `json:"user_email,omitempty"`
	CreatedAt string        `json:"created_at"`
}

// ToResponse converts a Group model to a GroupResponse DTO
func (g *Group) ToResponse() *GroupResponse {
	return &GroupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Capacity:    g.Capacity,
		Visibility:  g.Visibility,
		AdminID:     g.AdminID,
		CreatedAt:   g.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ToResponse converts a JoinRequest model to a JoinRequestResponse DTO
func (jr *JoinRequest) ToResponse() *JoinRequestResponse {
	return &JoinRequestResponse{
		ID:        jr.ID,
		UserID:    jr.UserID,
		GroupID:   jr.GroupID,
		Status:    jr.Status,
		UserName:  jr.UserName,
		UserEmail: jr.UserEmail,
		CreatedAt: jr.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
