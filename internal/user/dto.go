package user

// CreateUserParams carries the fields needed to persist a new user.
// The password is already hashed by the caller.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
}

// UserResponse represents the response for a single user
type UserResponse struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FullName  string  `json:"full_name"`
	Phone     string  `json:"phone"`
	GroupID   *string `json:"group_id,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// ToResponse converts a User model to a UserResponse DTO
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		GroupID:   u.GroupID,
		CreatedAt: u.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
