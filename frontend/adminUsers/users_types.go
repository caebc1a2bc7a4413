package adminusers

import "errors"

// UserView is one row of the user list.
type UserView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Validation failures carry user-facing messages.
var (
	ErrUsernameRequired = errors.New("username is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrInvalidRole      = errors.New("role must be admin, editor or viewer")
	ErrUsernameExists   = errors.New("username is already taken")
)
