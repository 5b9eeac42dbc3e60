package directory

import (
	"context"

	"github.com/google/uuid"
)

// User represents a dashboard user as seen by the impersonation subsystem.
// The authoritative user store lives behind the repository interface; this
// package only carries the fields impersonation and auditing need.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
}

// FullName returns the user's display name
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// UserRepository defines the interface for user lookup operations
type UserRepository interface {
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	FindUsers(ctx context.Context) ([]User, error)
	SearchUsers(ctx context.Context, search string) ([]User, error)
}
