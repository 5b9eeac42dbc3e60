package directory

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// InMemUserRepository implements UserRepository using an in-memory map
type InMemUserRepository struct {
	users map[uuid.UUID]User
	mu    sync.RWMutex
}

// NewInMemUserRepository creates a new in-memory user repository
func NewInMemUserRepository() *InMemUserRepository {
	return &InMemUserRepository{
		users: make(map[uuid.UUID]User),
	}
}

// AddUser stores a user, generating an ID when absent
func (r *InMemUserRepository) AddUser(ctx context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = user
	slog.Debug("User added", "id", user.ID, "email", user.Email)
	return user, nil
}

// GetUser retrieves a user by ID
func (r *InMemUserRepository) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return User{}, ErrUserNotFound{ID: id.String()}
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email (case-insensitive)
func (r *InMemUserRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound{ID: email}
}

// FindUsers returns all users sorted by email
func (r *InMemUserRepository) FindUsers(ctx context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Email < users[j].Email
	})
	return users, nil
}

// SearchUsers returns users whose email or name contains the search text
func (r *InMemUserRepository) SearchUsers(ctx context.Context, search string) ([]User, error) {
	users, err := r.FindUsers(ctx)
	if err != nil {
		return nil, err
	}
	if search == "" {
		return users, nil
	}

	needle := strings.ToLower(search)
	matched := make([]User, 0)
	for _, user := range users {
		haystack := strings.ToLower(user.Email + " " + user.FirstName + " " + user.LastName)
		if strings.Contains(haystack, needle) {
			matched = append(matched, user)
		}
	}
	return matched, nil
}
