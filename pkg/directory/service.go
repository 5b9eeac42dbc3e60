package directory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// DirectoryService provides user lookup for the rest of the dashboard
type DirectoryService struct {
	repo UserRepository
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(repo UserRepository) *DirectoryService {
	return &DirectoryService{
		repo: repo,
	}
}

// GetUser retrieves a user by ID
func (s *DirectoryService) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email
func (s *DirectoryService) GetUserByEmail(ctx context.Context, email string) (User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return User{}, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// FindUsers returns all users
func (s *DirectoryService) FindUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.FindUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// SearchUsers returns users matching the search text
func (s *DirectoryService) SearchUsers(ctx context.Context, search string) ([]User, error) {
	users, err := s.repo.SearchUsers(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}
