package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const usersFileName = "users.json"

// FileUserRepository implements UserRepository using file-based storage
type FileUserRepository struct {
	dataDir string
	inmem   *InMemUserRepository
	mu      sync.Mutex
}

// userData represents the structure of data stored in the JSON file
type userData struct {
	Users []User `json:"users"`
}

// NewFileUserRepository creates a new file-based user repository
func NewFileUserRepository(dataDir string) (*FileUserRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileUserRepository{
		dataDir: dataDir,
		inmem:   NewInMemUserRepository(),
	}

	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	return repo, nil
}

// AddUser stores a user and persists the collection
func (r *FileUserRepository) AddUser(ctx context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.inmem.AddUser(ctx, user)
	if err != nil {
		return User{}, err
	}
	if err := r.save(ctx); err != nil {
		return User{}, fmt.Errorf("failed to save users: %w", err)
	}
	return user, nil
}

// GetUser retrieves a user by ID
func (r *FileUserRepository) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return r.inmem.GetUser(ctx, id)
}

// GetUserByEmail retrieves a user by email
func (r *FileUserRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return r.inmem.GetUserByEmail(ctx, email)
}

// FindUsers returns all users
func (r *FileUserRepository) FindUsers(ctx context.Context) ([]User, error) {
	return r.inmem.FindUsers(ctx)
}

// SearchUsers returns users matching the search text
func (r *FileUserRepository) SearchUsers(ctx context.Context, search string) ([]User, error) {
	return r.inmem.SearchUsers(ctx, search)
}

func (r *FileUserRepository) filePath() string {
	return filepath.Join(r.dataDir, usersFileName)
}

func (r *FileUserRepository) load() error {
	data, err := os.ReadFile(r.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var fileData userData
	if err := json.Unmarshal(data, &fileData); err != nil {
		return fmt.Errorf("failed to parse users file: %w", err)
	}

	for _, user := range fileData.Users {
		if _, err := r.inmem.AddUser(context.Background(), user); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileUserRepository) save(ctx context.Context) error {
	users, err := r.inmem.FindUsers(ctx)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(userData{Users: users}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal users: %w", err)
	}
	return os.WriteFile(r.filePath(), data, 0644)
}
