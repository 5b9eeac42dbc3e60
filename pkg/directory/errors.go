package directory

import "fmt"

// ErrUserNotFound is returned when no user matches the given identifier
type ErrUserNotFound struct {
	ID string
}

func (e ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.ID)
}
