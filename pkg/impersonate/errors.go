package impersonate

import "fmt"

// ErrAlreadyImpersonating is returned when Start is called while a session
// is active. This is the only impersonation failure surfaced to the caller.
type ErrAlreadyImpersonating struct {
	AdminEmail  string
	TargetEmail string
}

func (e ErrAlreadyImpersonating) Error() string {
	return fmt.Sprintf("already impersonating: %s is acting as %s", e.AdminEmail, e.TargetEmail)
}
