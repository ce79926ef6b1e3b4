package apperr

import "fmt"

// ValidationError is raised before any network call is dispatched.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validation(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NetworkError wraps a transport-level failure talking to the order service.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError means the order service rejected our credentials. The caller is
// expected to trigger a global sign-out.
type AuthError struct {
	Op string
}

func (e *AuthError) Error() string { return fmt.Sprintf("%s: unauthorized", e.Op) }

// BackendError is a non-success response carrying the service's message.
type BackendError struct {
	Op         string
	StatusCode int
	Msg        string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: status=%d msg=%s", e.Op, e.StatusCode, e.Msg)
}
