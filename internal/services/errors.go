package services

import "errors"

// Errors a caller is expected to branch on. Per-item sync failures never
// surface here; they land in the run's SyncResult instead.
var (
	// ErrNotConnected: no connection row exists for the company.
	ErrNotConnected = errors.New("external platform is not connected")

	// ErrPendingCompanySelection: connected, but the user has not picked
	// which external company to operate on yet.
	ErrPendingCompanySelection = errors.New("external company has not been selected")

	// ErrReauthorizationRequired: the refresh token was rejected; the user
	// must reconnect. The stored connection is left untouched.
	ErrReauthorizationRequired = errors.New("reauthorization with the external platform is required")
)

// NotFoundError is the 404-equivalent for absent local records.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError is the 400-equivalent for malformed input, raised
// before any network call is attempted.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
