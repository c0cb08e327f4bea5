package loader

import (
	"errors"
)

var (
	// ErrUnsupportedPayload means a fetcher or wallet returned content of an unrecognized shape
	ErrUnsupportedPayload = errors.New("unsupported payload")

	// ErrSuperseded means a guard adopted a newer handle before this load finished
	ErrSuperseded = errors.New("load superseded by a newer one")

	// ErrTornDown means the guard was torn down
	ErrTornDown = errors.New("view torn down")
)

// LoadError is returned by Load when every source failed
type LoadError struct {
	ContentID string
	Message   string
	Permanent bool
	// Memoized is set when the error came from the failure memo without contacting a source
	Memoized bool
	Err      error
}

func (e *LoadError) Error() string {
	return e.Message
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a retry may succeed
func (e *LoadError) Retryable() bool {
	return !e.Permanent
}

// AsLoadError extracts a *LoadError from err
func AsLoadError(err error) (*LoadError, bool) {
	var loadErr *LoadError
	ok := errors.As(err, &loadErr)
	return loadErr, ok
}
