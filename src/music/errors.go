package music

import "errors"

var (
	// ErrNotFound is returned when a catalog or library object does not exist.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest is returned when the remote side rejected a malformed request.
	ErrBadRequest = errors.New("bad request")
	// ErrInvalidRef is returned for catalog references that cannot be parsed.
	ErrInvalidRef = errors.New("invalid catalog reference")
	// ErrOutsideLibrary is returned when a file operation targets a path outside the library root.
	ErrOutsideLibrary = errors.New("path outside library root")
)

// IsSkippable reports whether err belongs to the not-found/bad-request class
// that reconciliation logs and moves past.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrBadRequest)
}
