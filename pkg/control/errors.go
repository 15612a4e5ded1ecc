package control

import (
	"errors"

	"github.com/korjavin/cookalong/pkg/timeline"
)

var (
	// ErrNotFound is returned when a session id is unknown
	ErrNotFound = errors.New("session not found")
	// ErrConflict is returned when an operation does not fit the session's status
	ErrConflict = errors.New("conflicting session state")
	// ErrInvalidSchedule is returned when a schedule cannot become a session
	ErrInvalidSchedule = timeline.ErrInvalidSchedule
)

// Error carries a user-facing message and the kind of failure it belongs to.
// Match it with errors.Is against ErrNotFound or ErrConflict.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func notFound() error {
	return &Error{Kind: ErrNotFound, Message: "Session not found"}
}

func conflict(msg string) error {
	return &Error{Kind: ErrConflict, Message: msg}
}
