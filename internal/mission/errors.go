package mission

import (
	"errors"
	"fmt"
)

// Kind classifies which step of a mission operation failed.
type Kind string

const (
	KindLoadFailed       Kind = "load_failed"
	KindSaveFailed       Kind = "save_failed"
	KindDeleteFailed     Kind = "delete_failed"
	KindAgentSpawnFailed Kind = "agent_spawn_failed"
	KindAgentStopFailed  Kind = "agent_stop_failed"
	KindNotFound         Kind = "not_found"
)

// ErrNotFound is the sentinel for a missing entity; NotFound errors wrap it so
// callers can use errors.Is.
var ErrNotFound = errors.New("not found")

// Error is the typed failure every mutating operation returns: the failed step,
// a human-readable detail, and the underlying cause.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a mission Error of the given kind.
func IsKind(err error, k Kind) bool {
	var me *Error
	return errors.As(err, &me) && me.Kind == k
}

func loadFailed(detail string, err error) *Error {
	return &Error{Kind: KindLoadFailed, Detail: detail, Err: err}
}

func saveFailed(detail string, err error) *Error {
	return &Error{Kind: KindSaveFailed, Detail: detail, Err: err}
}

func deleteFailed(detail string, err error) *Error {
	return &Error{Kind: KindDeleteFailed, Detail: detail, Err: err}
}

func spawnFailed(detail string, err error) *Error {
	return &Error{Kind: KindAgentSpawnFailed, Detail: detail, Err: err}
}

func stopFailed(detail string, err error) *Error {
	return &Error{Kind: KindAgentStopFailed, Detail: detail, Err: err}
}

func notFound(what, id string) *Error {
	return &Error{Kind: KindNotFound, Detail: fmt.Sprintf("%s %q", what, id), Err: ErrNotFound}
}
