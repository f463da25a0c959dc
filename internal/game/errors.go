// internal/game/errors.go
package game

import "fmt"

// ErrorKind classifies a rejected action. Every kind is recoverable: the action
// is a no-op on room state and only the requester is told about it.
type ErrorKind string

const (
	KindNotFound           ErrorKind = "not-found"
	KindForbidden          ErrorKind = "forbidden"
	KindInvalidPhase       ErrorKind = "invalid-phase"
	KindPreconditionFailed ErrorKind = "precondition-failed"
	KindInvalidRequest     ErrorKind = "invalid-request"
)

// ActionError is returned by room and registry operations that reject a request.
type ActionError struct {
	Kind    ErrorKind
	Message string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any ActionError of the same kind, so callers can write
// errors.Is(err, game.ErrForbidden).
func (e *ActionError) Is(target error) bool {
	t, ok := target.(*ActionError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound           = &ActionError{Kind: KindNotFound}
	ErrForbidden          = &ActionError{Kind: KindForbidden}
	ErrInvalidPhase       = &ActionError{Kind: KindInvalidPhase}
	ErrPreconditionFailed = &ActionError{Kind: KindPreconditionFailed}
	ErrInvalidRequest     = &ActionError{Kind: KindInvalidRequest}
)

func reject(kind ErrorKind, msg string) error {
	return &ActionError{Kind: kind, Message: msg}
}
