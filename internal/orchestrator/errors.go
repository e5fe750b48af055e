package orchestrator

import (
	"errors"
	"fmt"

	"github.com/nexuscore/agentcore/pkg/models"
)

// ErrorKind tags every orchestrator-surfaced error with the taxonomy from
// spec.md §7. Grounded on the teacher's internal/agent/errors.go tagged
// sentinel-wrapping pattern. It is an alias of models.ErrorKind so the
// event log's ErrorPayload.Kind and the in-process error type never drift
// apart.
type ErrorKind = models.ErrorKind

const (
	KindInvalidInput           = models.ErrInvalidInput
	KindBudgetExceeded         = models.ErrBudgetExceeded
	KindToolRejected           = models.ErrToolRejected
	KindToolSoftFailure        = models.ErrToolSoftFailure
	KindToolHardFailure        = models.ErrToolHardFailure
	KindModelUnavailable       = models.ErrModelUnavailable
	KindModelProtocolViolation = models.ErrModelProtocolViolation
	KindSandboxViolation       = models.ErrSandboxViolation
	KindCancelled              = models.ErrCancelled
	KindStorageFailure         = models.ErrStorageFailure
)

// Error is the tagged error type threaded through the orchestrator. Kind is
// fixed at the point the error is first raised ("tagged at source") and
// narrows only as it's classified on the way to a boundary, never widens.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, orchestrator.KindX) work by comparing kinds,
// matching the teacher's sentinel-comparison idiom without exporting one
// package-level sentinel per kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// Wrap tags err with kind, recording the operation name for diagnostics.
func Wrap(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// New constructs a tagged error directly from a message.
func New(kind ErrorKind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// KindOf extracts the ErrorKind from err, walking the chain with
// errors.As. Returns false if err was never tagged.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsRetryable reports whether the orchestrator's retry-with-backoff policy
// (internal/retry) applies to this error kind — only ModelUnavailable is
// transient by definition in spec.md §7.
func IsRetryable(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindModelUnavailable
}
