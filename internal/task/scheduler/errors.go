package scheduler

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	// ErrClock is returned by Run/Tick when the clock yields an unusable time.
	ErrClock = errors.New("clock returned zero time")
	// ErrInvariant is returned when a computed next due time is not after now.
	ErrInvariant = errors.New("next due time is not in the future")
	// ErrAlreadyRunning is returned by Run when the loop is already active.
	ErrAlreadyRunning = errors.New("scheduler already running")
)

// ValidationError reports a malformed schedule or job definition.
// It is always raised at construction time, before the loop starts.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func invalid(field string, value any, reason string) error {
	return errors.WithStack(&ValidationError{Field: field, Value: value, Reason: reason})
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ActionError wraps a failed job action: either a returned error or a recovered panic.
type ActionError struct {
	Job   string
	Err   error
	Panic any
	Stack string
}

func (e *ActionError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("job %q panicked: %v", e.Job, e.Panic)
	}
	return fmt.Sprintf("job %q failed: %v", e.Job, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

func invariantErr(job string, now, next time.Time) error {
	return errors.Wrapf(ErrInvariant, "job %q: next %s, now %s",
		job, next.Format(time.RFC3339), now.Format(time.RFC3339))
}
