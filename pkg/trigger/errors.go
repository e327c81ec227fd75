package trigger

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoHandlers      = errors.New("trigger: no handlers registered")
	ErrUnroutable      = errors.New("trigger: no handler for collection")
	ErrInvalidEvent    = errors.New("trigger: invalid event")
	ErrSourceClosed    = errors.New("trigger: source closed")
	ErrHandlerPanicked = errors.New("trigger: handler panicked")
	ErrAlreadyRunning  = errors.New("trigger: worker already running")
	ErrExhausted       = errors.New("trigger: delivery attempts exhausted")

	// ErrPermanent marks a failure that redelivery cannot fix. Such events
	// are acknowledged instead of being left for redelivery.
	ErrPermanent = errors.New("trigger: permanent failure")
)

// Permanent wraps err so that IsPermanent reports true.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// HandlerError is one failed handler of a dispatch.
type HandlerError struct {
	Handler string
	Err     error
}

func (e HandlerError) Error() string { return e.Handler + ": " + e.Err.Error() }
func (e HandlerError) Unwrap() error { return e.Err }

// DispatchError collects the handlers that failed for one event.
type DispatchError struct {
	Collection string
	Failures   []HandlerError
}

func (e *DispatchError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("trigger: %d handler(s) failed for %s: %s", len(e.Failures), e.Collection, strings.Join(parts, "; "))
}

func (e *DispatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// IsPermanent reports whether err must not be redelivered. A
// *DispatchError is permanent only when every handler failure is.
func IsPermanent(err error) bool {
	var de *DispatchError
	if errors.As(err, &de) {
		for _, f := range de.Failures {
			if !IsPermanent(f.Err) {
				return false
			}
		}
		return len(de.Failures) > 0
	}
	return errors.Is(err, ErrPermanent) || errors.Is(err, ErrUnroutable) || errors.Is(err, ErrInvalidEvent)
}

// RetryHandlers returns the handlers of a *DispatchError whose failure is
// worth another attempt. It returns nil when err is not a *DispatchError,
// in which case the whole delivery is retried as it was.
func RetryHandlers(err error) []string {
	var de *DispatchError
	if !errors.As(err, &de) {
		return nil
	}
	var names []string
	for _, f := range de.Failures {
		if !IsPermanent(f.Err) {
			names = append(names, f.Handler)
		}
	}
	return names
}

// retryScope picks the handlers a redelivery of ev after cause must run.
func retryScope(ev Event, cause error) []string {
	if names := RetryHandlers(cause); len(names) > 0 {
		return names
	}
	return ev.Handlers
}
