package dispatch

import "errors"

var (
	// ErrMissingDependency is returned by New for a nil collaborator.
	ErrMissingDependency = errors.New("dispatch: missing dependency")

	// ErrRecordIncomplete means the event carried no record data.
	ErrRecordIncomplete = errors.New("dispatch: record data missing")
	// ErrAuthorUnresolved aborts the whole invocation.
	ErrAuthorUnresolved = errors.New("dispatch: author could not be resolved")

	// Per-recipient reasons, recorded in outcomes and never returned.
	ErrRecipientUnresolved = errors.New("dispatch: recipient could not be resolved")
	ErrNoAddress           = errors.New("dispatch: recipient has no delivery address")
	ErrTransport           = errors.New("dispatch: transport failed")
	ErrTaskPanicked        = errors.New("dispatch: recipient task panicked")

	// ErrUnauthorized is recorded when a non-admin posts an announcement.
	ErrUnauthorized = errors.New("dispatch: author is not allowed to broadcast")
)
