package notifications

import "errors"

var (
	ErrUnknownKind        = errors.New("notifications: unknown notification kind")
	ErrInvalidDestination = errors.New("notifications: destination must have exactly one of token or topic")
	ErrSendTimeout        = errors.New("notifications: send timed out")
	ErrSendFailed         = errors.New("notifications: send failed")
)
