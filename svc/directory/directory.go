package directory

import "context"

// Profile is a user as seen by the notification pipeline.
type Profile struct {
	ID          string
	DisplayName string
	IsAdmin     bool
	// DeliveryToken is the device push token. Empty means the user cannot
	// receive direct notifications.
	DeliveryToken string
}

// HasDeliveryAddress reports whether p can receive direct notifications.
func (p Profile) HasDeliveryAddress() bool {
	return p.DeliveryToken != ""
}

// Directory looks users up by id. Get returns ErrNotFound when no such
// user exists; any other error is a backend failure.
type Directory interface {
	Get(ctx context.Context, id string) (Profile, error)
}

// AdminStore mutates the admin flag of a user. It returns ErrNotFound when
// the user does not exist.
type AdminStore interface {
	SetAdmin(ctx context.Context, id string, isAdmin bool) error
}

// Store is a Directory that also owns the admin flag.
type Store interface {
	Directory
	AdminStore
}
