// Package directory resolves user ids to the profile data the notification
// pipeline needs: display name, admin flag and device push token.
//
// Backends:
//
//   - Mongo reads the users collection ({_id, name, isAdmin, fcmToken}).
//   - Postgres reads the users table; its goose schema is embedded in
//     Migrations.
//   - Memory keeps profiles in a map.
//
// Cached puts an expiring LRU in front of any of them.
//
// A missing user is reported as ErrNotFound. A user without a push token
// is a valid profile whose HasDeliveryAddress returns false; callers must
// treat the two cases separately.
package directory
