// Package admin grants and revokes the admin flag of users.
//
// The admin flag decides who may broadcast announcements. Only existing
// admins can change it, and an admin cannot revoke their own flag.
package admin
