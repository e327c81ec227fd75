// Package jwt issues and verifies HS256 JSON Web Tokens and provides the
// HTTP middleware that authenticates callers of the admin endpoints.
//
//	svc, err := jwt.NewFromString(secret, jwt.WithIssuer("pushkit"))
//	token, err := svc.Generate(userID, displayName)
//
//	r.With(jwt.Middleware(svc)).Post("/admin/users/{id}/admin", h)
//
// Inside a protected handler the caller is available through UserID or
// GetClaims.
package jwt
