package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/pushkit/pkg/logger"
	"github.com/dmitrymomot/pushkit/svc/directory"
)

// Result is returned by a successful SetAdmin.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Service grants and revokes the admin flag that gates announcements.
type Service struct {
	users  directory.Store
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service over users.
func NewService(users directory.Store, opts ...Option) *Service {
	s := &Service{users: users, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("admin"))
	return s
}

// IsAdmin reports whether userID holds the admin flag. Unknown users are
// not admins.
func (s *Service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, ErrUnauthenticated
	}
	p, err := s.users.Get(ctx, userID)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return p.IsAdmin, nil
}

// SetAdmin sets the admin flag of userID on behalf of callerID. Only
// admins may call it, and a caller cannot revoke their own flag.
func (s *Service) SetAdmin(ctx context.Context, callerID, userID string, isAdmin bool) (Result, error) {
	if callerID == "" {
		return Result{}, ErrUnauthenticated
	}
	if userID == "" {
		return Result{}, ErrInvalidArgument
	}

	ok, err := s.IsAdmin(ctx, callerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "caller lookup failed", logger.UserID(callerID), logger.Error(err))
		return Result{}, err
	}
	if !ok {
		s.logger.WarnContext(ctx, "admin change by non-admin refused",
			logger.UserID(callerID),
			slog.String("target_id", userID),
		)
		return Result{}, ErrPermissionDenied
	}
	if callerID == userID && !isAdmin {
		return Result{}, ErrCannotRevokeSelf
	}

	if err := s.users.SetAdmin(ctx, userID, isAdmin); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Result{}, fmt.Errorf("%w: %q", ErrUserNotFound, userID)
		}
		s.logger.ErrorContext(ctx, "setting admin status failed", slog.String("target_id", userID), logger.Error(err))
		return Result{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	verb, message := "removed", "Admin status revoked successfully"
	if isAdmin {
		verb, message = "set", "Admin status granted successfully"
	}
	s.logger.InfoContext(ctx, "admin status "+verb,
		slog.String("target_id", userID),
		logger.UserID(callerID),
	)

	return Result{Success: true, Message: message}, nil
}
