package push

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/dmitrymomot/pushkit/pkg/logger"
	"github.com/dmitrymomot/pushkit/pkg/notifications"
)

// MessageSender is the subset of *messaging.Client used by FCM.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCM delivers notifications through Firebase Cloud Messaging.
type FCM struct {
	client MessageSender
	logger *slog.Logger
}

// FCMOption configures FCM.
type FCMOption func(*FCM)

// WithFCMLogger sets the logger.
func WithFCMLogger(l *slog.Logger) FCMOption {
	return func(f *FCM) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFCM initialises a Firebase app from cfg and returns an FCM transport.
// With an empty CredentialsFile, application default credentials are used.
func NewFCM(ctx context.Context, cfg FCMConfig, opts ...FCMOption) (*FCM, error) {
	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: firebase app: %w", ErrInvalidConfig, err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: firebase messaging: %w", ErrInvalidConfig, err)
	}
	return NewFCMWithClient(client, opts...), nil
}

// NewFCMWithClient wraps an existing messaging client.
func NewFCMWithClient(client MessageSender, opts ...FCMOption) *FCM {
	f := &FCM{client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Send delivers p to dst.
func (f *FCM) Send(ctx context.Context, dst notifications.Destination, p notifications.Payload) error {
	if err := dst.Validate(); err != nil {
		return err
	}

	id, err := f.client.Send(ctx, toMessage(dst, p))
	if err != nil {
		if messaging.IsUnregistered(err) {
			return fmt.Errorf("%w: %w", ErrUnregisteredToken, err)
		}
		return fmt.Errorf("push: fcm send to %s: %w", dst, err)
	}

	f.logger.LogAttrs(ctx, slog.LevelDebug, "fcm message accepted",
		logger.Channel(dst.String()),
		slog.String("message_id", id),
	)
	return nil
}

func toMessage(dst notifications.Destination, p notifications.Payload) *messaging.Message {
	return &messaging.Message{
		Token: dst.Token,
		Topic: dst.Topic,
		Notification: &messaging.Notification{
			Title: p.Title,
			Body:  p.Body,
		},
		Data: p.Data,
	}
}
