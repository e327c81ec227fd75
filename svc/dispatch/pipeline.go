package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/pushkit/pkg/logger"
	"github.com/dmitrymomot/pushkit/pkg/notifications"
	"github.com/dmitrymomot/pushkit/svc/directory"
)

const (
	// DefaultAnnouncementsGroup is the group whose messages are broadcast.
	DefaultAnnouncementsGroup = "announcements"
	// DefaultAnnouncementsTopic is the broadcast channel announcements go to.
	DefaultAnnouncementsTopic = "announcements"
	// DefaultSendTimeout bounds every transport call.
	DefaultSendTimeout = 10 * time.Second

	tracerName = "github.com/dmitrymomot/pushkit/svc/dispatch"
)

// Pipeline turns created records into push notifications.
// It holds no per-event state and is safe for concurrent use.
type Pipeline struct {
	directory directory.Directory
	transport notifications.Transport

	sendTimeout        time.Duration
	announcementsGroup string
	announcementsTopic string

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithSendTimeout sets the per-call transport deadline.
// Zero disables the bound and leaves it to the transport.
func WithSendTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.sendTimeout = d
	}
}

// WithAnnouncementsGroup sets the group whose messages are broadcast.
func WithAnnouncementsGroup(group string) Option {
	return func(p *Pipeline) {
		if group != "" {
			p.announcementsGroup = group
		}
	}
}

// WithAnnouncementsTopic sets the broadcast channel for announcements.
func WithAnnouncementsTopic(topic string) Option {
	return func(p *Pipeline) {
		if topic != "" {
			p.announcementsTopic = topic
		}
	}
}

// WithTracer sets the tracer used for invocation and recipient spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithMetrics sets the collectors. Without it nothing is recorded.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New creates a Pipeline reading users from dir and sending through tr.
func New(dir directory.Directory, tr notifications.Transport, opts ...Option) (*Pipeline, error) {
	if dir == nil {
		return nil, fmt.Errorf("%w: directory", ErrMissingDependency)
	}
	if tr == nil {
		return nil, fmt.Errorf("%w: transport", ErrMissingDependency)
	}

	p := &Pipeline{
		directory:          dir,
		sendTimeout:        DefaultSendTimeout,
		announcementsGroup: DefaultAnnouncementsGroup,
		announcementsTopic: DefaultAnnouncementsTopic,
		logger:             slog.Default(),
		tracer:             otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.transport = notifications.WithTimeout(tr, p.sendTimeout)
	p.logger = p.logger.With(logger.Component("dispatch"))

	return p, nil
}

// HandleMessage notifies every user mentioned in a created message.
func (p *Pipeline) HandleMessage(ctx context.Context, rec ContentRecord) (Report, error) {
	return p.notifyMentions(ctx, notifications.KindMention, rec)
}

// HandleComment notifies every user mentioned in a created comment.
func (p *Pipeline) HandleComment(ctx context.Context, rec ContentRecord) (Report, error) {
	return p.notifyMentions(ctx, notifications.KindCommentMention, rec)
}

func (p *Pipeline) notifyMentions(ctx context.Context, kind notifications.Kind, rec ContentRecord) (Report, error) {
	start := time.Now()
	report := Report{RecordID: rec.ID, Kind: kind, Outcomes: []Outcome{}}

	ids := ResolveMentions(rec)
	if len(ids) == 0 {
		p.metrics.invocation(kind, resultEmpty, time.Since(start))
		return report, nil
	}

	ctx, span := p.tracer.Start(ctx, "dispatch."+kind.String(), trace.WithAttributes(
		attribute.String("record.id", rec.ID),
		attribute.Int("mentions.count", len(ids)),
	))
	defer span.End()

	author, err := p.resolveAuthor(ctx, kind, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "author unresolved")
		p.metrics.invocation(kind, resultAborted, time.Since(start))
		return report, err
	}

	report.Outcomes = p.fanOut(ctx, kind, rec, author, ids)

	sum := report.Summary()
	span.SetAttributes(
		attribute.Int("outcomes.delivered", sum.Delivered),
		attribute.Int("outcomes.failed", sum.Failed),
	)
	p.metrics.invocation(kind, resultOK, time.Since(start))
	p.logger.LogAttrs(ctx, slog.LevelInfo, "mention fan-out finished",
		logger.RecordID(rec.ID),
		logger.Kind(kind.String()),
		slog.Int("total", sum.Total),
		slog.Int("delivered", sum.Delivered),
		slog.Int("not_found", sum.NotFound),
		slog.Int("no_address", sum.NoAddress),
		slog.Int("failed", sum.Failed),
		logger.Duration(time.Since(start)),
	)

	return report, nil
}

// resolveAuthor looks the record author up. Any failure aborts the
// invocation: the payload title needs the author's name.
func (p *Pipeline) resolveAuthor(ctx context.Context, kind notifications.Kind, rec ContentRecord) (directory.Profile, error) {
	author, err := p.directory.Get(ctx, rec.AuthorID)
	if err != nil {
		p.logger.LogAttrs(ctx, slog.LevelError, "author lookup failed",
			logger.RecordID(rec.ID),
			logger.AuthorID(rec.AuthorID),
			logger.Kind(kind.String()),
			logger.Error(err),
		)
		return directory.Profile{}, fmt.Errorf("%w: %q: %w", ErrAuthorUnresolved, rec.AuthorID, err)
	}
	return author, nil
}

// sourceFor maps a record and its author to payload builder input.
func sourceFor(kind notifications.Kind, rec ContentRecord, author directory.Profile) notifications.Source {
	src := notifications.Source{
		AuthorID:   rec.AuthorID,
		AuthorName: author.DisplayName,
		Content:    rec.Content,
		MessageID:  rec.ID,
		GroupID:    rec.GroupID,
	}
	if kind == notifications.KindCommentMention {
		src.MessageID = rec.ParentID
		src.CommentID = rec.ID
	}
	return src
}
