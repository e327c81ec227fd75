package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/pushkit/pkg/logger"
	"github.com/dmitrymomot/pushkit/pkg/notifications"
)

// IsAnnouncement reports whether rec is posted to the announcements group.
func (p *Pipeline) IsAnnouncement(rec ContentRecord) bool {
	return rec.GroupID == p.announcementsGroup
}

// HandleAnnouncement broadcasts a message posted to the announcements group
// once, to the announcements topic, if its author is an admin.
//
// Records outside the group are skipped. A non-admin author or a transport
// failure is recorded in the result and never returned as an error; only
// an unresolved author is.
func (p *Pipeline) HandleAnnouncement(ctx context.Context, rec ContentRecord) (BroadcastResult, error) {
	const kind = notifications.KindAnnouncement

	res := BroadcastResult{RecordID: rec.ID, Status: BroadcastSkipped}
	if !p.IsAnnouncement(rec) {
		return res, nil
	}

	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "dispatch.announcement", trace.WithAttributes(
		attribute.String("record.id", rec.ID),
		attribute.String("author.id", rec.AuthorID),
	))
	defer span.End()

	author, err := p.resolveAuthor(ctx, kind, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "author unresolved")
		p.metrics.invocation(kind, resultAborted, time.Since(start))
		res.Status, res.Err = BroadcastAborted, err
		return res, err
	}

	if !author.IsAdmin {
		res.Status = BroadcastRejected
		res.Err = fmt.Errorf("%w: %q", ErrUnauthorized, rec.AuthorID)
		span.SetAttributes(attribute.String("broadcast.status", string(res.Status)))
		p.metrics.rejectedAnnouncement()
		p.metrics.invocation(kind, resultRejected, time.Since(start))
		p.logger.LogAttrs(ctx, slog.LevelError, "announcement from non-admin user dropped",
			logger.RecordID(rec.ID),
			logger.AuthorID(rec.AuthorID),
		)
		return res, nil
	}

	res.Topic = p.announcementsTopic
	payload, err := notifications.Build(kind, sourceFor(kind, rec, author))
	if err == nil {
		err = p.transport.Send(ctx, notifications.ToTopic(res.Topic), payload)
	}
	if err != nil {
		res.Status = BroadcastFailed
		res.Err = fmt.Errorf("%w: %w", ErrTransport, err)
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, string(res.Status))
		p.metrics.invocation(kind, resultFailed, time.Since(start))
		p.logger.LogAttrs(ctx, slog.LevelError, "announcement broadcast failed",
			logger.RecordID(rec.ID),
			logger.Channel(res.Topic),
			logger.Error(res.Err),
		)
		return res, nil
	}

	res.Status = BroadcastSent
	span.SetAttributes(attribute.String("broadcast.status", string(res.Status)))
	p.metrics.invocation(kind, resultOK, time.Since(start))
	p.logger.LogAttrs(ctx, slog.LevelInfo, "announcement broadcast",
		logger.RecordID(rec.ID),
		logger.Channel(res.Topic),
		logger.Duration(time.Since(start)),
	)
	return res, nil
}
