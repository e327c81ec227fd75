package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/pushkit/pkg/logger"
	"github.com/dmitrymomot/pushkit/pkg/trigger"
	"github.com/dmitrymomot/pushkit/svc/directory"
)

// Handler names registered by Register.
const (
	HandlerMentions        = "mentions"
	HandlerAnnouncements   = "announcements"
	HandlerCommentMentions = "comment-mentions"
)

// Register subscribes the pipeline to record creation events.
// A created message feeds both the mention and the announcement handler;
// they run independently, so an announcement that mentions users is
// delivered to them directly and to the topic.
func (p *Pipeline) Register(r *trigger.Router) {
	r.HandleFunc(CollectionMessages, HandlerMentions, p.onMessage)
	r.HandleFunc(CollectionMessages, HandlerAnnouncements, p.onAnnouncement)
	r.HandleFunc(CollectionComments, HandlerCommentMentions, p.onComment)
}

func (p *Pipeline) onMessage(ctx context.Context, ev trigger.Event) error {
	rec, err := MessageFromData(ev.RecordID, ev.Data)
	if err != nil {
		return p.eventError(ctx, ev, err)
	}
	_, err = p.HandleMessage(ctx, rec)
	return p.eventError(ctx, ev, err)
}

func (p *Pipeline) onComment(ctx context.Context, ev trigger.Event) error {
	rec, err := CommentFromData(ev.RecordID, ev.Data)
	if err != nil {
		return p.eventError(ctx, ev, err)
	}
	_, err = p.HandleComment(ctx, rec)
	return p.eventError(ctx, ev, err)
}

func (p *Pipeline) onAnnouncement(ctx context.Context, ev trigger.Event) error {
	rec, err := MessageFromData(ev.RecordID, ev.Data)
	if err != nil {
		return p.eventError(ctx, ev, err)
	}
	_, err = p.HandleAnnouncement(ctx, rec)
	return p.eventError(ctx, ev, err)
}

// eventError classifies an invocation error for the trigger worker.
// Missing data and unknown authors cannot be fixed by redelivery; a failing
// directory backend can.
func (p *Pipeline) eventError(ctx context.Context, ev trigger.Event, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRecordIncomplete):
		p.logger.LogAttrs(ctx, slog.LevelError, "event carried no record data",
			logger.EventID(ev.ID),
			logger.Collection(ev.Collection),
			logger.RecordID(ev.RecordID),
		)
		return trigger.Permanent(err)
	case errors.Is(err, directory.ErrNotFound):
		return trigger.Permanent(err)
	}
	return err
}
