package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/pushkit/pkg/async"
	"github.com/dmitrymomot/pushkit/pkg/logger"
	"github.com/dmitrymomot/pushkit/pkg/notifications"
	"github.com/dmitrymomot/pushkit/svc/directory"
)

// fanOut runs one task per mention entry and waits for all of them.
// The result has exactly len(ids) outcomes, in mention order.
func (p *Pipeline) fanOut(ctx context.Context, kind notifications.Kind, rec ContentRecord, author directory.Profile, ids []string) []Outcome {
	results := async.Map(ctx, ids, func(ctx context.Context, id string) (Outcome, error) {
		return p.deliver(ctx, kind, rec, author, id), nil
	})

	outcomes := make([]Outcome, len(results))
	for i, r := range results {
		if r.Err != nil {
			// The task never produced an outcome: it panicked or the
			// invocation was cancelled before it started.
			out := Outcome{RecipientID: ids[i], Status: StatusDeliveryFailed}
			if errors.Is(r.Err, async.ErrPanic) {
				out.Err = fmt.Errorf("%w: %w", ErrTaskPanicked, r.Err)
			} else {
				out.Err = fmt.Errorf("%w: %w", ErrTransport, r.Err)
			}
			p.record(ctx, kind, rec, out)
			outcomes[i] = out
			continue
		}
		outcomes[i] = r.Value
	}
	return outcomes
}

// deliver resolves one recipient and sends it the payload.
func (p *Pipeline) deliver(ctx context.Context, kind notifications.Kind, rec ContentRecord, author directory.Profile, recipientID string) Outcome {
	ctx, span := p.tracer.Start(ctx, "dispatch.recipient", trace.WithAttributes(
		attribute.String("record.id", rec.ID),
		attribute.String("recipient.id", recipientID),
	))
	defer span.End()

	out := p.attempt(ctx, kind, rec, author, recipientID)

	span.SetAttributes(attribute.String("dispatch.outcome", string(out.Status)))
	if out.Status == StatusDeliveryFailed {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, string(out.Status))
	}
	p.record(ctx, kind, rec, out)

	return out
}

func (p *Pipeline) attempt(ctx context.Context, kind notifications.Kind, rec ContentRecord, author directory.Profile, recipientID string) Outcome {
	out := Outcome{RecipientID: recipientID}

	profile, err := p.directory.Get(ctx, recipientID)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		out.Status = StatusRecipientNotFound
		out.Err = fmt.Errorf("%w: %q", ErrRecipientUnresolved, recipientID)
		return out
	case err != nil:
		out.Status = StatusRecipientNotFound
		out.Err = fmt.Errorf("%w: %q: %w", ErrRecipientUnresolved, recipientID, err)
		return out
	case !profile.HasDeliveryAddress():
		out.Status = StatusNoDeliveryAddress
		out.Err = fmt.Errorf("%w: %q", ErrNoAddress, recipientID)
		return out
	}

	payload, err := notifications.Build(kind, sourceFor(kind, rec, author))
	if err != nil {
		out.Status = StatusDeliveryFailed
		out.Err = err
		return out
	}

	if err := p.transport.Send(ctx, notifications.ToToken(profile.DeliveryToken), payload); err != nil {
		out.Status = StatusDeliveryFailed
		out.Err = fmt.Errorf("%w: %w", ErrTransport, err)
		if errors.Is(err, async.ErrPanic) {
			out.Err = fmt.Errorf("%w: %w", ErrTaskPanicked, err)
		}
		return out
	}

	out.Status = StatusDelivered
	return out
}

// record logs and counts one outcome.
func (p *Pipeline) record(ctx context.Context, kind notifications.Kind, rec ContentRecord, out Outcome) {
	p.metrics.outcome(kind, out.Status)

	attrs := []slog.Attr{
		logger.RecordID(rec.ID),
		logger.RecipientID(out.RecipientID),
		logger.Kind(kind.String()),
		logger.Outcome(string(out.Status)),
	}

	level := slog.LevelInfo
	msg := "notification delivered"
	switch out.Status {
	case StatusRecipientNotFound:
		level, msg = slog.LevelWarn, "recipient not found"
	case StatusNoDeliveryAddress:
		level, msg = slog.LevelWarn, "recipient has no delivery address"
	case StatusDeliveryFailed:
		level, msg = slog.LevelError, "notification delivery failed"
	}
	if out.Err != nil {
		attrs = append(attrs, logger.Error(out.Err))
	}

	p.logger.LogAttrs(ctx, level, msg, attrs...)
}
