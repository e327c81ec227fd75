package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/dmitrymomot/pushkit/pkg/logger"
)

// ErrNATSDisconnected is returned by NATSHealthcheck.
var ErrNATSDisconnected = errors.New("trigger: nats connection is not established")

// Headers carried by republished messages.
const (
	HeaderHandlers = "Pushkit-Handlers"
	HeaderAttempt  = "Pushkit-Attempt"
)

// natsPublisher is satisfied by *nats.Conn.
type natsPublisher interface {
	PublishMsg(*nats.Msg) error
}

// ConnectNATS dials cfg.URL and keeps reconnecting forever.
func ConnectNATS(cfg NATSConfig, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("trigger: connect nats: %w", err)
	}
	return nc, nil
}

// NATSHealthcheck returns a readiness check for nc.
func NATSHealthcheck(nc *nats.Conn) func(context.Context) error {
	return func(context.Context) error {
		if nc == nil || nc.Status() != nats.CONNECTED {
			return ErrNATSDisconnected
		}
		return nil
	}
}

// NATSSource receives record-created envelopes on <prefix>.<collection>
// subjects through a queue group. Core NATS has no redelivery, so Ack is a
// no-op and Nack republishes the message with the failed handlers and the
// next attempt number in its headers. After MaxAttempts the event is
// logged and dropped.
type NATSSource struct {
	prefix      string
	pub         natsPublisher
	maxAttempts int
	ch          chan *nats.Msg
	subs        []*nats.Subscription
	logger      *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NATSOption configures a NATSSource.
type NATSOption func(*NATSSource)

// WithNATSLogger sets the logger.
func WithNATSLogger(l *slog.Logger) NATSOption {
	return func(s *NATSSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewNATSSource subscribes to every collection.
func NewNATSSource(nc *nats.Conn, cfg NATSConfig, collections []string, opts ...NATSOption) (*NATSSource, error) {
	if len(collections) == 0 {
		return nil, fmt.Errorf("trigger: no collections to subscribe")
	}
	s := &NATSSource{
		prefix:      cfg.SubjectPrefix,
		pub:         nc,
		maxAttempts: cfg.MaxAttempts,
		ch:          make(chan *nats.Msg, max(cfg.Buffer, 1)),
		logger:      slog.Default(),
		done:        make(chan struct{}),
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = 5
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, c := range collections {
		sub, err := nc.ChanQueueSubscribe(Subject(cfg.SubjectPrefix, c), cfg.QueueGroup, s.ch)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("trigger: subscribe %s: %w", c, err)
		}
		s.subs = append(s.subs, sub)
	}
	return s, nil
}

// Subject returns the subject for collection under prefix.
func Subject(prefix, collection string) string {
	if prefix == "" {
		return collection
	}
	return prefix + "." + collection
}

// PublishNATS publishes a created record for collection.
func PublishNATS(nc *nats.Conn, prefix, collection, recordID string, data map[string]any) error {
	body, err := EncodeEnvelope(recordID, data)
	if err != nil {
		return fmt.Errorf("trigger: encode envelope: %w", err)
	}
	msg := nats.NewMsg(Subject(prefix, collection))
	msg.Header.Set(nats.MsgIdHdr, uuid.NewString())
	msg.Data = body
	return nc.PublishMsg(msg)
}

func (s *NATSSource) Receive(ctx context.Context) (Delivery, error) {
	for {
		select {
		case <-s.done:
			return nil, ErrSourceClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		case msg := <-s.ch:
			ev, err := s.toEvent(msg)
			if err != nil {
				s.logger.WarnContext(ctx, "discarding malformed nats message",
					slog.String("subject", msg.Subject), logger.Error(err))
				continue
			}
			return natsDelivery{src: s, msg: msg, ev: ev}, nil
		}
	}
}

func (s *NATSSource) toEvent(msg *nats.Msg) (Event, error) {
	collection := msg.Subject
	if s.prefix != "" {
		collection = strings.TrimPrefix(msg.Subject, s.prefix+".")
	}
	id := ""
	if msg.Header != nil {
		id = msg.Header.Get(nats.MsgIdHdr)
	}
	if id == "" {
		id = uuid.NewString()
	}
	ev, err := decodeEnvelope(id, collection, msg.Data, time.Now())
	if err != nil {
		return Event{}, err
	}

	ev.Attempt = 1
	if raw := msg.Header.Get(HeaderAttempt); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Event{}, fmt.Errorf("%w: bad %s header %q", ErrInvalidEvent, HeaderAttempt, raw)
		}
		ev.Attempt = n
	}
	if raw := msg.Header.Get(HeaderHandlers); raw != "" {
		ev.Handlers = strings.Split(raw, ",")
	}
	return ev, nil
}

// retryMsg copies msg for another attempt restricted to handlers.
func retryMsg(msg *nats.Msg, id string, handlers []string, attempt int) *nats.Msg {
	out := nats.NewMsg(msg.Subject)
	out.Header.Set(nats.MsgIdHdr, id)
	out.Header.Set(HeaderAttempt, strconv.Itoa(attempt))
	if len(handlers) > 0 {
		out.Header.Set(HeaderHandlers, strings.Join(handlers, ","))
	}
	out.Data = msg.Data
	return out
}

// Close unsubscribes. The connection is owned by the caller.
func (s *NATSSource) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		close(s.done)
		for _, sub := range s.subs {
			if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

type natsDelivery struct {
	src *NATSSource
	msg *nats.Msg
	ev  Event
}

func (d natsDelivery) Event() Event              { return d.ev }
func (d natsDelivery) Ack(context.Context) error { return nil }

func (d natsDelivery) Nack(ctx context.Context, cause error) error {
	s := d.src
	if d.ev.Attempt >= s.maxAttempts {
		s.logger.ErrorContext(ctx, "dropping event after last attempt",
			logger.EventID(d.ev.ID),
			logger.Collection(d.ev.Collection),
			slog.Int("attempt", d.ev.Attempt),
			logger.Error(cause),
		)
		return nil
	}
	msg := retryMsg(d.msg, d.ev.ID, retryScope(d.ev, cause), d.ev.Attempt+1)
	if err := s.pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("trigger: republish %s: %w", d.ev.ID, err)
	}
	return nil
}
