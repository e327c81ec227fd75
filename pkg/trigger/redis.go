package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/pushkit/pkg/logger"
)

// Stream entry fields. Producers set FieldRecordID and FieldData; the rest
// are written by the source on retries and dead letters.
const (
	FieldRecordID   = "record_id"
	FieldData       = "data"
	FieldHandlers   = "handlers"
	FieldAttempt    = "attempt"
	FieldOriginID   = "origin_id"
	FieldCollection = "collection"
	FieldError      = "error"
)

// RedisStreamSource consumes record-created entries from Redis Streams
// through a consumer group.
//
// A nacked entry is appended again to its stream, scoped to the handlers
// that failed and with its attempt number raised, and the original is
// acked. Entries left pending by a consumer that died are claimed again
// once idle for ClaimMinIdle; their Redis delivery count adds to the
// attempt number. Past MaxAttempts an entry is moved to DeadLetterStream.
type RedisStreamSource struct {
	client   redis.Cmdable
	cfg      RedisConfig
	consumer string
	logger   *slog.Logger

	mu        sync.Mutex
	buf       []*redisDelivery
	lastClaim time.Time
	closed    atomic.Bool
}

// RedisOption configures a RedisStreamSource.
type RedisOption func(*RedisStreamSource)

// WithRedisLogger sets the logger.
func WithRedisLogger(l *slog.Logger) RedisOption {
	return func(s *RedisStreamSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewRedisStreamSource creates the consumer group on every configured
// stream (creating missing streams) and returns the source.
func NewRedisStreamSource(ctx context.Context, client redis.Cmdable, cfg RedisConfig, opts ...RedisOption) (*RedisStreamSource, error) {
	if len(cfg.Streams) == 0 {
		return nil, fmt.Errorf("trigger: no streams configured")
	}
	if cfg.Group == "" {
		cfg.Group = "pushkit"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.DeadLetterStream == "" {
		cfg.DeadLetterStream = cfg.StreamPrefix + "dead-letter"
	}

	s := &RedisStreamSource{
		client:   client,
		cfg:      cfg,
		consumer: cfg.Consumer,
		logger:   slog.Default(),
	}
	if s.consumer == "" {
		host, _ := os.Hostname()
		s.consumer = host + "-" + uuid.NewString()[:8]
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, stream := range s.streamKeys() {
		err := client.XGroupCreateMkStream(ctx, stream, cfg.Group, "$").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			return nil, fmt.Errorf("trigger: create consumer group on %s: %w", stream, err)
		}
	}
	return s, nil
}

func (s *RedisStreamSource) streamKeys() []string {
	keys := make([]string, len(s.cfg.Streams))
	for i, c := range s.cfg.Streams {
		keys[i] = s.cfg.StreamPrefix + c
	}
	return keys
}

// Publish appends a created record to the collection stream.
func (s *RedisStreamSource) Publish(ctx context.Context, collection, recordID string, data map[string]any) (string, error) {
	values := map[string]any{FieldRecordID: recordID}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return "", fmt.Errorf("trigger: marshal record: %w", err)
		}
		values[FieldData] = string(raw)
	}
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.cfg.StreamPrefix + collection,
		Values: values,
	}).Result()
}

func (s *RedisStreamSource) Receive(ctx context.Context) (Delivery, error) {
	for {
		if s.closed.Load() {
			return nil, ErrSourceClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if d := s.pop(); d != nil {
			return d, nil
		}

		if s.cfg.ClaimInterval > 0 && time.Since(s.lastClaim) >= s.cfg.ClaimInterval {
			s.lastClaim = time.Now()
			if err := s.claim(ctx); err != nil {
				s.logger.ErrorContext(ctx, "reclaiming stale entries failed", logger.Error(err))
			}
			continue
		}

		if err := s.read(ctx); err != nil {
			return nil, err
		}
	}
}

func (s *RedisStreamSource) pop() *redisDelivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) == 0 {
		return nil
	}
	d := s.buf[0]
	s.buf = s.buf[1:]
	return d
}

func (s *RedisStreamSource) push(ctx context.Context, stream string, msgs []redis.XMessage) {
	collection := strings.TrimPrefix(stream, s.cfg.StreamPrefix)
	now := time.Now()
	for _, msg := range msgs {
		ev, err := entryToEvent(collection, msg, now)
		if err != nil {
			s.logger.WarnContext(ctx, "discarding malformed stream entry",
				slog.String("stream", stream), logger.EventID(msg.ID), logger.Error(err))
			_ = s.client.XAck(ctx, stream, s.cfg.Group, msg.ID).Err()
			continue
		}
		s.mu.Lock()
		s.buf = append(s.buf, &redisDelivery{src: s, stream: stream, values: msg.Values, ev: ev})
		s.mu.Unlock()
	}
}

func (s *RedisStreamSource) read(ctx context.Context) error {
	keys := s.streamKeys()
	streams := make([]string, 0, 2*len(keys))
	streams = append(streams, keys...)
	for range keys {
		streams = append(streams, ">")
	}

	res, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.cfg.Group,
		Consumer: s.consumer,
		Streams:  streams,
		Count:    s.cfg.BatchSize,
		Block:    s.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("trigger: xreadgroup: %w", err)
	}
	for _, st := range res {
		s.push(ctx, st.Stream, st.Messages)
	}
	return nil
}

func (s *RedisStreamSource) claim(ctx context.Context) error {
	var errs []error
	for _, stream := range s.streamKeys() {
		msgs, _, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   stream,
			Group:    s.cfg.Group,
			Consumer: s.consumer,
			MinIdle:  s.cfg.ClaimMinIdle,
			Start:    "0-0",
			Count:    s.cfg.BatchSize,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			errs = append(errs, fmt.Errorf("%s: %w", stream, err))
			continue
		}
		if len(msgs) > 0 {
			s.logger.InfoContext(ctx, "reclaimed pending stream entries",
				slog.String("stream", stream), logger.Count(len(msgs)))
		}
		s.push(ctx, stream, s.screenClaimed(ctx, stream, msgs))
	}
	return errors.Join(errs...)
}

// screenClaimed folds the Redis delivery count of every reclaimed entry
// into its attempt number and dead-letters the entries past MaxAttempts.
func (s *RedisStreamSource) screenClaimed(ctx context.Context, stream string, msgs []redis.XMessage) []redis.XMessage {
	kept := make([]redis.XMessage, 0, len(msgs))
	for _, msg := range msgs {
		pending, err := s.client.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: stream,
			Group:  s.cfg.Group,
			Start:  msg.ID,
			End:    msg.ID,
			Count:  1,
		}).Result()
		if err != nil || len(pending) == 0 {
			if err != nil {
				s.logger.WarnContext(ctx, "reading delivery count failed",
					slog.String("stream", stream), logger.EventID(msg.ID), logger.Error(err))
			}
			kept = append(kept, msg)
			continue
		}

		attempt := entryAttempt(msg.Values) + int(pending[0].RetryCount) - 1
		msg.Values = maps.Clone(msg.Values)
		msg.Values[FieldAttempt] = strconv.Itoa(attempt)
		if attempt <= s.cfg.MaxAttempts {
			kept = append(kept, msg)
			continue
		}

		d := &redisDelivery{src: s, stream: stream, values: msg.Values, ev: Event{
			ID:         msg.ID,
			Collection: strings.TrimPrefix(stream, s.cfg.StreamPrefix),
			Handlers:   entryHandlers(msg.Values),
			Attempt:    attempt,
		}}
		cause := fmt.Errorf("%w: delivered %d times", ErrExhausted, pending[0].RetryCount)
		if err := s.deadLetter(ctx, d, d.ev.Handlers, cause); err != nil {
			s.logger.ErrorContext(ctx, "dead-lettering stream entry failed",
				slog.String("stream", stream), logger.EventID(msg.ID), logger.Error(err))
		}
	}
	return kept
}

// deadLetter copies the entry to DeadLetterStream and acks the original.
func (s *RedisStreamSource) deadLetter(ctx context.Context, d *redisDelivery, handlers []string, cause error) error {
	values := entryValues(d.values, d.ev.ID, handlers, d.ev.Attempt)
	values[FieldCollection] = d.ev.Collection
	values[FieldError] = cause.Error()

	if err := s.client.XAdd(ctx, &redis.XAddArgs{Stream: s.cfg.DeadLetterStream, Values: values}).Err(); err != nil {
		return fmt.Errorf("trigger: dead-letter %s: %w", d.ev.ID, err)
	}
	s.logger.ErrorContext(ctx, "event moved to dead-letter stream",
		logger.EventID(d.ev.ID),
		logger.Collection(d.ev.Collection),
		slog.String("dead_letter_stream", s.cfg.DeadLetterStream),
		slog.Int("attempt", d.ev.Attempt),
		logger.Error(cause),
	)
	return d.Ack(ctx)
}

// Close stops Receive. The Redis client is owned by the caller.
func (s *RedisStreamSource) Close() error {
	s.closed.Store(true)
	return nil
}

// entryToEvent converts a stream entry. A missing data field yields an
// event without payload.
func entryToEvent(collection string, msg redis.XMessage, now time.Time) (Event, error) {
	recordID, _ := msg.Values[FieldRecordID].(string)
	if recordID == "" {
		return Event{}, fmt.Errorf("%w: missing %s", ErrInvalidEvent, FieldRecordID)
	}
	raw, _ := msg.Values[FieldData].(string)
	data, err := decodeData([]byte(raw))
	if err != nil {
		return Event{}, err
	}
	attempt := 1
	if raw, ok := msg.Values[FieldAttempt].(string); ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Event{}, fmt.Errorf("%w: bad %s %q", ErrInvalidEvent, FieldAttempt, raw)
		}
		attempt = n
	}
	return Event{
		ID:         msg.ID,
		Collection: collection,
		RecordID:   recordID,
		Data:       data,
		ReceivedAt: now,
		Handlers:   entryHandlers(msg.Values),
		Attempt:    attempt,
	}, nil
}

func entryHandlers(values map[string]any) []string {
	raw, _ := values[FieldHandlers].(string)
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// entryAttempt reads the attempt field leniently, defaulting to 1.
func entryAttempt(values map[string]any) int {
	raw, _ := values[FieldAttempt].(string)
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	return 1
}

// entryValues builds the fields of a retried or dead-lettered copy of the
// entry id holding base.
func entryValues(base map[string]any, id string, handlers []string, attempt int) map[string]any {
	values := map[string]any{
		FieldRecordID: base[FieldRecordID],
		FieldAttempt:  strconv.Itoa(attempt),
		FieldOriginID: id,
	}
	if origin, ok := base[FieldOriginID].(string); ok && origin != "" {
		values[FieldOriginID] = origin
	}
	if data, ok := base[FieldData]; ok {
		values[FieldData] = data
	}
	if len(handlers) > 0 {
		values[FieldHandlers] = strings.Join(handlers, ",")
	}
	return values
}

type redisDelivery struct {
	src    *RedisStreamSource
	stream string
	values map[string]any
	ev     Event
}

func (d *redisDelivery) Event() Event { return d.ev }

func (d *redisDelivery) Ack(ctx context.Context) error {
	return d.src.client.XAck(ctx, d.stream, d.src.cfg.Group, d.ev.ID).Err()
}

// Nack appends a retry of the entry scoped to the failed handlers and acks
// the original, or dead-letters it once MaxAttempts is reached. When the
// append fails the entry stays pending and is reclaimed later.
func (d *redisDelivery) Nack(ctx context.Context, cause error) error {
	if cause == nil {
		cause = ErrExhausted
	}
	s := d.src
	handlers := retryScope(d.ev, cause)
	if d.ev.Attempt >= s.cfg.MaxAttempts {
		return s.deadLetter(ctx, d, handlers, fmt.Errorf("%w: %w", ErrExhausted, cause))
	}

	values := entryValues(d.values, d.ev.ID, handlers, d.ev.Attempt+1)
	if err := s.client.XAdd(ctx, &redis.XAddArgs{Stream: d.stream, Values: values}).Err(); err != nil {
		return fmt.Errorf("trigger: requeue %s: %w", d.ev.ID, err)
	}
	return d.Ack(ctx)
}
