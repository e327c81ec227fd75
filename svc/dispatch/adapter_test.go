package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/logger"
	"github.com/dmitrymomot/pushkit/pkg/notifications"
	"github.com/dmitrymomot/pushkit/pkg/trigger"
	"github.com/dmitrymomot/pushkit/svc/directory"
	"github.com/dmitrymomot/pushkit/svc/dispatch"
)

func newRouter(t *testing.T, dir directory.Directory, tr notifications.Transport) *trigger.Router {
	t.Helper()
	r := trigger.NewRouter()
	newPipeline(t, dir, tr).Register(r)
	return r
}

func TestRegister(t *testing.T) {
	t.Parallel()

	r := newRouter(t, directory.NewMemory(), notifications.NoOpTransport{})
	assert.ElementsMatch(t, []string{dispatch.CollectionMessages, dispatch.CollectionComments}, r.Collections())
}

func TestRouter_AnnouncementWithMentions(t *testing.T) {
	t.Parallel()

	dir := directory.NewMemory(
		boss,
		directory.Profile{ID: "bob", DeliveryToken: "tok-bob"},
		directory.Profile{ID: "carol", DeliveryToken: "tok-carol"},
		directory.Profile{ID: "dave"},
	)
	mem := notifications.NewMemoryTransport()
	r := newRouter(t, dir, mem)

	err := r.Dispatch(context.Background(), trigger.Event{
		ID:         "e1",
		Collection: dispatch.CollectionMessages,
		RecordID:   "m1",
		Data: map[string]any{
			"userId":   "boss",
			"content":  "all hands at noon",
			"mentions": []any{"bob", "carol", "dave"},
			"groupId":  "announcements",
		},
	})
	require.NoError(t, err)

	var direct, topic int
	for _, d := range mem.Deliveries() {
		if d.Destination.IsTopic() {
			topic++
			assert.Equal(t, notifications.KindAnnouncement, d.Payload.Kind())
			continue
		}
		direct++
		assert.Equal(t, notifications.KindMention, d.Payload.Kind())
	}
	assert.Equal(t, 2, direct)
	assert.Equal(t, 1, topic)
}

func TestRouter_Comment(t *testing.T) {
	t.Parallel()

	dir := directory.NewMemory(alice, directory.Profile{ID: "bob", DeliveryToken: "tok-bob"})
	mem := notifications.NewMemoryTransport()
	r := newRouter(t, dir, mem)

	err := r.Dispatch(context.Background(), trigger.Event{
		ID:         "e2",
		Collection: dispatch.CollectionComments,
		RecordID:   "c1",
		Data: map[string]any{
			"userId":    "alice",
			"content":   "see above",
			"mentions":  []any{"bob"},
			"messageId": "m1",
		},
	})
	require.NoError(t, err)

	deliveries := mem.Deliveries()
	require.Len(t, deliveries, 1)
	assert.Equal(t, "m1", deliveries[0].Payload.Data[notifications.AttrMessageID])
	assert.Equal(t, "c1", deliveries[0].Payload.Data[notifications.AttrCommentID])
}

func TestRouter_ErrorClassification(t *testing.T) {
	t.Parallel()

	t.Run("missing data is permanent", func(t *testing.T) {
		t.Parallel()
		r := newRouter(t, directory.NewMemory(), notifications.NoOpTransport{})

		err := r.Dispatch(context.Background(), trigger.Event{ID: "e1", Collection: dispatch.CollectionMessages, RecordID: "m1"})
		require.Error(t, err)
		assert.ErrorIs(t, err, dispatch.ErrRecordIncomplete)
		assert.True(t, trigger.IsPermanent(err))
	})

	t.Run("unknown author is permanent", func(t *testing.T) {
		t.Parallel()
		r := newRouter(t, directory.NewMemory(), notifications.NoOpTransport{})

		err := r.Dispatch(context.Background(), trigger.Event{
			ID:         "e1",
			Collection: dispatch.CollectionComments,
			RecordID:   "c1",
			Data:       map[string]any{"userId": "ghost", "mentions": []any{"bob"}},
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, dispatch.ErrAuthorUnresolved)
		assert.True(t, trigger.IsPermanent(err))
	})

	t.Run("directory outage is retried", func(t *testing.T) {
		t.Parallel()
		dir := new(mockDirectory)
		dir.On("Get", mock.Anything, "alice").Return(directory.Profile{}, assert.AnError)
		r := newRouter(t, dir, notifications.NoOpTransport{})

		err := r.Dispatch(context.Background(), trigger.Event{
			ID:         "e1",
			Collection: dispatch.CollectionComments,
			RecordID:   "c1",
			Data:       map[string]any{"userId": "alice", "mentions": []any{"bob"}},
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
		assert.False(t, trigger.IsPermanent(err))
	})

	t.Run("rejected announcement is not an error", func(t *testing.T) {
		t.Parallel()
		mem := notifications.NewMemoryTransport()
		r := newRouter(t, directory.NewMemory(alice), mem)

		err := r.Dispatch(context.Background(), trigger.Event{
			ID:         "e1",
			Collection: dispatch.CollectionMessages,
			RecordID:   "m1",
			Data:       map[string]any{"userId": "alice", "content": "hi", "groupId": "announcements"},
		})
		require.NoError(t, err)
		assert.Empty(t, mem.Deliveries())
	})
}

func TestWorker_TransientFailureRetriesOneHandler(t *testing.T) {
	t.Parallel()

	dir := &flakyDirectory{
		next: directory.NewMemory(boss, directory.Profile{ID: "bob", DeliveryToken: "tok-bob"}),
		id:   "boss",
	}
	mem := notifications.NewMemoryTransport()
	src := trigger.NewMemorySource(8, 3)
	w, err := trigger.NewWorker(src, newRouter(t, dir, mem), trigger.WithWorkerLogger(logger.Discard()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx)() }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	_, err = src.Publish(context.Background(), dispatch.CollectionMessages, "m1", map[string]any{
		"userId":   "boss",
		"content":  "all hands at noon",
		"mentions": []any{"bob"},
		"groupId":  "announcements",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return src.Stats().Acked == 1 }, 2*time.Second, 10*time.Millisecond)

	var direct, topic int
	for _, d := range mem.Deliveries() {
		if d.Destination.IsTopic() {
			topic++
		} else {
			direct++
		}
	}
	assert.Equal(t, 1, topic)
	assert.Equal(t, 1, direct)
	assert.Equal(t, int64(1), src.Stats().Nacked)
}
