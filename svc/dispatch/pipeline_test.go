package dispatch_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/notifications"
	"github.com/dmitrymomot/pushkit/svc/directory"
	"github.com/dmitrymomot/pushkit/svc/dispatch"
)

func TestNew_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := dispatch.New(nil, notifications.NoOpTransport{})
	assert.ErrorIs(t, err, dispatch.ErrMissingDependency)

	_, err = dispatch.New(directory.NewMemory(), nil)
	assert.ErrorIs(t, err, dispatch.ErrMissingDependency)
}

func TestHandleMessage_NoMentions(t *testing.T) {
	t.Parallel()

	for name, mentions := range map[string][]string{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			dir := new(mockDirectory)
			tr := new(mockTransport)
			p := newPipeline(t, dir, tr)

			report, err := p.HandleMessage(context.Background(), dispatch.ContentRecord{
				ID:       "m1",
				AuthorID: "alice",
				Content:  "hello",
				Mentions: mentions,
			})
			require.NoError(t, err)
			assert.NotNil(t, report.Outcomes)
			assert.Empty(t, report.Outcomes)

			dir.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
			tr.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHandleMessage_MixedRecipients(t *testing.T) {
	t.Parallel()

	dir := new(mockDirectory)
	dir.On("Get", mock.Anything, "author").Return(directory.Profile{ID: "author", DisplayName: "Alice"}, nil).Once()
	dir.On("Get", mock.Anything, "A").Return(directory.Profile{ID: "A", DisplayName: "No Token"}, nil).Once()
	dir.On("Get", mock.Anything, "B").Return(directory.Profile{}, directory.ErrNotFound).Once()
	dir.On("Get", mock.Anything, "C").Return(directory.Profile{ID: "C", DeliveryToken: "tok-c"}, nil).Once()

	tr := new(mockTransport)
	tr.On("Send", mock.Anything, notifications.ToToken("tok-c"), mock.MatchedBy(func(p notifications.Payload) bool {
		return p.Title == "Alice mentioned you" &&
			p.Body == "ping @A @B @C" &&
			p.Data[notifications.AttrType] == "mention" &&
			p.Data[notifications.AttrMessageID] == "m1" &&
			p.Data[notifications.AttrFromUserID] == "author" &&
			p.Data[notifications.AttrClickAction] == notifications.ClickAction
	})).Return(nil).Once()

	p := newPipeline(t, dir, tr)
	report, err := p.HandleMessage(context.Background(), dispatch.ContentRecord{
		ID:       "m1",
		AuthorID: "author",
		Content:  "ping @A @B @C",
		Mentions: []string{"A", "B", "C"},
	})
	require.NoError(t, err)

	assert.Equal(t, []dispatch.Status{
		dispatch.StatusNoDeliveryAddress,
		dispatch.StatusRecipientNotFound,
		dispatch.StatusDelivered,
	}, statuses(report))
	assert.ErrorIs(t, report.Outcomes[0].Err, dispatch.ErrNoAddress)
	assert.ErrorIs(t, report.Outcomes[1].Err, dispatch.ErrRecipientUnresolved)
	assert.NoError(t, report.Outcomes[2].Err)

	assert.Equal(t, dispatch.Summary{Total: 3, Delivered: 1, NotFound: 1, NoAddress: 1}, report.Summary())

	dir.AssertExpectations(t)
	tr.AssertExpectations(t)
	tr.AssertNumberOfCalls(t, "Send", 1)
}

func TestHandleMessage_AuthorNotFound(t *testing.T) {
	t.Parallel()

	dir := new(mockDirectory)
	dir.On("Get", mock.Anything, "ghost").Return(directory.Profile{}, directory.ErrNotFound).Once()
	tr := new(mockTransport)

	p := newPipeline(t, dir, tr)
	report, err := p.HandleMessage(context.Background(), dispatch.ContentRecord{
		ID:       "m1",
		AuthorID: "ghost",
		Mentions: []string{"A", "B"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, dispatch.ErrAuthorUnresolved)
	assert.ErrorIs(t, err, directory.ErrNotFound)
	assert.Empty(t, report.Outcomes)

	dir.AssertNumberOfCalls(t, "Get", 1)
	tr.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleMessage_RecipientLookupError(t *testing.T) {
	t.Parallel()

	dir := new(mockDirectory)
	dir.On("Get", mock.Anything, "author").Return(alice, nil)
	dir.On("Get", mock.Anything, "flaky").Return(directory.Profile{}, assert.AnError)
	tr := new(mockTransport)

	p := newPipeline(t, dir, tr)
	report, err := p.HandleMessage(context.Background(), dispatch.ContentRecord{
		ID:       "m1",
		AuthorID: "author",
		Mentions: []string{"flaky"},
	})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, dispatch.StatusRecipientNotFound, report.Outcomes[0].Status)
	assert.ErrorIs(t, report.Outcomes[0].Err, assert.AnError)
	tr.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleMessage_TransportFailureIsIsolated(t *testing.T) {
	t.Parallel()

	dir := directory.NewMemory(
		alice,
		directory.Profile{ID: "bob", DeliveryToken: "tok-bob"},
		directory.Profile{ID: "carol", DeliveryToken: "tok-carol"},
	)
	mem := notifications.NewMemoryTransport()
	mem.FailFor(notifications.ToToken("tok-bob"), nil)

	p := newPipeline(t, dir, mem)
	report, err := p.HandleMessage(context.Background(), dispatch.ContentRecord{
		ID:       "m1",
		AuthorID: "alice",
		Content:  "hi",
		Mentions: []string{"bob", "carol"},
	})
	require.NoError(t, err)

	assert.Equal(t, []dispatch.Status{dispatch.StatusDeliveryFailed, dispatch.StatusDelivered}, statuses(report))
	assert.ErrorIs(t, report.Outcomes[0].Err, dispatch.ErrTransport)
	assert.ErrorIs(t, report.Outcomes[0].Err, notifications.ErrSendFailed)

	deliveries := mem.Deliveries()
	require.Len(t, deliveries, 1)
	assert.Equal(t, "tok-carol", deliveries[0].Destination.Token)
}

func TestHandleMessage_DuplicateMentions(t *testing.T) {
	t.Parallel()

	dir := directory.NewMemory(alice, directory.Profile{ID: "bob", DeliveryToken: "tok-bob"})
	mem := notifications.NewMemoryTransport()

	p := newPipeline(t, dir, mem)
	report, err := p.HandleMessage(context.Background(), dispatch.ContentRecord{
		ID:       "m1",
		AuthorID: "alice",
		Mentions: []string{"bob", "bob"},
	})
	require.NoError(t, err)
	assert.Equal(t, []dispatch.Status{dispatch.StatusDelivered, dispatch.StatusDelivered}, statuses(report))
	assert.Len(t, mem.Deliveries(), 2)
}

func TestHandleMessage_RecipientsRunConcurrently(t *testing.T) {
	t.Parallel()

	const n = 3
	var arrived sync.WaitGroup
	arrived.Add(n)

	// Every send waits until all of them are in flight. Sequential sends
	// would hit the send timeout instead.
	barrier := notifications.TransportFunc(func(ctx context.Context, _ notifications.Destination, _ notifications.Payload) error {
		arrived.Done()
		all := make(chan struct{})
		go func() {
			arrived.Wait()
			close(all)
		}()
		select {
		case <-all:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	dir := directory.NewMemory(alice)
	ids := make([]string, n)
	for i := range n {
		ids[i] = string(rune('a' + i))
		dir.Put(directory.Profile{ID: ids[i], DeliveryToken: "tok-" + ids[i]})
	}

	p := newPipeline(t, dir, barrier, dispatch.WithSendTimeout(2*time.Second))
	report, err := p.HandleMessage(context.Background(), dispatch.ContentRecord{ID: "m1", AuthorID: "alice", Mentions: ids})
	require.NoError(t, err)
	assert.Equal(t, n, report.Summary().Delivered)
}

func TestHandleMessage_SlowRecipientIsBounded(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	mem := notifications.NewMemoryTransport()
	tr := notifications.TransportFunc(func(ctx context.Context, dst notifications.Destination, p notifications.Payload) error {
		if dst.Token == "tok-stuck" {
			<-release
			return nil
		}
		return mem.Send(ctx, dst, p)
	})

	dir := directory.NewMemory(
		alice,
		directory.Profile{ID: "stuck", DeliveryToken: "tok-stuck"},
		directory.Profile{ID: "fast", DeliveryToken: "tok-fast"},
	)

	p := newPipeline(t, dir, tr, dispatch.WithSendTimeout(30*time.Millisecond))

	start := time.Now()
	report, err := p.HandleMessage(context.Background(), dispatch.ContentRecord{
		ID:       "m1",
		AuthorID: "alice",
		Mentions: []string{"stuck", "fast"},
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	assert.Equal(t, []dispatch.Status{dispatch.StatusDeliveryFailed, dispatch.StatusDelivered}, statuses(report))
	assert.ErrorIs(t, report.Outcomes[0].Err, notifications.ErrSendTimeout)
	assert.Len(t, mem.Deliveries(), 1)
}

func TestHandleMessage_PanicsAreContained(t *testing.T) {
	t.Parallel()

	t.Run("transport", func(t *testing.T) {
		t.Parallel()
		dir := directory.NewMemory(
			alice,
			directory.Profile{ID: "boom", DeliveryToken: "tok-boom"},
			directory.Profile{ID: "ok", DeliveryToken: "tok-ok"},
		)
		mem := notifications.NewMemoryTransport()
		tr := notifications.TransportFunc(func(ctx context.Context, dst notifications.Destination, p notifications.Payload) error {
			if dst.Token == "tok-boom" {
				panic("transport exploded")
			}
			return mem.Send(ctx, dst, p)
		})

		p := newPipeline(t, dir, tr)
		report, err := p.HandleMessage(context.Background(), dispatch.ContentRecord{
			ID:       "m1",
			AuthorID: "alice",
			Mentions: []string{"boom", "ok"},
		})
		require.NoError(t, err)
		assert.Equal(t, []dispatch.Status{dispatch.StatusDeliveryFailed, dispatch.StatusDelivered}, statuses(report))
		assert.ErrorIs(t, report.Outcomes[0].Err, dispatch.ErrTaskPanicked)
	})

	t.Run("directory", func(t *testing.T) {
		t.Parallel()
		dir := panicDirectory{
			next: directory.NewMemory(alice, directory.Profile{ID: "ok", DeliveryToken: "tok-ok"}),
			id:   "bad",
		}
		mem := notifications.NewMemoryTransport()

		p := newPipeline(t, dir, mem, dispatch.WithSendTimeout(0))
		report, err := p.HandleMessage(context.Background(), dispatch.ContentRecord{
			ID:       "m1",
			AuthorID: "alice",
			Mentions: []string{"bad", "ok"},
		})
		require.NoError(t, err)
		require.Len(t, report.Outcomes, 2)
		assert.Equal(t, "bad", report.Outcomes[0].RecipientID)
		assert.Equal(t, dispatch.StatusDeliveryFailed, report.Outcomes[0].Status)
		assert.ErrorIs(t, report.Outcomes[0].Err, dispatch.ErrTaskPanicked)
		assert.Equal(t, dispatch.StatusDelivered, report.Outcomes[1].Status)
	})
}

func TestHandleMessage_TruncatesBody(t *testing.T) {
	t.Parallel()

	dir := directory.NewMemory(alice, directory.Profile{ID: "bob", DeliveryToken: "tok-bob"})
	mem := notifications.NewMemoryTransport()
	p := newPipeline(t, dir, mem)

	content := strings.Repeat("x", 101)
	_, err := p.HandleMessage(context.Background(), dispatch.ContentRecord{
		ID:       "m1",
		AuthorID: "alice",
		Content:  content,
		Mentions: []string{"bob"},
	})
	require.NoError(t, err)

	deliveries := mem.Deliveries()
	require.Len(t, deliveries, 1)
	assert.Equal(t, content[:100]+notifications.Ellipsis, deliveries[0].Payload.Body)
}

func TestHandleComment(t *testing.T) {
	t.Parallel()

	dir := new(mockDirectory)
	dir.On("Get", mock.Anything, "alice").Return(alice, nil)
	dir.On("Get", mock.Anything, "bob").Return(directory.Profile{ID: "bob", DeliveryToken: "tok-bob"}, nil)

	tr := new(mockTransport)
	tr.On("Send", mock.Anything, notifications.ToToken("tok-bob"), mock.MatchedBy(func(p notifications.Payload) bool {
		return p.Title == "Alice mentioned you in a comment" &&
			p.Kind() == notifications.KindCommentMention &&
			p.Data[notifications.AttrMessageID] == "m1" &&
			p.Data[notifications.AttrCommentID] == "c1" &&
			p.Data[notifications.AttrFromUserID] == "alice"
	})).Return(nil).Once()

	p := newPipeline(t, dir, tr)
	report, err := p.HandleComment(context.Background(), dispatch.ContentRecord{
		ID:       "c1",
		AuthorID: "alice",
		Content:  "agreed",
		Mentions: []string{"bob"},
		ParentID: "m1",
	})
	require.NoError(t, err)
	assert.Equal(t, notifications.KindCommentMention, report.Kind)
	assert.Equal(t, []dispatch.Status{dispatch.StatusDelivered}, statuses(report))
	tr.AssertExpectations(t)
}

func TestHandleMessage_CancelledContext(t *testing.T) {
	t.Parallel()

	dir := directory.NewMemory(alice)
	tr := new(mockTransport)
	p := newPipeline(t, dir, tr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.HandleMessage(ctx, dispatch.ContentRecord{ID: "m1", AuthorID: "alice", Mentions: []string{"bob"}})
	assert.ErrorIs(t, err, dispatch.ErrAuthorUnresolved)
	assert.ErrorIs(t, err, context.Canceled)
	tr.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}
