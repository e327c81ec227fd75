package dispatch_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/logger"
	"github.com/dmitrymomot/pushkit/pkg/notifications"
	"github.com/dmitrymomot/pushkit/svc/directory"
	"github.com/dmitrymomot/pushkit/svc/dispatch"
)

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) Get(ctx context.Context, id string) (directory.Profile, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(directory.Profile), args.Error(1)
}

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Send(ctx context.Context, dst notifications.Destination, p notifications.Payload) error {
	return m.Called(ctx, dst, p).Error(0)
}

// panicDirectory panics for one id and delegates everything else.
type panicDirectory struct {
	next directory.Directory
	id   string
}

func (d panicDirectory) Get(ctx context.Context, id string) (directory.Profile, error) {
	if id == d.id {
		panic("directory exploded")
	}
	return d.next.Get(ctx, id)
}

// flakyDirectory fails the first lookup of id and delegates everything else.
type flakyDirectory struct {
	next   directory.Directory
	id     string
	failed atomic.Bool
}

func (d *flakyDirectory) Get(ctx context.Context, id string) (directory.Profile, error) {
	if id == d.id && d.failed.CompareAndSwap(false, true) {
		return directory.Profile{}, errors.New("directory unavailable")
	}
	return d.next.Get(ctx, id)
}

func newPipeline(t *testing.T, dir directory.Directory, tr notifications.Transport, opts ...dispatch.Option) *dispatch.Pipeline {
	t.Helper()
	opts = append([]dispatch.Option{dispatch.WithLogger(logger.Discard())}, opts...)
	p, err := dispatch.New(dir, tr, opts...)
	require.NoError(t, err)
	return p
}

func payloadOfKind(kind notifications.Kind) any {
	return mock.MatchedBy(func(p notifications.Payload) bool {
		return p.Kind() == kind
	})
}

func statuses(r dispatch.Report) []dispatch.Status {
	out := make([]dispatch.Status, len(r.Outcomes))
	for i, o := range r.Outcomes {
		out[i] = o.Status
	}
	return out
}

var (
	alice = directory.Profile{ID: "alice", DisplayName: "Alice", DeliveryToken: "tok-alice"}
	boss  = directory.Profile{ID: "boss", DisplayName: "Boss", IsAdmin: true}
)
