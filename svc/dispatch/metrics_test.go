package dispatch

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/logger"
	"github.com/dmitrymomot/pushkit/pkg/notifications"
	"github.com/dmitrymomot/pushkit/svc/directory"
)

func TestMetrics_NilIsSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.outcome(notifications.KindMention, StatusDelivered)
		m.invocation(notifications.KindMention, resultOK, 0)
		m.rejectedAnnouncement()
	})
}

func TestMetrics_CountsOutcomes(t *testing.T) {
	t.Parallel()

	dir := directory.NewMemory(
		directory.Profile{ID: "alice", DisplayName: "Alice"},
		directory.Profile{ID: "bob", DeliveryToken: "tok-bob"},
		directory.Profile{ID: "carol"},
	)
	m := NewMetrics(prometheus.NewRegistry())
	p, err := New(dir, notifications.NewMemoryTransport(), WithMetrics(m), WithLogger(logger.Discard()))
	require.NoError(t, err)

	_, err = p.HandleMessage(context.Background(), ContentRecord{
		ID:       "m1",
		AuthorID: "alice",
		Mentions: []string{"bob", "carol", "dave"},
	})
	require.NoError(t, err)

	kind := notifications.KindMention.String()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues(kind, string(StatusDelivered))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues(kind, string(StatusNoDeliveryAddress))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues(kind, string(StatusRecipientNotFound))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invocations.WithLabelValues(kind, resultOK)))

	_, err = p.HandleMessage(context.Background(), ContentRecord{ID: "m2", AuthorID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invocations.WithLabelValues(kind, resultEmpty)))

	_, err = p.HandleMessage(context.Background(), ContentRecord{ID: "m3", AuthorID: "ghost", Mentions: []string{"bob"}})
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invocations.WithLabelValues(kind, resultAborted)))
}
