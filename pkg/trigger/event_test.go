package trigger

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryToEvent(t *testing.T) {
	t.Parallel()
	now := time.Now()

	ev, err := entryToEvent("messages", redis.XMessage{
		ID: "1700000000000-0",
		Values: map[string]any{
			FieldRecordID: "m1",
			FieldData:     `{"userId":"u1","mentions":["u2"],"content":"hi"}`,
		},
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "1700000000000-0", ev.ID)
	assert.Equal(t, "messages", ev.Collection)
	assert.Equal(t, "m1", ev.RecordID)
	assert.Equal(t, "u1", ev.Data["userId"])
	assert.Equal(t, now, ev.ReceivedAt)

	ev, err = entryToEvent("messages", redis.XMessage{ID: "1-0", Values: map[string]any{FieldRecordID: "m2"}}, now)
	require.NoError(t, err)
	assert.Nil(t, ev.Data)

	_, err = entryToEvent("messages", redis.XMessage{ID: "2-0", Values: map[string]any{}}, now)
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, err = entryToEvent("messages", redis.XMessage{ID: "3-0", Values: map[string]any{FieldRecordID: "m3", FieldData: "[1,2]"}}, now)
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	t.Parallel()
	now := time.Now()

	body, err := EncodeEnvelope("c1", map[string]any{"messageId": "m1"})
	require.NoError(t, err)

	ev, err := decodeEnvelope("id-1", "comments", body, now)
	require.NoError(t, err)
	assert.Equal(t, "c1", ev.RecordID)
	assert.Equal(t, "m1", ev.Data["messageId"])

	body, err = EncodeEnvelope("c2", nil)
	require.NoError(t, err)
	ev, err = decodeEnvelope("id-2", "comments", body, now)
	require.NoError(t, err)
	assert.Nil(t, ev.Data)

	_, err = decodeEnvelope("id-3", "comments", []byte(`{"data":{}}`), now)
	assert.ErrorIs(t, err, ErrInvalidEvent)
	_, err = decodeEnvelope("id-4", "comments", []byte(`not json`), now)
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestSubject(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "records.messages", Subject("records", "messages"))
	assert.Equal(t, "messages", Subject("", "messages"))
}

func TestEntryToEventRetryFields(t *testing.T) {
	t.Parallel()
	now := time.Now()

	ev, err := entryToEvent("messages", redis.XMessage{ID: "1-0", Values: map[string]any{FieldRecordID: "m1"}}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, ev.Attempt)
	assert.Empty(t, ev.Handlers)

	ev, err = entryToEvent("messages", redis.XMessage{ID: "2-0", Values: map[string]any{
		FieldRecordID: "m1",
		FieldHandlers: "announcements,mentions",
		FieldAttempt:  "3",
	}}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"announcements", "mentions"}, ev.Handlers)
	assert.Equal(t, 3, ev.Attempt)

	_, err = entryToEvent("messages", redis.XMessage{ID: "3-0", Values: map[string]any{FieldRecordID: "m1", FieldAttempt: "0"}}, now)
	assert.ErrorIs(t, err, ErrInvalidEvent)
}
