package trigger

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event reports that a record was created in a collection.
type Event struct {
	// ID identifies this delivery (stream entry id, message id or uuid).
	ID string

	Collection string
	RecordID   string
	// Data is the created record. Nil means the event carried no payload.
	Data       map[string]any
	ReceivedAt time.Time

	// Handlers restricts a redelivery to the handlers that failed on an
	// earlier attempt. Empty means every handler of the collection.
	Handlers []string
	// Attempt is 1 for the first delivery.
	Attempt  int
}

// decodeData parses a JSON record document. Empty input yields nil data.
func decodeData(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: data is not a JSON object: %w", ErrInvalidEvent, err)
	}
	return data, nil
}

// envelope is the JSON body used by the NATS and memory sources.
type envelope struct {
	RecordID string          `json:"recordId"`
	Data     json.RawMessage `json:"data,omitempty"`
}

func decodeEnvelope(id, collection string, body []byte, now time.Time) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if env.RecordID == "" {
		return Event{}, fmt.Errorf("%w: missing recordId", ErrInvalidEvent)
	}
	var raw []byte
	if string(env.Data) != "null" {
		raw = env.Data
	}
	data, err := decodeData(raw)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         id,
		Collection: collection,
		RecordID:   env.RecordID,
		Data:       data,
		ReceivedAt: now,
	}, nil
}

// EncodeEnvelope renders the JSON body that NATS producers publish.
func EncodeEnvelope(recordID string, data map[string]any) ([]byte, error) {
	env := envelope{RecordID: recordID}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}
