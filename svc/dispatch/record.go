package dispatch

import (
	"fmt"
	"time"
)

// Collections the pipeline reacts to.
const (
	CollectionMessages = "messages"
	CollectionComments = "comments"
)

// ContentRecord is a created message or comment. The pipeline only reads it.
type ContentRecord struct {
	ID       string
	AuthorID string
	Content  string
	// Mentions is kept as given: order and duplicates are preserved.
	Mentions []string
	GroupID  string
	// ParentID is the message a comment belongs to. Empty for messages.
	ParentID  string
	CreatedAt time.Time
}

// MessageFromData builds a message record from its stored document:
// {userId, content, mentions, groupId, createdAt}.
func MessageFromData(id string, data map[string]any) (ContentRecord, error) {
	if data == nil {
		return ContentRecord{}, fmt.Errorf("%w: message %s has no data", ErrRecordIncomplete, id)
	}
	return ContentRecord{
		ID:        id,
		AuthorID:  stringField(data, "userId"),
		Content:   stringField(data, "content"),
		Mentions:  stringList(data, "mentions"),
		GroupID:   stringField(data, "groupId"),
		CreatedAt: timeField(data, "createdAt"),
	}, nil
}

// CommentFromData builds a comment record from its stored document:
// {userId, content, mentions, messageId, createdAt}.
func CommentFromData(id string, data map[string]any) (ContentRecord, error) {
	if data == nil {
		return ContentRecord{}, fmt.Errorf("%w: comment %s has no data", ErrRecordIncomplete, id)
	}
	return ContentRecord{
		ID:        id,
		AuthorID:  stringField(data, "userId"),
		Content:   stringField(data, "content"),
		Mentions:  stringList(data, "mentions"),
		ParentID:  stringField(data, "messageId"),
		CreatedAt: timeField(data, "createdAt"),
	}, nil
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

// stringList accepts []string or a decoded JSON array. Non-string
// elements are skipped.
func stringList(data map[string]any, key string) []string {
	switch v := data[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func timeField(data map[string]any, key string) time.Time {
	switch v := data[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	case float64:
		// Milliseconds since epoch.
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Time{}
}

// ResolveMentions returns the recipients referenced by rec, never nil.
// Ids are not validated here; unknown users surface per recipient.
func ResolveMentions(rec ContentRecord) []string {
	if rec.Mentions == nil {
		return []string{}
	}
	return rec.Mentions
}
