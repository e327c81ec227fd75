package notifications

import (
	"fmt"
	"unicode/utf8"
)

// Kind is the notification type tag carried in the payload data.
type Kind string

const (
	KindMention        Kind = "mention"
	KindCommentMention Kind = "comment_mention"
	KindAnnouncement   Kind = "announcement"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindMention, KindCommentMention, KindAnnouncement:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

const (
	// MaxBodyLength is the number of characters kept from the source text.
	MaxBodyLength = 100
	// Ellipsis is appended to a truncated body.
	Ellipsis = "..."
	// ClickAction is the client-side intent every payload carries.
	ClickAction = "FLUTTER_NOTIFICATION_CLICK"
)

// Data attribute keys.
const (
	AttrType        = "type"
	AttrMessageID   = "messageId"
	AttrCommentID   = "commentId"
	AttrGroupID     = "groupId"
	AttrFromUserID  = "fromUserId"
	AttrClickAction = "click_action"
)

// Payload is a push notification ready to hand to a Transport.
// It is built per recipient and never persisted.
type Payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

// Kind returns the type tag stored in the payload data.
func (p Payload) Kind() Kind {
	return Kind(p.Data[AttrType])
}

// Source carries everything the builder needs to render a payload.
type Source struct {
	AuthorID   string
	AuthorName string
	Content    string
	// MessageID is the originating message. For comment mentions it is the
	// parent message of the comment.
	MessageID string
	CommentID string
	GroupID   string
}

// Build renders the payload for kind from src.
// It is deterministic and has no side effects.
func Build(kind Kind, src Source) (Payload, error) {
	data := map[string]string{
		AttrType:        kind.String(),
		AttrMessageID:   src.MessageID,
		AttrFromUserID:  src.AuthorID,
		AttrClickAction: ClickAction,
	}

	var title string
	switch kind {
	case KindMention:
		title = fmt.Sprintf("%s mentioned you", src.AuthorName)
	case KindCommentMention:
		title = fmt.Sprintf("%s mentioned you in a comment", src.AuthorName)
		data[AttrCommentID] = src.CommentID
	case KindAnnouncement:
		title = fmt.Sprintf("Announcement from %s", src.AuthorName)
		data[AttrGroupID] = src.GroupID
	default:
		return Payload{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	return Payload{
		Title: title,
		Body:  Truncate(src.Content, MaxBodyLength),
		Data:  data,
	}, nil
}

// Truncate keeps the first limit characters of s and appends Ellipsis when
// s is longer than limit. Length is measured in Unicode code points.
func Truncate(s string, limit int) string {
	if s == "" || limit < 0 {
		return s
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + Ellipsis
		}
		n++
	}
	return s
}
