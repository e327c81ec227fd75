package dispatch

import "github.com/dmitrymomot/pushkit/pkg/notifications"

// Status is the terminal result of one recipient.
type Status string

const (
	StatusDelivered         Status = "delivered"
	StatusRecipientNotFound Status = "recipient_not_found"
	StatusNoDeliveryAddress Status = "no_delivery_address"
	StatusDeliveryFailed    Status = "delivery_failed"
)

// Outcome is the result of dispatching to one mention entry.
type Outcome struct {
	RecipientID string
	Status      Status
	// Err holds the reason for any status other than StatusDelivered.
	Err error
}

// Report is the result of one mention fan-out.
type Report struct {
	RecordID string
	Kind     notifications.Kind
	// Outcomes has one entry per mention, in mention order.
	Outcomes []Outcome
}

// Summary counts outcomes per status.
type Summary struct {
	Total     int
	Delivered int
	NotFound  int
	NoAddress int
	Failed    int
}

// Summary aggregates r.Outcomes.
func (r Report) Summary() Summary {
	s := Summary{Total: len(r.Outcomes)}
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusDelivered:
			s.Delivered++
		case StatusRecipientNotFound:
			s.NotFound++
		case StatusNoDeliveryAddress:
			s.NoAddress++
		case StatusDeliveryFailed:
			s.Failed++
		}
	}
	return s
}

// BroadcastStatus is the result of the announcement path.
type BroadcastStatus string

const (
	// BroadcastSkipped means the record is not in the announcements group.
	BroadcastSkipped  BroadcastStatus = "skipped"
	BroadcastSent     BroadcastStatus = "sent"
	BroadcastRejected BroadcastStatus = "rejected"
	BroadcastFailed   BroadcastStatus = "failed"
	// BroadcastAborted means the author could not be resolved.
	BroadcastAborted BroadcastStatus = "aborted"
)

// BroadcastResult describes one pass through the announcement gate.
type BroadcastResult struct {
	RecordID string
	Status   BroadcastStatus
	Topic    string
	Err      error
}
