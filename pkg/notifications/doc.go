// Package notifications defines the push notification payload, its
// destination and the Transport contract used to send it.
//
// # Payloads
//
// Build renders one of three kinds from a Source:
//
//	p, err := notifications.Build(notifications.KindMention, notifications.Source{
//	    AuthorID:   "u1",
//	    AuthorName: "Alice",
//	    Content:    msg.Content,
//	    MessageID:  msg.ID,
//	})
//
// Bodies longer than MaxBodyLength characters are cut and suffixed with
// Ellipsis. Every payload carries the type tag, the originating message id,
// the author id and ClickAction in its Data map.
//
// # Destinations
//
// A Destination targets either a device token (ToToken) or a broadcast
// topic (ToTopic). Transports reject anything else with ErrInvalidDestination.
//
// # Transports
//
// Concrete network transports live in package push. This package provides
// MemoryTransport for tests, LogTransport for development, NoOpTransport,
// and WithTimeout, which bounds every call with its own deadline so a slow
// send cannot stall a caller waiting on many sends.
package notifications
