// Package trigger delivers record-created events to handlers.
//
// A Source yields deliveries: RedisStreamSource reads Redis Streams through
// a consumer group with acknowledgement and reclaiming of stale entries,
// NATSSource reads core NATS subjects through a queue group, and
// MemorySource serves tests and local runs.
//
// A Router maps a collection to handlers. Every handler of a collection
// receives every event of it, concurrently and independently:
//
//	r := trigger.NewRouter()
//	r.Handle("messages", "mentions", mentionHandler)
//	r.Handle("messages", "announcements", announcementHandler)
//	r.Handle("comments", "comment-mentions", commentHandler)
//
// A Worker ties a Source to a Router with bounded concurrency:
//
//	w, err := trigger.NewWorker(src, r, trigger.WithMaxConcurrent(32))
//	g.Go(w.Run(ctx))
//
// Successful events are acknowledged. Failures wrapped with Permanent, and
// events no handler accepts, are acknowledged and logged. Any other failure
// is nacked. The source delivers the event again with Event.Handlers set to
// the handlers that failed, so handlers that succeeded are not repeated.
// Sources stop after a configured number of attempts. No idempotency key is
// kept, so a retried handler may repeat sends it made before failing.
package trigger
