// Package dispatch turns created messages and comments into push
// notifications.
//
// A Pipeline is built from a user directory and a transport:
//
//	p, err := dispatch.New(users, transport,
//	    dispatch.WithLogger(log),
//	    dispatch.WithMetrics(dispatch.NewMetrics(prometheus.DefaultRegisterer)),
//	)
//
// HandleMessage and HandleComment resolve the author once, then look up and
// notify every mentioned user concurrently. The call returns after every
// recipient has settled, with one Outcome per mention entry. A missing
// recipient, a recipient without a device token or a failed send is recorded
// in the Report and never returned; only an unresolved author aborts.
//
// HandleAnnouncement sends a single notification to the announcements topic
// when an admin posts to the announcements group. Posts by other users are
// dropped, logged and counted.
//
// Register attaches all three paths to a trigger.Router. Each transport call
// is bounded by WithSendTimeout (DefaultSendTimeout unless set).
package dispatch
