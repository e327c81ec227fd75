// Package async provides small generic helpers for running work in
// goroutines and joining on the results.
//
// Async starts a function and returns a *Future. Await blocks for the
// result, AwaitWithTimeout bounds the wait and Done exposes completion for
// select statements.
//
// Settle (and Map, which starts and settles in one call) is a barrier: it waits for every future and reports each outcome
// separately, so one failure never hides the others. Panics inside a task
// are recovered and surface as an error wrapping ErrPanic.
//
//	results := async.Map(ctx, userIDs, func(ctx context.Context, id string) (Outcome, error) {
//	    return deliver(ctx, id)
//	})
//	for i, r := range results {
//	    // results[i] belongs to userIDs[i]
//	}
//
// There is no concurrency limit; the number of goroutines equals the number
// of futures.
package async
