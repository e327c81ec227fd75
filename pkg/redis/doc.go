// Package redis connects to Redis with retries and exposes a health check.
// The trigger package builds its stream consumer on top of the returned client.
package redis
