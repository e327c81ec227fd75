// Package push contains the network transports that implement
// notifications.Transport.
//
// FCM sends through Firebase Cloud Messaging using the Admin SDK. Gateway
// posts a JSON document to an HTTP relay, optionally HMAC-signed, behind a
// circuit breaker:
//
//	gw, err := push.NewGateway("https://push.internal/send",
//	    push.WithGatewaySecret(secret),
//	    push.WithGatewayTimeout(5*time.Second),
//	)
//
// Neither transport retries. Callers that fan out should still wrap them
// with notifications.WithTimeout so each send has its own deadline.
package push
