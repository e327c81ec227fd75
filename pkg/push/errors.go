package push

import "errors"

var (
	ErrInvalidConfig      = errors.New("push: invalid transport configuration")
	ErrInvalidSignature   = errors.New("push: invalid request signature")
	ErrCircuitOpen        = errors.New("push: gateway circuit breaker is open")
	ErrGatewayRejected    = errors.New("push: gateway rejected the notification")
	ErrGatewayUnavailable = errors.New("push: gateway unavailable")
	ErrUnregisteredToken  = errors.New("push: device token is not registered")
)
