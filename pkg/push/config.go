package push

import "time"

// FCMConfig configures the Firebase Cloud Messaging transport.
type FCMConfig struct {
	ProjectID       string `env:"FCM_PROJECT_ID"`
	CredentialsFile string `env:"FCM_CREDENTIALS_FILE"`
}

// GatewayConfig configures the HTTP push gateway relay.
type GatewayConfig struct {
	URL              string        `env:"PUSH_GATEWAY_URL"`
	Secret           string        `env:"PUSH_GATEWAY_SECRET"`
	RequestTimeout   time.Duration `env:"PUSH_GATEWAY_TIMEOUT" envDefault:"10s"`
	FailureThreshold int           `env:"PUSH_GATEWAY_FAILURE_THRESHOLD" envDefault:"5"`
	RecoveryTimeout  time.Duration `env:"PUSH_GATEWAY_RECOVERY_TIMEOUT" envDefault:"30s"`
}
