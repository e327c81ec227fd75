// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv (optional .env files) and
// github.com/caarlos0/env/v11 (struct tag parsing). Each configuration type
// is parsed once and cached for the lifetime of the process; Reload and
// ResetCache exist for tests that change the environment.
//
//	type Config struct {
//	    Transport   string        `env:"PUSH_TRANSPORT" envDefault:"fcm"`
//	    SendTimeout time.Duration `env:"PUSH_SEND_TIMEOUT" envDefault:"10s"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
//
// Errors can be matched with errors.Is against ErrParsingConfig,
// ErrLoadingEnvFile and ErrNilPointer.
package config
