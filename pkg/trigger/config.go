package trigger

import "time"

// RedisConfig configures the Redis Streams source.
type RedisConfig struct {
	Streams          []string      `env:"TRIGGER_STREAMS" envSeparator:"," envDefault:"messages,comments"`
	StreamPrefix     string        `env:"TRIGGER_STREAM_PREFIX" envDefault:"records:"`
	Group            string        `env:"TRIGGER_GROUP" envDefault:"pushkit"`
	Consumer         string        `env:"TRIGGER_CONSUMER"`
	BatchSize        int64         `env:"TRIGGER_BATCH_SIZE" envDefault:"16"`
	Block            time.Duration `env:"TRIGGER_BLOCK" envDefault:"5s"`
	ClaimMinIdle     time.Duration `env:"TRIGGER_CLAIM_MIN_IDLE" envDefault:"1m"`
	ClaimInterval    time.Duration `env:"TRIGGER_CLAIM_INTERVAL" envDefault:"30s"`
	MaxAttempts      int           `env:"TRIGGER_MAX_ATTEMPTS" envDefault:"5"`
	DeadLetterStream string        `env:"TRIGGER_DEAD_LETTER_STREAM" envDefault:"records:dead-letter"`
}

// NATSConfig configures the NATS source.
type NATSConfig struct {
	URL           string `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	SubjectPrefix string `env:"NATS_SUBJECT_PREFIX" envDefault:"records"`
	QueueGroup    string `env:"NATS_QUEUE_GROUP" envDefault:"pushkit"`
	Buffer        int    `env:"NATS_BUFFER" envDefault:"256"`
	MaxAttempts   int    `env:"NATS_MAX_ATTEMPTS" envDefault:"5"`
}
