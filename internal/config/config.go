package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	// GatewayURL selects the HTTP submit path; when empty, units are
	// published to the outbound AMQP queue instead.
	GatewayURL string `env:"GATEWAY_URL"`

	DefaultCountryCode string `env:"DEFAULT_COUNTRY_CODE,default=+1"`
	SMSPartLimit       int    `env:"SMS_PART_LIMIT,default=160"`

	DelayBetweenRecipientsSec int `env:"DELAY_BETWEEN_RECIPIENTS_SEC,default=5"`
	DelayBetweenPartsSec      int `env:"DELAY_BETWEEN_PARTS_SEC,default=2"`
	SendTimeoutSec            int `env:"SEND_TIMEOUT_SEC,default=10"`

	RateLimitPerSec int  `env:"RATE_LIMIT_PER_SEC,default=1"`
	GuardEnabled    bool `env:"GUARD_ENABLED,default=true"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) DelayBetweenRecipients() time.Duration {
	return time.Duration(c.DelayBetweenRecipientsSec) * time.Second
}

func (c *Config) DelayBetweenParts() time.Duration {
	return time.Duration(c.DelayBetweenPartsSec) * time.Second
}

func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSec) * time.Second
}
