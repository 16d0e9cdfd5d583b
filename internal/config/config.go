package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`
	APIPort     int    `env:"API_PORT,default=8080"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	// AppBaseURL is injected into every template variable map so rendered
	// content can link back into the application.
	AppBaseURL string `env:"APP_BASE_URL,required=true"`

	// Email transport. When EmailAPIKey is set the HTTP email API is used;
	// otherwise SMTPHost selects the SMTP transport. With neither present
	// the email channel reports itself unconfigured and is never resolved.
	EmailAPIURL  string `env:"EMAIL_API_URL,default=https://api.resend.com/emails"`
	EmailAPIKey  string `env:"EMAIL_API_KEY"`
	EmailFrom    string `env:"EMAIL_FROM,default=notifications@carebridge.app"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	SendTimeoutSeconds   int `env:"SEND_TIMEOUT_SECONDS,default=10"`
	SweepIntervalSeconds int `env:"SWEEP_INTERVAL_SECONDS,default=120"`
	ScheduledBatchSize   int `env:"SCHEDULED_BATCH_SIZE,default=100"`
	RetryBatchSize       int `env:"RETRY_BATCH_SIZE,default=50"`
	MaxRetries           int `env:"MAX_RETRIES,default=3"`
	DispatchConcurrency  int `env:"DISPATCH_CONCURRENCY,default=8"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}
