package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; AMQP_URL, DATABASE_URL, MONGO_URL and
// the webhook secrets are required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Broker
	AMQPURL        string
	Prefetch       int
	ReconnectDelay time.Duration

	// Postgres (delayed-job store)
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// MongoDB (domain records)
	MongoURL string
	MongoDB  string

	// Payment webhook signing secret; the scheduling provider delivers
	// unsigned bodies.
	PaymentWebhookSecret string

	// Outbound delivery gateways
	MailGatewayURL string
	SMSGatewayURL  string
	GatewayTimeout time.Duration
	MailFrom       string

	// Rate limiting: maximum requests per second per webhook source
	RateLimit int

	// Background worker poll interval and daily greeting hour (local time)
	JobPollInterval time.Duration
	BirthdayHour    int
}

func Load() (*Config, error) {
	required := func(key string) (string, error) {
		v := os.Getenv(key)
		if v == "" {
			return "", fmt.Errorf("%s is required", key)
		}
		return v, nil
	}

	amqpURL, err := required("AMQP_URL")
	if err != nil {
		return nil, err
	}
	dbURL, err := required("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	mongoURL, err := required("MONGO_URL")
	if err != nil {
		return nil, err
	}
	paymentSecret, err := required("PAYMENT_WEBHOOK_SECRET")
	if err != nil {
		return nil, err
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		AMQPURL:        amqpURL,
		Prefetch:       getInt("AMQP_PREFETCH", 10),
		ReconnectDelay: getDuration("AMQP_RECONNECT_DELAY", 5*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		MongoURL: mongoURL,
		MongoDB:  getEnv("MONGO_DB", "advisio"),

		PaymentWebhookSecret: paymentSecret,

		MailGatewayURL: getEnv("MAIL_GATEWAY_URL", "http://localhost:8025"),
		SMSGatewayURL:  getEnv("SMS_GATEWAY_URL", "http://localhost:8026"),
		GatewayTimeout: getDuration("GATEWAY_TIMEOUT", 10*time.Second),
		MailFrom:       getEnv("MAIL_FROM", "office@advisio.example"),

		RateLimit: getInt("RATE_LIMIT_PER_SOURCE", 100),

		JobPollInterval: getDuration("JOB_POLL_INTERVAL", 5*time.Second),
		BirthdayHour:    getInt("BIRTHDAY_HOUR", 9),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
