package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer

	DatabasePath string `env:"DATABASE_PATH" envDefault:"tableside.db"`
	AmqpURL      string `env:"AMQP_URL"`

	OrderService OrderService `envPrefix:"ORDER_SERVICE_"`
	Payment      Payment      `envPrefix:"PAYMENT_"`
	Auth         Auth         `envPrefix:"AUTH_"`
}

type OrderService struct {
	BaseURL string        `env:"BASE_URL"`
	APIKey  string        `env:"API_KEY"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

type Payment struct {
	// PollInterval is the fixed delay between confirmation reads for
	// asynchronous methods.
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"3s"`
	// SessionTTL bounds how long a session may keep polling before it
	// expires.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"15m"`
	// QRBankAccount and QRBankCode identify the receiving account encoded
	// into bank-transfer QR payloads.
	QRBankAccount string `env:"QR_BANK_ACCOUNT"`
	QRBankCode    string `env:"QR_BANK_CODE"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
