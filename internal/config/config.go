// Package config provides the structures and loader for application settings.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds every setting the binaries need. Values come from a yaml file
// pointed to by CONFIG_PATH, with environment variables taking precedence.
type Config struct {
	Env                     string        `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string        `yaml:"storage_connection_string" env:"DATABASE_URL"`
	MigrationsPath          string        `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RabbitMQURL             string        `yaml:"rabbitmq_url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries      int           `yaml:"rabbitmq_max_retries" env:"RABBITMQ_MAX_RETRIES" env-default:"10"`
	RabbitMQRetryDelay      time.Duration `yaml:"rabbitmq_retry_delay" env:"RABBITMQ_RETRY_DELAY" env-default:"3s"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	SMTP                    `yaml:"smtp"`
	Paystack                `yaml:"paystack"`
}

// HTTPServer configures the API listener.
type HTTPServer struct {
	Address      string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	Timeout      time.Duration `yaml:"timeout" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env-default:"60s"`
	AllowOrigins []string      `yaml:"allow_origins" env:"CORS_ALLOW_ORIGINS" env-separator:","`
}

// RedisConnection configures the analytics cache connection.
type RedisConnection struct {
	Addr        string        `yaml:"address" env:"REDIS_ADDRESS"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	User        string        `yaml:"user" env:"REDIS_USER"`
	DB          int           `yaml:"db" env:"REDIS_DB"`
	MaxRetries  int           `yaml:"max_retries" env-default:"3"`
	DialTimeout time.Duration `yaml:"dial_timeout" env-default:"5s"`
	Timeout     time.Duration `yaml:"timeout" env-default:"3s"`
}

// JWTToken configures token signing.
type JWTToken struct {
	SecretKey string        `yaml:"secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL  time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// SMTP configures the outgoing mail transport.
type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"465"`
	User     string `yaml:"user" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
}

// Paystack configures the payment gateway client.
type Paystack struct {
	SecretKey     string `yaml:"secret_key" env:"PAYSTACK_SECRET_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"PAYSTACK_WEBHOOK_SECRET"`
	BaseURL       string `yaml:"base_url" env-default:"https://api.paystack.co"`
}

// MustLoad reads the config pointed to by CONFIG_PATH and exits on failure.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
