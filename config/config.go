package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Payment  PaymentConfig  `yaml:"payment"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address"`
	SwaggerDir     string   `yaml:"swagger_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	Migrate  bool   `yaml:"migrate"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers           []string `yaml:"brokers"`
	TicketEventsTopic string   `yaml:"ticket_events_topic"`
	GroupID           string   `yaml:"group_id"`
}

type BookingConfig struct {
	FlightsCacheTTL        int `yaml:"flights_cache_ttl_seconds"`
	NotificationLockSecond int `yaml:"notification_lock_seconds"`
}

func (b BookingConfig) FlightsCacheDuration() time.Duration {
	return time.Duration(b.FlightsCacheTTL) * time.Second
}

func (b BookingConfig) NotificationLockDuration() time.Duration {
	return time.Duration(b.NotificationLockSecond) * time.Second
}

type PaymentConfig struct {
	BaseURL        string `yaml:"base_url"`
	ServerKey      string `yaml:"server_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Currency       string `yaml:"currency"`
}

func (p PaymentConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func LoadConfig(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnv lets secrets stay out of the YAML file.
func (c *Config) applyEnv() {
	if v := os.Getenv("PAYMENT_SERVER_KEY"); v != "" {
		c.Payment.ServerKey = v
	}
	if v := os.Getenv("AUTH_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Kafka.TicketEventsTopic == "" {
		c.Kafka.TicketEventsTopic = "ticket-events"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "airticket-notifier"
	}
	if c.Booking.FlightsCacheTTL == 0 {
		c.Booking.FlightsCacheTTL = 60
	}
	if c.Booking.NotificationLockSecond == 0 {
		c.Booking.NotificationLockSecond = 30
	}
	if c.Payment.BaseURL == "" {
		c.Payment.BaseURL = "https://app.sandbox.midtrans.com/snap/v1"
	}
	if c.Payment.TimeoutSeconds == 0 {
		c.Payment.TimeoutSeconds = 10
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "IDR"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate checks the secrets the API server needs. The notification worker
// uses neither, so LoadConfig leaves this to the caller.
func (c *Config) Validate() error {
	if c.Payment.ServerKey == "" {
		return errors.New("payment.server_key is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	return nil
}
