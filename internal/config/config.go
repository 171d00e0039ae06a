package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoragePostgres = "postgres"
	StorageRedis    = "redis"

	AuthModePlain = "plain"
	AuthModeJWT   = "jwt"
)

type Config struct {
	HTTPPort      string `envconfig:"APP_PORT" default:"8080"`
	LogFile       string `envconfig:"LOG_FILE" default:"wallet.log"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	DB            DBConfig
	Redis         RedisConfig
	Rates         RatesConfig
	Auth          AuthConfig
	Kafka         KafkaConfig
	CORS          CORSConfig
}

type DBConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"     default:"localhost"`
	Port     string `envconfig:"POSTGRES_PORT"     default:"5432"`
	User     string `envconfig:"POSTGRES_USER"     default:"postgres"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"postgres"`
	DBName   string `envconfig:"POSTGRES_DB"       default:"wallet"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE"  default:"disable"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type RatesConfig struct {
	APIURL            string        `envconfig:"RATES_API_URL" default:"https://api.nbp.pl/api/exchangerates/tables/c/?format=json"`
	RefreshInterval   time.Duration `envconfig:"RATES_REFRESH_INTERVAL" default:"5m"`
	HTTPTimeout       time.Duration `envconfig:"RATES_HTTP_TIMEOUT" default:"10s"`
	MaxAttempts       int           `envconfig:"RATES_MAX_ATTEMPTS" default:"3"`
	RetryBackoff      time.Duration `envconfig:"RATES_RETRY_BACKOFF" default:"1s"`
	ReferenceCurrency string        `envconfig:"REFERENCE_CURRENCY" default:"PLN"`
}

type AuthConfig struct {
	Mode          string        `envconfig:"AUTH_MODE" default:"plain"`
	JWTSecret     string        `envconfig:"JWT_SECRET"`
	JWTExpiration time.Duration `envconfig:"JWT_EXPIRATION" default:"24h"`
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	Topic   string   `envconfig:"KAFKA_TOPIC" default:"wallet-operations"`
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

func NewConfig() (*Config, error) {
	envFile := "config.env"

	if err := godotenv.Load(envFile); err != nil {
		log.Printf("warning: не удалось загрузить файл %s, используются только системные переменные окружения: %v", envFile, err)
	}

	return Load()
}

// Load читает конфигурацию только из переменных окружения
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StoragePostgres, StorageRedis:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.Auth.Mode {
	case AuthModePlain:
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			return errors.New("JWT_SECRET is required when AUTH_MODE=jwt")
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.Auth.Mode)
	}

	if c.Rates.MaxAttempts < 1 {
		return errors.New("RATES_MAX_ATTEMPTS must be at least 1")
	}
	if c.Rates.RefreshInterval <= 0 {
		return errors.New("RATES_REFRESH_INTERVAL must be positive")
	}

	return nil
}

func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

func (d *DBConfig) MigrationURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}
