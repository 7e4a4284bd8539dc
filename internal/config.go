package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Acquirer      AcquirerConfig      `mapstructure:"acquirer"`
	Mailer        MailerConfig        `mapstructure:"mailer"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret" validate:"required,min=32"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret" validate:"required,min=32"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration" validate:"required,min=1m,max=1h"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" validate:"required,min=1h"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" validate:"required,min=10,max=15"`
}

// AcquirerConfig holds the PIX acquirer integration settings. ChargeExpiry is
// the fixed window applied to every charge at creation.
type AcquirerConfig struct {
	APIURL         string        `mapstructure:"api_url" validate:"required,url"`
	APIKey         string        `mapstructure:"api_key"`
	WebhookSecret  string        `mapstructure:"webhook_secret"`
	WebhookURL     string        `mapstructure:"webhook_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ChargeExpiry   time.Duration `mapstructure:"charge_expiry"`
	MaxWorkers     int           `mapstructure:"max_workers"`
	JobQueueSize   int           `mapstructure:"job_queue_size"`
	Simulate       bool          `mapstructure:"simulate"`
}

type MailerConfig struct {
	APIURL      string        `mapstructure:"api_url"`
	APIKey      string        `mapstructure:"api_key"`
	FromAddress string        `mapstructure:"from_address"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
	Enabled     bool          `mapstructure:"enabled"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// LoadConfigFromEnv builds a Config from environment variables, used for
// container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("HTTP_BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("HTTP_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DB_SOURCE", ""),
		},
		Security: SecurityConfig{
			AccessTokenSecret:    getEnv("ACCESS_TOKEN_SECRET", ""),
			RefreshTokenSecret:   getEnv("REFRESH_TOKEN_SECRET", ""),
			AccessTokenDuration:  getEnvAsDuration("ACCESS_TOKEN_DURATION", 15*time.Minute),
			RefreshTokenDuration: getEnvAsDuration("REFRESH_TOKEN_DURATION", 7*24*time.Hour),
			BCryptCost:           getEnvAsInt("BCRYPT_COST", 10),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
		Acquirer: AcquirerConfig{
			APIURL:         getEnv("ACQUIRER_API_URL", ""),
			APIKey:         getEnv("ACQUIRER_API_KEY", ""),
			WebhookSecret:  getEnv("ACQUIRER_WEBHOOK_SECRET", ""),
			WebhookURL:     getEnv("ACQUIRER_WEBHOOK_URL", ""),
			RequestTimeout: getEnvAsDuration("ACQUIRER_REQUEST_TIMEOUT", 30*time.Second),
			ChargeExpiry:   getEnvAsDuration("ACQUIRER_CHARGE_EXPIRY", time.Hour),
			MaxWorkers:     getEnvAsInt("ACQUIRER_MAX_WORKERS", 10),
			JobQueueSize:   getEnvAsInt("ACQUIRER_JOB_QUEUE_SIZE", 100),
			Simulate:       getEnv("ACQUIRER_SIMULATE", "false") == "true",
		},
		Mailer: MailerConfig{
			APIURL:      getEnv("MAILER_API_URL", "https://api.resend.com"),
			APIKey:      getEnv("MAILER_API_KEY", ""),
			FromAddress: getEnv("MAILER_FROM_ADDRESS", "no-reply@brpay.dev"),
			SendTimeout: getEnvAsDuration("MAILER_SEND_TIMEOUT", 10*time.Second),
			Enabled:     getEnv("MAILER_ENABLED", "false") == "true",
		},
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Acquirer.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("acquirer config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.AccessTokenSecret) < 32 {
		return errors.New("access token secret must be at least 32 characters")
	}
	if len(c.RefreshTokenSecret) < 32 {
		return errors.New("refresh token secret must be at least 32 characters")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("access and refresh token secrets must differ")
	}
	return nil
}

func (c *AcquirerConfig) Validate() error {
	if c.APIURL == "" {
		return errors.New("api_url is required")
	}
	if c.ChargeExpiry <= 0 {
		return errors.New("charge_expiry must be positive")
	}
	return nil
}
