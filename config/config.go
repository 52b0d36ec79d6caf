package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// IyzicoConfig holds the Iyzico merchant credentials
type IyzicoConfig struct {
	APIKey      string `env:"API_KEY"`
	Secret      string `env:"SECRET"`
	BaseURL     string `env:"BASE_URL"`
	CallbackURL string `env:"CALLBACK_URL" envDefault:"/payments/callback/iyzico/"`
}

// PayTRConfig holds the PayTR merchant credentials
type PayTRConfig struct {
	MerchantID   string `env:"MERCHANT_ID"`
	MerchantKey  string `env:"MERCHANT_KEY"`
	MerchantSalt string `env:"MERCHANT_SALT"`
	BaseURL      string `env:"BASE_URL"`
	CallbackURL  string `env:"CALLBACK_URL" envDefault:"/payments/callback/paytr/"`
}

// EmailConfig holds SMTP settings; an empty Host means emails are only logged
type EmailConfig struct {
	Host     string        `env:"EMAIL_HOST"`
	Port     int           `env:"EMAIL_PORT" envDefault:"587"`
	User     string        `env:"EMAIL_HOST_USER"`
	Password string        `env:"EMAIL_HOST_PASSWORD"`
	From     string        `env:"DEFAULT_FROM_EMAIL" envDefault:"no-reply@satis.local"`
	Timeout  time.Duration `env:"EMAIL_TIMEOUT" envDefault:"10s"`
}

// Config holds all application configuration
type Config struct {
	DatabaseURL   string `env:"DATABASE_URL"`
	Port          string `env:"PORT" envDefault:"8080"`
	GoEnv         string `env:"GO_ENV" envDefault:"development"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	Auth0Domain   string `env:"AUTH0_DOMAIN"`
	Auth0Audience string `env:"AUTH0_AUDIENCE"`

	PaymentProvider   string       `env:"PAYMENT_PROVIDER" envDefault:"mock"`
	PaymentCurrency   string       `env:"PAYMENT_CURRENCY" envDefault:"TRY"`
	PaymentSuccessURL string       `env:"PAYMENT_SUCCESS_URL" envDefault:"/shop/checkout/success/"`
	PaymentFailureURL string       `env:"PAYMENT_FAILURE_URL" envDefault:"/shop/checkout/fail/"`
	Iyzico            IyzicoConfig `envPrefix:"IYZICO_"`
	PayTR             PayTRConfig  `envPrefix:"PAYTR_"`

	Email EmailConfig

	AWSRegion          string `env:"AWS_REGION" envDefault:"eu-central-1"`
	AWSS3Bucket        string `env:"AWS_S3_BUCKET"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	RedisAddr         string `env:"REDIS_ADDR"`
	CallbackRateLimit int    `env:"CALLBACK_RATE_LIMIT" envDefault:"10"`
	CancelRateLimit   int    `env:"CANCEL_RATE_LIMIT" envDefault:"5"`

	ShippingStandard      string `env:"SHIPPING_STANDARD" envDefault:"49.90"`
	ShippingExpress       string `env:"SHIPPING_EXPRESS" envDefault:"99.90"`
	FreeShippingThreshold string `env:"FREE_SHIPPING_THRESHOLD" envDefault:"500"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// EnvFile is the dotenv file that was loaded, empty when only the process environment was used
	EnvFile string `env:"-"`
}

var appConfig *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	// Determine which environment file to load
	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" {
		goEnv = "development"
	}

	// Try to load environment-specific file first, then .env.
	// In production environment variables are set directly
	// so it's okay if neither file exists.
	loaded := fmt.Sprintf(".env.%s", goEnv)
	if err := godotenv.Load(loaded); err != nil {
		loaded = ".env"
		if err := godotenv.Load(); err != nil {
			loaded = ""
		}
	}

	cfg := &Config{EnvFile: loaded}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.PaymentProvider = strings.ToLower(strings.TrimSpace(cfg.PaymentProvider))

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	appConfig = cfg
	return cfg, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.IsProduction() && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.CallbackRateLimit <= 0 {
		return fmt.Errorf("CALLBACK_RATE_LIMIT must be positive")
	}
	if c.CancelRateLimit <= 0 {
		return fmt.Errorf("CANCEL_RATE_LIMIT must be positive")
	}
	for key, value := range map[string]string{
		"SHIPPING_STANDARD":       c.ShippingStandard,
		"SHIPPING_EXPRESS":        c.ShippingExpress,
		"FREE_SHIPPING_THRESHOLD": c.FreeShippingThreshold,
	} {
		if _, err := decimal.NewFromString(value); err != nil {
			return fmt.Errorf("%s must be a decimal amount: %w", key, err)
		}
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// GetDatabaseURL returns the database URL
func (c *Config) GetDatabaseURL() string {
	return c.DatabaseURL
}

// ShippingRates returns the standard fee, express fee and free-shipping threshold
func (c *Config) ShippingRates() (standard, express, freeThreshold decimal.Decimal) {
	return decimal.RequireFromString(c.ShippingStandard),
		decimal.RequireFromString(c.ShippingExpress),
		decimal.RequireFromString(c.FreeShippingThreshold)
}

// GetConfig returns the configuration loaded by Load
func GetConfig() *Config {
	return appConfig
}

// SetConfig sets the configuration instance (primarily for testing)
func SetConfig(cfg *Config) {
	appConfig = cfg
}
