package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/velano/storefront/internal/domain/order"
)

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL   string        `usage:"PostgreSQL connection URL (STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	TokenSecret   string        `usage:"HMAC secret for session tokens (STORE_TOKEN_SECRET)" flag:"token-secret"`
	TokenTTL      time.Duration `default:"24h" usage:"Session token lifetime" flag:"token-ttl"`
	OTPPepper     string        `usage:"HMAC pepper for one-time code hashing (STORE_OTP_PEPPER)" flag:"otp-pepper"`
	BlocklistPath string        `default:"" usage:"Path to the disposable email domain filter file" flag:"blocklist-path"`
	SMTP          SMTPConfig
	Pricing       PricingConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// SMTPConfig controls outbound email delivery. An empty Host selects the
// log-only mailer.
type SMTPConfig struct {
	Host     string `default:"" usage:"SMTP server host; empty logs emails instead of sending"`
	Port     int    `default:"587" usage:"SMTP server port"`
	Username string `usage:"SMTP username"`
	Password string `usage:"SMTP password"`
	From     string `default:"no-reply@localhost" usage:"From address for outbound email"`
}

// PricingConfig controls the order summary defaults. Values are parsed as
// exact decimals.
type PricingConfig struct {
	TaxRate           string `default:"0.05" usage:"Tax as a fraction of the subtotal" flag:"tax-rate"`
	ShippingFee       string `default:"10" usage:"Flat delivery fee" flag:"shipping-fee"`
	FreeShippingAbove string `default:"100" usage:"Subtotal at which the delivery fee is waived" flag:"free-shipping-above"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set STORE_DATABASE_URL or DATABASE_URL")
	}
	if cfg.TokenSecret == "" {
		return nil, errors.New("token secret is required: set STORE_TOKEN_SECRET")
	}
	if cfg.OTPPepper == "" {
		return nil, errors.New("OTP pepper is required: set STORE_OTP_PEPPER")
	}

	return &cfg, nil
}

// OrderPricing parses the configured pricing values into the order service's
// pricing defaults.
func (c *Config) OrderPricing() (order.Pricing, error) {
	taxRate, err := decimal.NewFromString(c.Pricing.TaxRate)
	if err != nil {
		return order.Pricing{}, errors.Wrap(err, "parse tax rate")
	}
	fee, err := decimal.NewFromString(c.Pricing.ShippingFee)
	if err != nil {
		return order.Pricing{}, errors.Wrap(err, "parse shipping fee")
	}
	freeAbove, err := decimal.NewFromString(c.Pricing.FreeShippingAbove)
	if err != nil {
		return order.Pricing{}, errors.Wrap(err, "parse free shipping threshold")
	}
	return order.Pricing{
		TaxRate:           taxRate,
		ShippingFee:       fee,
		FreeShippingAbove: freeAbove,
	}, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STORE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
