package storefront

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Auth methods
const (
	AuthBasic  = "basic"
	AuthBearer = "bearer"
)

// Defaults applied by Validate
const (
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 5.0
	DefaultRateBurst = 10
)

// Errors for storefront configuration
var (
	ErrConfigMissingBaseURL    = errors.New("storefront: base URL is required")
	ErrConfigInvalidBaseURL    = errors.New("storefront: base URL must be absolute")
	ErrConfigMissingAPIKey     = errors.New("storefront: API key is required")
	ErrConfigInvalidAuthMethod = errors.New("storefront: auth method must be basic or bearer")
	ErrAccountNotConfigured    = errors.New("storefront: account is not configured")
)

// Config holds the credentials and limits for one storefront REST API
type Config struct {
	// BaseURL is the API root, e.g. https://shop.example.com/wp-json/wc/v3
	BaseURL string
	// AuthMethod is AuthBasic (key/secret pair) or AuthBearer (APIKey as token)
	AuthMethod string
	APIKey     string
	APISecret  string
	Timeout    time.Duration
	// RateLimit is requests per second; RateBurst the bucket size
	RateLimit float64
	RateBurst int
}

// Validate checks the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrConfigInvalidBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.APIKey == "" {
		return ErrConfigMissingAPIKey
	}
	switch c.AuthMethod {
	case "":
		c.AuthMethod = AuthBasic
	case AuthBasic, AuthBearer:
	default:
		return ErrConfigInvalidAuthMethod
	}

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit <= 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.RateBurst <= 0 {
		c.RateBurst = DefaultRateBurst
	}
	return nil
}
