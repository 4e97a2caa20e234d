package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"

	"github.com/xenking/food-orders/internal/domain/order"
	"github.com/xenking/food-orders/pkg/httpmiddleware"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (ORDERS_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (ORDERS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing" flag:"api-key-pepper"`
	Orders       OrdersConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// OrdersConfig tunes order placement and the lifecycle.
type OrdersConfig struct {
	IDPrefix          string `default:"VF" usage:"Prefix of generated order ids" flag:"order-id-prefix"`
	DeliveryMin       int    `default:"30" usage:"Lower bound of the delivery estimate in minutes" flag:"delivery-min"`
	DeliveryMax       int    `default:"45" usage:"Upper bound of the delivery estimate in minutes" flag:"delivery-max"`
	StrictTransitions bool   `default:"false" usage:"Reject status changes outside the transition graph" flag:"strict-transitions"`
}

// RedisConfig enables the order cache when Addr is set.
type RedisConfig struct {
	Addr     string        `usage:"Redis address or redis:// URL (or REDIS_URL)" flag:"redis-addr"`
	CacheTTL time.Duration `default:"5m" usage:"Order cache entry lifetime" flag:"redis-cache-ttl"`
}

// KafkaConfig enables order event publishing when Brokers is set.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka broker addresses" flag:"kafka-brokers"`
	Topic   string   `default:"orders.events" usage:"Order events topic" flag:"kafka-topic"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
	// TrustedProxies lists reverse proxies allowed to set X-Forwarded-For.
	TrustedProxies []string `usage:"Trusted proxy CIDRs or addresses" flag:"trusted-proxies"`
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

// LoadConfig reads an optional .env file, then environment variables, YAML
// config files and flags, and finally applies platform defaults.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "ORDERS",
		Files:     []string{"config.yaml", "/etc/orders/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults(os.Getenv)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided variables such as
// DATABASE_URL, PORT and REDIS_URL onto the configuration.
func (c *Config) applyPlatformDefaults(getenv func(string) string) {
	if c.DatabaseURL == "" {
		c.DatabaseURL = getenv("DATABASE_URL")
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = getenv("REDIS_URL")
	}
	if port := getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set ORDERS_DATABASE_URL or DATABASE_URL")
	case c.APIKeyPepper == "":
		return errors.New("api key pepper is required: set ORDERS_API_KEY_PEPPER")
	}
	if c.Orders.IDPrefix == "" {
		c.Orders.IDPrefix = order.DefaultIDPrefix
	}
	if _, err := order.NewUniformEstimator(c.Orders.DeliveryMin, c.Orders.DeliveryMax); err != nil {
		return errors.Wrap(err, "orders delivery bounds")
	}
	if _, err := httpmiddleware.ParseTrustedProxies(c.RateLimit.TrustedProxies); err != nil {
		return errors.Wrap(err, "rate limit trusted proxies")
	}
	return nil
}
