package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

var AppEnv Config

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	AppEnv   string `envconfig:"APP_ENV" default:"production"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	MongoURI       string `envconfig:"MONGO_URI"`
	DBName         string `envconfig:"DB_NAME" default:"canteen"`
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"mongo"`

	JWTSecret string `envconfig:"JWT_SECRET"`

	ReserveStock         bool          `envconfig:"RESERVE_STOCK" default:"true"`
	RepriceConcurrency   int           `envconfig:"REPRICE_CONCURRENCY" default:"8"`
	TrackingPollInterval time.Duration `envconfig:"TRACKING_POLL_INTERVAL" default:"10s"`

	CheckoutSessionTTL   time.Duration `envconfig:"CHECKOUT_SESSION_TTL" default:"30m"`
	PaymentGatewayURL    string        `envconfig:"PAYMENT_GATEWAY_URL" default:"https://pay.canteen.local"`
	PaymentSimulateAfter time.Duration `envconfig:"PAYMENT_SIMULATE_AFTER" default:"0s"`

	AnalyticsPython    string        `envconfig:"ANALYTICS_PYTHON" default:"python3"`
	AnalyticsScriptDir string        `envconfig:"ANALYTICS_SCRIPT_DIR" default:"scripts"`
	AnalyticsTimeout   time.Duration `envconfig:"ANALYTICS_TIMEOUT" default:"30s"`
}

func (c Config) Development() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	}
	return false
}

// Validate reports settings the service cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.StorageBackend {
	case BackendMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return errors.New("MONGO_URI is required for the mongo storage backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.TrackingPollInterval <= 0 {
		return errors.New("TRACKING_POLL_INTERVAL must be positive")
	}
	return nil
}

// Load reads an optional .env file and then the process environment into
// AppEnv.
func Load() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return err
	}
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	if err := cfg.Validate(); err != nil {
		return err
	}
	AppEnv = cfg
	return nil
}
