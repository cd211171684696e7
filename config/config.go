package config

import (
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

type Config struct {
	APIBaseURL     string        `envconfig:"API_BASE_URL"     default:"http://127.0.0.1:8000/api"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT"  default:"10s"`
	LogLevel       string        `envconfig:"LOG_LEVEL"        default:"info"`
	LogFormat      string        `envconfig:"LOG_FORMAT"       default:"text"`

	StoreBackend   string `envconfig:"STORE_BACKEND"    default:"file"` // file or redis
	StoreDir       string `envconfig:"STORE_DIR"        default:".freshharvest"`
	RedisURL       string `envconfig:"REDIS_URL"`
	StoreKeyPrefix string `envconfig:"STORE_KEY_PREFIX" default:"freshharvest:"`
	TokenKey       string `envconfig:"TOKEN_KEY"        default:"token"`
	CartKey        string `envconfig:"CART_KEY"         default:"freshharvest_cart"`

	RegisterAutoLogin bool   `envconfig:"REGISTER_AUTO_LOGIN" default:"true"`
	CartLoginPolicy   string `envconfig:"CART_LOGIN_POLICY"   default:"merge"`
	PageSize          int    `envconfig:"PAGE_SIZE"           default:"12"`
}

var (
	config Config
	once   sync.Once
	err    error
)

// LoadConfig reads an optional .env file, then the environment. It runs once
// per process.
func LoadConfig(logger *logrus.Logger) (*Config, error) {
	once.Do(func() {
		loadErr := godotenv.Load()
		if loadErr != nil && !os.IsNotExist(loadErr) {
			logger.Warnf("Error loading .env file (but continuing): %v", loadErr)
		} else if loadErr == nil {
			logger.Info("Loaded configuration from .env file")
		}

		err = Process(&config)
		if err != nil {
			logger.Errorf("Failed to process configuration from environment variables: %v", err)
			return
		}
		logger.Infof("Configuration loaded: API=%s, Timeout=%s, Store=%s, LogLevel=%s",
			config.APIBaseURL, config.RequestTimeout, config.StoreBackend, config.LogLevel)
	})
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// Process fills cfg from the environment only.
func Process(cfg *Config) error {
	return envconfig.Process("", cfg)
}
