package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig     *AppConfig
	BrowserConfig *BrowserConfig
	LocatorConfig *LocatorConfig
}

type AppConfig struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type BrowserConfig struct {
	Enabled  bool `envconfig:"BROWSER_ENABLED" default:"false"`
	Headless bool `envconfig:"BROWSER_HEADLESS" default:"true"`
	SlowMo   int  `envconfig:"BROWSER_SLOW_MO" default:"0"`
	Timeout  int  `envconfig:"BROWSER_TIMEOUT" default:"30000"`
}

type LocatorConfig struct {
	RevealPause       time.Duration `envconfig:"LOCATOR_REVEAL_PAUSE" default:"300ms"`
	RefreshInterval   time.Duration `envconfig:"LOCATOR_REFRESH_INTERVAL" default:"200ms"`
	VisibleFor        time.Duration `envconfig:"LOCATOR_VISIBLE_FOR" default:"3s"`
	SelectorCacheSize int           `envconfig:"LOCATOR_SELECTOR_CACHE" default:"256"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	return &conf, nil
}
