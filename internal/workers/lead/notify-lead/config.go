package notifylead

import (
	"fmt"
	"time"

	"mortgage-funnel/internal/common/config"
)

type Config struct {
	Enabled bool
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		Timeout: 30 * time.Second,
	}
}

// LoadConfig reads the notify-lead entry of the workers section.
func LoadConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	wcfg := config.GetWorkerConfig(cfg, TaskType)
	c.Enabled = wcfg.Enabled
	if wcfg.Timeout > 0 {
		c.Timeout = config.GetDuration(wcfg.Timeout)
	}
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
