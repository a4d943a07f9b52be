// internal/workers/distribution/submit-distribution/config.go
package submitdistribution

import (
	"fmt"
	"time"

	"application-distribution/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 3,
		Timeout:       30 * time.Second,
	}
}

// createConfigFromAppConfig overlays the workers.<task-type> section on the
// defaults.
func createConfigFromAppConfig(appConfig *config.Config) *Config {
	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}
	if wcfg, ok := appConfig.Workers[TaskType]; ok {
		cfg.Enabled = wcfg.Enabled
		if wcfg.MaxJobsActive > 0 {
			cfg.MaxJobsActive = wcfg.MaxJobsActive
		}
		if wcfg.Timeout > 0 {
			cfg.Timeout = config.GetDuration(wcfg.Timeout)
		}
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	return nil
}
