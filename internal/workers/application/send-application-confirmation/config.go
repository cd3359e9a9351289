// internal/workers/application/send-application-confirmation/config.go
package sendapplicationconfirmation

import (
	"time"

	"affiliate-portal/internal/common/config"
)

type Config struct {
	EmailEnabled bool
	FromEmail    string
	Timeout      time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	wcfg := config.GetWorkerConfig(cfg, TaskType)

	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Config{
		EmailEnabled: cfg.Integrations.AWS.SES.Enabled,
		FromEmail:    cfg.Integrations.AWS.SES.FromEmail,
		Timeout:      timeout,
	}
}
