// internal/workers/application/notify-application-review/config.go
package notifyapplicationreview

import (
	"time"

	"affiliate-portal/internal/common/config"
)

type Config struct {
	Enabled  bool
	TopicARN string
	Timeout  time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	wcfg := config.GetWorkerConfig(cfg, TaskType)

	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	sns := cfg.Integrations.AWS.SNS
	return &Config{
		Enabled:  sns.Enabled && sns.TopicARN != "",
		TopicARN: sns.TopicARN,
		Timeout:  timeout,
	}
}
