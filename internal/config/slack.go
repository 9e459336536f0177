package config

import (
	"fmt"
	"strings"

	env "github.com/netflix/go-env"
)

const appTokenPrefix = "xapp-"

// SlackConfig holds Slack-related settings
type SlackConfig struct {
	// Bot token (xoxb-) used for Web API calls such as chat.postMessage
	BotToken string `env:"SLACK_BOT_TOKEN"`
	// App-level token (xapp-) used to open the Socket Mode connection
	AppToken        string `env:"SLACK_APP_TOKEN"`
	EnableThreading bool   `env:"SLACK_ENABLE_THREADING,default=false"`
	Debug           bool   `env:"SLACK_DEBUG,default=false"`
	// Reply budgets per minute; zero leaves that scope unthrottled
	RateUserPerMinute    int `env:"SLACK_RATE_USER_PER_MINUTE,default=0"`
	RateChannelPerMinute int `env:"SLACK_RATE_CHANNEL_PER_MINUTE,default=0"`
	RateGlobalPerMinute  int `env:"SLACK_RATE_GLOBAL_PER_MINUTE,default=0"`
}

// LoadSlack loads Slack configuration from environment variables
func LoadSlack() (*SlackConfig, error) {
	var cfg SlackConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that both credentials are present. Negative rate budgets
// are treated as zero.
func (c *SlackConfig) Validate() error {
	c.BotToken = strings.TrimSpace(c.BotToken)
	c.AppToken = strings.TrimSpace(c.AppToken)

	if c.BotToken == "" {
		return &ConfigurationError{Key: "SLACK_BOT_TOKEN", Reason: "is not defined in environment variables"}
	}
	if c.AppToken == "" {
		return &ConfigurationError{Key: "SLACK_APP_TOKEN", Reason: "is not defined in environment variables"}
	}
	if !strings.HasPrefix(c.AppToken, appTokenPrefix) {
		return &ConfigurationError{Key: "SLACK_APP_TOKEN", Reason: "must be an app-level token starting with " + appTokenPrefix}
	}

	c.RateUserPerMinute = max(c.RateUserPerMinute, 0)
	c.RateChannelPerMinute = max(c.RateChannelPerMinute, 0)
	c.RateGlobalPerMinute = max(c.RateGlobalPerMinute, 0)
	return nil
}
