package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadSlack(t *testing.T) {
	t.Run("parses credentials and defaults", func(t *testing.T) {
		t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
		t.Setenv("SLACK_APP_TOKEN", "xapp-test")

		cfg, err := LoadSlack()
		require.NoError(t, err)

		require.Equal(t, "xoxb-test", cfg.BotToken)
		require.Equal(t, "xapp-test", cfg.AppToken)
		require.False(t, cfg.EnableThreading)
		require.Zero(t, cfg.RateUserPerMinute, "rate limiting is opt-in")
		require.Zero(t, cfg.RateChannelPerMinute)
		require.Zero(t, cfg.RateGlobalPerMinute)
	})

	t.Run("keeps positive budgets and clamps negative ones", func(t *testing.T) {
		t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
		t.Setenv("SLACK_APP_TOKEN", "xapp-test")
		t.Setenv("SLACK_RATE_USER_PER_MINUTE", "5")
		t.Setenv("SLACK_RATE_GLOBAL_PER_MINUTE", "-1")

		cfg, err := LoadSlack()
		require.NoError(t, err)
		require.Equal(t, 5, cfg.RateUserPerMinute)
		require.Zero(t, cfg.RateGlobalPerMinute)
	})

	testcases := []struct {
		name     string
		botToken string
		appToken string
		wantKey  string
	}{
		{name: "missing bot token", botToken: "", appToken: "xapp-test", wantKey: "SLACK_BOT_TOKEN"},
		{name: "blank bot token", botToken: "   ", appToken: "xapp-test", wantKey: "SLACK_BOT_TOKEN"},
		{name: "missing app token", botToken: "xoxb-test", appToken: "", wantKey: "SLACK_APP_TOKEN"},
		{name: "bot token passed as app token", botToken: "xoxb-test", appToken: "xoxb-other", wantKey: "SLACK_APP_TOKEN"},
	}

	for _, tt := range testcases {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SLACK_BOT_TOKEN", tt.botToken)
			t.Setenv("SLACK_APP_TOKEN", tt.appToken)

			cfg, err := LoadSlack()
			require.Nil(t, cfg)

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
			require.Equal(t, tt.wantKey, cfgErr.Key)
			require.Contains(t, err.Error(), tt.wantKey)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("does not override existing variables", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("SLACK_BOT_TOKEN=xoxb-from-file\nGREETBOT_DOTENV_ONLY=loaded\n"), 0o600))

		t.Setenv("SLACK_BOT_TOKEN", "xoxb-from-env")
		t.Setenv("GREETBOT_DOTENV_ONLY", "")
		require.NoError(t, os.Unsetenv("GREETBOT_DOTENV_ONLY"))

		require.NoError(t, LoadDotEnv(path))
		require.Equal(t, "xoxb-from-env", os.Getenv("SLACK_BOT_TOKEN"))
		require.Equal(t, "loaded", os.Getenv("GREETBOT_DOTENV_ONLY"))
	})
}

func TestLoadOTel(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318")

	cfg, err := LoadOTel()
	require.NoError(t, err)
	require.True(t, cfg.Enabled)
	require.Equal(t, "greetbot", cfg.ServiceName)
	require.Equal(t, "http/protobuf", cfg.ExporterOTLPProtocol)
	require.Equal(t, "http://localhost:4318", cfg.ExporterOTLPEndpoint)
}
