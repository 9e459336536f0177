package slackbot

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/slack-go/slack"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/ca-srg/greetbot/internal/config"
)

// messagePoster is the subset of slack.Client used to deliver replies.
type messagePoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// authTester is the subset of slack.Client used to resolve the bot identity.
type authTester interface {
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
}

// App is the application context built once at startup and handed to the
// connection layer. It owns the Slack client, the handler table and the
// shared collaborators used while handling events.
type App struct {
	Config    *config.SlackConfig
	Client    *slack.Client
	Router    *Router
	Logger    *log.Logger
	BotUserID string

	poster        messagePoster
	auth          authTester
	rate          *MentionLimiter
	metrics       *Metrics
	meterProvider metric.MeterProvider
	inst          *instruments
	// reporter is a hook for forwarding handler failures to an external
	// tracker; failures are always logged regardless.
	reporter ErrorReporter
}

// AppOption customizes App construction.
type AppOption func(*App)

// WithErrorReporter routes handler failures to r.
func WithErrorReporter(r ErrorReporter) AppOption {
	return func(a *App) { a.reporter = r }
}

// WithMentionLimiter overrides the limiter derived from the config. A nil
// limiter disables throttling.
func WithMentionLimiter(rl *MentionLimiter) AppOption {
	return func(a *App) { a.rate = rl }
}

// WithMeterProvider records dispatch metrics on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) AppOption {
	return func(a *App) { a.meterProvider = mp }
}

// WithMessagePoster replaces the Slack client used for replies.
func WithMessagePoster(p messagePoster) AppOption {
	return func(a *App) { a.poster = p }
}

// WithAuthTester replaces the Slack client used by Identify.
func WithAuthTester(t authTester) AppOption {
	return func(a *App) { a.auth = t }
}

// NewApp builds the Slack client and registers the app_mention responder.
func NewApp(cfg *config.SlackConfig, logger *log.Logger, opts ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, &config.ConfigurationError{Key: "slack", Reason: "configuration is nil"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(os.Stdout, "slackbot ", log.LstdFlags)
	}

	client := slack.New(
		cfg.BotToken,
		slack.OptionAppLevelToken(cfg.AppToken),
		slack.OptionDebug(cfg.Debug),
		slack.OptionLog(logger),
	)

	responder := &Responder{}
	router, err := NewRouter(map[string]Handler{
		EventAppMention: responder.OnMention,
	})
	if err != nil {
		return nil, err
	}
	if err := router.Require(EventAppMention); err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Client:   client,
		Router:   router,
		Logger:   logger,
		poster:   client,
		auth:     client,
		rate:     NewMentionLimiter(cfg.RateUserPerMinute, cfg.RateChannelPerMinute, cfg.RateGlobalPerMinute),
		metrics:  &Metrics{},
		reporter: &noopReporter{},
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.reporter == nil {
		app.reporter = &noopReporter{}
	}
	if app.meterProvider == nil {
		app.meterProvider = otel.GetMeterProvider()
	}
	app.inst = newInstruments(app.meterProvider, logger)
	return app, nil
}

// Identify resolves the bot user id with auth.test. A rejected bot token
// surfaces here, before the socket is opened. Mentions authored by this id
// are not answered.
func (a *App) Identify(ctx context.Context) error {
	resp, err := a.auth.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth.test failed: %w", err)
	}
	a.BotUserID = resp.UserID
	a.Logger.Printf("event=auth_test status=ok team=%s bot_user=%s", resp.Team, resp.UserID)
	return nil
}

// Metrics exposes the in-process counters.
func (a *App) Metrics() *Metrics { return a.metrics }
