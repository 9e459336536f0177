package slackbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var slackTracer = otel.Tracer("greetbot/slackbot")

// socketClient abstracts socketmode.Client for testability
type socketClient interface {
	RunContext(ctx context.Context) error
	IncomingEvents() <-chan socketmode.Event
	Ack(req socketmode.Request, payload ...interface{})
}

type socketWrapper struct {
	sm *socketmode.Client
}

func (w *socketWrapper) RunContext(ctx context.Context) error    { return w.sm.RunContext(ctx) }
func (w *socketWrapper) IncomingEvents() <-chan socketmode.Event { return w.sm.Events }
func (w *socketWrapper) Ack(req socketmode.Request, payload ...interface{}) {
	w.sm.Ack(req, payload...)
}

// SocketBot handles Slack events via Socket Mode (xapp- token)
type SocketBot struct {
	app *App
	sm  socketClient
}

// NewSocketBot opens Socket Mode on the App's client. The client must carry
// the app-level token, which NewApp guarantees.
func NewSocketBot(app *App) (*SocketBot, error) {
	if app == nil || app.Client == nil {
		return nil, fmt.Errorf("nil slack app")
	}
	sm := socketmode.New(
		app.Client,
		socketmode.OptionDebug(app.Config.Debug),
		socketmode.OptionLog(app.Logger),
	)
	return newSocketBot(app, &socketWrapper{sm: sm}), nil
}

func newSocketBot(app *App, sm socketClient) *SocketBot {
	return &SocketBot{app: app, sm: sm}
}

// Start runs the websocket and the event loop until ctx is cancelled or the
// connection fails for good.
func (b *SocketBot) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := b.sm.RunContext(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("socketmode run: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		events := b.sm.IncomingEvents()
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				b.handleEvent(gctx, ev)
			}
		}
	})

	return g.Wait()
}

func (b *SocketBot) handleEvent(ctx context.Context, ev socketmode.Event) {
	logger := b.app.Logger

	switch ev.Type {
	case socketmode.EventTypeConnecting:
		logger.Printf("event=socket status=connecting")
	case socketmode.EventTypeConnected:
		logger.Printf("event=socket status=connected")
	case socketmode.EventTypeInvalidAuth:
		logger.Printf("invalid_auth: verify SLACK_APP_TOKEN and SLACK_BOT_TOKEN")
	case socketmode.EventTypeConnectionError:
		logger.Printf("connection_error: %v", ev.Data)
	case socketmode.EventTypeIncomingError:
		logger.Printf("incoming_error: %v", ev.Data)
	case socketmode.EventTypeEventsAPI:
		// Ack first to avoid retries
		if ev.Request != nil {
			b.sm.Ack(*ev.Request)
		}
		payload, ok := ev.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if payload.Type != slackevents.CallbackEvent {
			return
		}
		if ev.Request == nil {
			return
		}
		inner, err := decodeInnerEvent(ev.Request.Payload)
		if err != nil {
			b.app.observe(ctx, payload.InnerEvent.Type, outcomeMalformed, 0)
			logger.Printf("event=decode status=error envelope=%s err=%v", ev.Request.EnvelopeID, err)
			b.app.reporter.Report(err, map[string]string{"envelope_id": ev.Request.EnvelopeID})
			return
		}
		kind, _ := stringField(inner, "type")
		if kind == "" {
			kind = payload.InnerEvent.Type
		}
		b.dispatch(ctx, kind, inner)
	default:
		// ignore
	}
}

// decodeInnerEvent returns the raw inner event of an event_callback envelope.
func decodeInnerEvent(raw json.RawMessage) (map[string]any, error) {
	var envelope struct {
		Event map[string]any `json:"event"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode events api payload: %w", err)
	}
	if envelope.Event == nil {
		return nil, &MalformedEventError{Kind: string(slackevents.CallbackEvent), Field: "event"}
	}
	return envelope.Event, nil
}

func (b *SocketBot) dispatch(ctx context.Context, kind string, inner map[string]any) {
	logger := b.app.Logger
	user, _ := stringField(inner, "user")
	channel, _ := stringField(inner, "channel")

	if !b.app.Router.Routes(kind) {
		b.app.observe(ctx, kind, outcomeIgnored, 0)
		logger.Printf("event=dispatch status=ignored kind=%s", kind)
		return
	}
	if user != "" && user == b.app.BotUserID {
		b.app.observe(ctx, kind, outcomeIgnored, 0)
		logger.Printf("event=dispatch status=ignored kind=%s reason=self", kind)
		return
	}
	if !b.app.rate.Allow(user, channel) {
		b.app.observe(ctx, kind, outcomeRateLimited, 0)
		logger.Printf("rate_limit_exceeded user=%s channel=%s", user, channel)
		return
	}

	requestID := uuid.NewString()
	ctx, span := slackTracer.Start(ctx, "slackbot.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("slack.event_type", kind),
		attribute.String("slack.channel", channel),
		attribute.String("greetbot.request_id", requestID),
	)

	b.app.metrics.Dispatched.Add(1)
	start := time.Now()
	err := b.app.Router.Dispatch(ctx, kind, inner, b.replyTo(inner, requestID))
	duration := time.Since(start)

	outcome := outcomeOK
	var malformed *MalformedEventError
	switch {
	case err == nil:
		logger.Printf("event=dispatch status=ok kind=%s user=%s channel=%s request_id=%s", kind, user, channel, requestID)
	case errors.As(err, &malformed):
		outcome = outcomeMalformed
		logger.Printf("event=dispatch status=malformed kind=%s field=%s request_id=%s", kind, malformed.Field, requestID)
	default:
		outcome = outcomeError
		logger.Printf("event=dispatch status=error kind=%s channel=%s request_id=%s err=%v", kind, channel, requestID, err)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.app.reporter.Report(err, map[string]string{"kind": kind, "channel": channel, "request_id": requestID})
	}
	b.app.observe(ctx, kind, outcome, duration)
}

// replyTo posts into the channel the event came from, threading under the
// triggering message when enabled.
func (b *SocketBot) replyTo(inner map[string]any, requestID string) ReplyFunc {
	channel, _ := stringField(inner, "channel")
	kind, _ := stringField(inner, "type")
	threadTS := ""
	if b.app.Config.EnableThreading {
		threadTS, _ = stringField(inner, "thread_ts")
		if threadTS == "" {
			threadTS, _ = stringField(inner, "ts")
		}
	}

	return func(ctx context.Context, text string) error {
		if channel == "" {
			return &MalformedEventError{Kind: kind, Field: "channel"}
		}
		opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
		if threadTS != "" {
			opts = append(opts, slack.MsgOptionTS(threadTS))
		}
		if _, _, err := b.app.poster.PostMessageContext(ctx, channel, opts...); err != nil {
			b.app.Logger.Printf("event=post_message status=error channel=%s request_id=%s err=%v", channel, requestID, err)
			return fmt.Errorf("post message to %s: %w", channel, err)
		}
		return nil
	}
}
