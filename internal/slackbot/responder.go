package slackbot

import (
	"context"
	"fmt"

	"github.com/slack-go/slack/slackevents"
)

// EventAppMention is the inner event type delivered when the bot is mentioned.
const EventAppMention = string(slackevents.AppMention)

// Greeting is appended to the sender mention in every reply.
const Greeting = "こんにちは！"

// ReplyFunc delivers text back to the conversation an event came from.
type ReplyFunc func(ctx context.Context, text string) error

// MentionEvent is the decoded form of an app_mention inner event.
type MentionEvent struct {
	Kind     string
	User     string
	Channel  string
	ThreadTS string
	// Payload is the raw inner event; it is shared, not copied.
	Payload map[string]any
}

// ParseMentionEvent extracts the sender from an app_mention payload without
// modifying it.
func ParseMentionEvent(payload map[string]any) (MentionEvent, error) {
	user, ok := stringField(payload, "user")
	if !ok {
		return MentionEvent{}, &MalformedEventError{Kind: EventAppMention, Field: "user"}
	}
	channel, _ := stringField(payload, "channel")
	threadTS, _ := stringField(payload, "thread_ts")
	return MentionEvent{
		Kind:     EventAppMention,
		User:     user,
		Channel:  channel,
		ThreadTS: threadTS,
		Payload:  payload,
	}, nil
}

func stringField(payload map[string]any, key string) (string, bool) {
	v, ok := payload[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// MentionText renders the Slack mention markup for a user id.
func MentionText(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

// GreetingFor builds the reply sent to a user who mentioned the bot.
func GreetingFor(userID string) string {
	return MentionText(userID) + " " + Greeting
}

// Responder answers app_mention events with a greeting. It holds no state
// and may be called concurrently.
type Responder struct{}

// OnMention replies exactly once to a well-formed mention. A payload without a
// sender yields *MalformedEventError and no reply.
func (r *Responder) OnMention(ctx context.Context, payload map[string]any, reply ReplyFunc) error {
	ev, err := ParseMentionEvent(payload)
	if err != nil {
		return err
	}
	if reply == nil {
		return fmt.Errorf("slackbot: nil reply function for %s", ev.Kind)
	}
	return reply(ctx, GreetingFor(ev.User))
}
