package slackbot

import (
	"context"
	"fmt"
	"sort"

	"github.com/slack-go/slack/slackevents"

	"github.com/ca-srg/greetbot/internal/config"
)

// Event kinds the bot can be subscribed to.
var knownEventKinds = map[string]struct{}{
	string(slackevents.AppMention):    {},
	string(slackevents.AppHomeOpened): {},
	string(slackevents.Message):       {},
	string(slackevents.ReactionAdded): {},
}

// Handler processes one inbound event payload.
type Handler func(ctx context.Context, payload map[string]any, reply ReplyFunc) error

// Router maps Events API inner event types to handlers. The table is fixed
// after construction.
type Router struct {
	handlers map[string]Handler
}

// NewRouter validates the handler table. Unknown kinds and nil handlers are
// configuration errors so a typo cannot turn into a silent no-op.
func NewRouter(handlers map[string]Handler) (*Router, error) {
	if len(handlers) == 0 {
		return nil, &config.ConfigurationError{Key: "handlers", Reason: "must register at least one event handler"}
	}
	table := make(map[string]Handler, len(handlers))
	for kind, h := range handlers {
		if kind == "" {
			return nil, &config.ConfigurationError{Key: "handlers", Reason: "contain an empty event kind"}
		}
		if _, ok := knownEventKinds[kind]; !ok {
			return nil, &config.ConfigurationError{Key: "handlers", Reason: fmt.Sprintf("contain unknown event kind %q", kind)}
		}
		if h == nil {
			return nil, &config.ConfigurationError{Key: "handlers", Reason: fmt.Sprintf("have a nil handler for %q", kind)}
		}
		table[kind] = h
	}
	return &Router{handlers: table}, nil
}

// Require reports a configuration error for any kind without a handler.
func (r *Router) Require(kinds ...string) error {
	for _, kind := range kinds {
		if _, ok := r.handlers[kind]; !ok {
			return &config.ConfigurationError{Key: "handlers", Reason: fmt.Sprintf("missing handler for required event %q", kind)}
		}
	}
	return nil
}

// Routes reports whether kind has a handler.
func (r *Router) Routes(kind string) bool {
	_, ok := r.handlers[kind]
	return ok
}

// Dispatch runs the handler for kind.
func (r *Router) Dispatch(ctx context.Context, kind string, payload map[string]any, reply ReplyFunc) error {
	h, ok := r.handlers[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnroutedEvent, kind)
	}
	return h(ctx, payload, reply)
}

// Kinds returns the routed event kinds in sorted order.
func (r *Router) Kinds() []string {
	kinds := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
