package slackbot

import (
	"context"
	"errors"
	"testing"

	"github.com/ca-srg/greetbot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler(context.Context, map[string]any, ReplyFunc) error { return nil }

func TestNewRouterRejectsInvalidTables(t *testing.T) {
	testcases := []struct {
		name     string
		handlers map[string]Handler
		want     string
	}{
		{name: "empty table", handlers: nil, want: "at least one"},
		{name: "empty kind", handlers: map[string]Handler{"": noopHandler}, want: "empty event kind"},
		{name: "unknown kind", handlers: map[string]Handler{"app_mentoin": noopHandler}, want: `unknown event kind "app_mentoin"`},
		{name: "nil handler", handlers: map[string]Handler{EventAppMention: nil}, want: "nil handler"},
	}

	for _, tt := range testcases {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRouter(tt.handlers)
			require.Nil(t, r)

			var cfgErr *config.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRouterRequire(t *testing.T) {
	r, err := NewRouter(map[string]Handler{"reaction_added": noopHandler})
	require.NoError(t, err)

	err = r.Require(EventAppMention)
	var cfgErr *config.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), EventAppMention)

	require.NoError(t, r.Require("reaction_added"))
}

func TestRouterDispatch(t *testing.T) {
	var got map[string]any
	r, err := NewRouter(map[string]Handler{
		EventAppMention: func(_ context.Context, payload map[string]any, reply ReplyFunc) error {
			got = payload
			return reply(context.Background(), "ok")
		},
	})
	require.NoError(t, err)

	rec := &replyRecorder{}
	payload := map[string]any{"user": "U1"}
	require.NoError(t, r.Dispatch(context.Background(), EventAppMention, payload, rec.reply))
	assert.Equal(t, payload, got)
	assert.Equal(t, []string{"ok"}, rec.calls())

	err = r.Dispatch(context.Background(), "message", payload, rec.reply)
	require.ErrorIs(t, err, ErrUnroutedEvent)
	assert.Len(t, rec.calls(), 1)
}

func TestRouterKindsSorted(t *testing.T) {
	r, err := NewRouter(map[string]Handler{
		"reaction_added": noopHandler,
		EventAppMention:  noopHandler,
		"message":        noopHandler,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"app_mention", "message", "reaction_added"}, r.Kinds())
}

func TestRouterRoutes(t *testing.T) {
	r, err := NewRouter(map[string]Handler{EventAppMention: noopHandler})
	require.NoError(t, err)
	assert.True(t, r.Routes(EventAppMention))
	assert.False(t, r.Routes("message"))
	assert.False(t, r.Routes(""))
}
