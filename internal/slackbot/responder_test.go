package slackbot

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replyRecorder struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (r *replyRecorder) reply(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return r.err
}

func (r *replyRecorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func TestResponderOnMentionGreetsSender(t *testing.T) {
	rec := &replyRecorder{}
	err := (&Responder{}).OnMention(context.Background(), map[string]any{"user": "U123"}, rec.reply)
	require.NoError(t, err)
	require.Equal(t, []string{"<@U123> こんにちは！"}, rec.calls())
}

func TestResponderOnMentionRepliesPerSender(t *testing.T) {
	rec := &replyRecorder{}
	r := &Responder{}

	require.NoError(t, r.OnMention(context.Background(), map[string]any{"user": "UALICE"}, rec.reply))
	require.NoError(t, r.OnMention(context.Background(), map[string]any{"user": "UBOB"}, rec.reply))

	calls := rec.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "<@UALICE> こんにちは！", calls[0])
	assert.NotContains(t, calls[0], "UBOB")
	assert.Equal(t, "<@UBOB> こんにちは！", calls[1])
	assert.NotContains(t, calls[1], "UALICE")
}

func TestResponderOnMentionRejectsMalformedPayload(t *testing.T) {
	testcases := []struct {
		name    string
		payload map[string]any
	}{
		{name: "empty payload", payload: map[string]any{}},
		{name: "nil payload", payload: nil},
		{name: "empty user", payload: map[string]any{"user": ""}},
		{name: "non-string user", payload: map[string]any{"user": 42}},
	}

	for _, tt := range testcases {
		t.Run(tt.name, func(t *testing.T) {
			rec := &replyRecorder{}
			err := (&Responder{}).OnMention(context.Background(), tt.payload, rec.reply)

			var malformed *MalformedEventError
			require.True(t, errors.As(err, &malformed), "expected MalformedEventError, got %v", err)
			assert.Equal(t, "user", malformed.Field)
			assert.Equal(t, EventAppMention, malformed.Kind)
			assert.Empty(t, rec.calls(), "no reply may be sent for a malformed event")
		})
	}
}

func TestResponderOnMentionDoesNotMutatePayload(t *testing.T) {
	payload := map[string]any{"user": "U1", "channel": "C1", "text": "<@UBOT> hi", "type": "app_mention"}
	snapshot := map[string]any{}
	for k, v := range payload {
		snapshot[k] = v
	}

	rec := &replyRecorder{}
	require.NoError(t, (&Responder{}).OnMention(context.Background(), payload, rec.reply))
	require.Equal(t, snapshot, payload)
	require.Len(t, rec.calls(), 1)
}

func TestResponderOnMentionPropagatesReplyError(t *testing.T) {
	wantErr := errors.New("channel_not_found")
	rec := &replyRecorder{err: wantErr}

	err := (&Responder{}).OnMention(context.Background(), map[string]any{"user": "U1"}, rec.reply)
	require.ErrorIs(t, err, wantErr)
	require.Len(t, rec.calls(), 1, "reply is attempted exactly once")
}

func TestResponderOnMentionIsSafeForConcurrentUse(t *testing.T) {
	rec := &replyRecorder{}
	r := &Responder{}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.OnMention(context.Background(), map[string]any{"user": "U1"}, rec.reply)
		}()
	}
	wg.Wait()

	calls := rec.calls()
	require.Len(t, calls, 32)
	for _, c := range calls {
		require.Equal(t, "<@U1> こんにちは！", c)
	}
}

func TestParseMentionEvent(t *testing.T) {
	payload := map[string]any{
		"type":      "app_mention",
		"user":      "U9",
		"channel":   "C9",
		"thread_ts": "1700000000.000100",
	}
	ev, err := ParseMentionEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, EventAppMention, ev.Kind)
	assert.Equal(t, "U9", ev.User)
	assert.Equal(t, "C9", ev.Channel)
	assert.Equal(t, "1700000000.000100", ev.ThreadTS)
}
