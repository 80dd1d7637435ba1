package agentsessions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLine(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		wantKind EventKind
		wantMsg  string
		wantOK   bool
	}{
		{
			name:     "thinking",
			raw:      `{"type":"assistant","content":[{"type":"thinking","thinking":"pondering the fix"}]}`,
			wantKind: EventThinking,
			wantMsg:  "pondering the fix",
			wantOK:   true,
		},
		{
			name:     "text",
			raw:      `{"type":"assistant","content":[{"type":"text","text":"done editing"}]}`,
			wantKind: EventText,
			wantMsg:  "done editing",
			wantOK:   true,
		},
		{
			name:     "tool_use",
			raw:      `{"type":"assistant","content":[{"type":"tool_use","name":"bash"}]}`,
			wantKind: EventToolCall,
			wantMsg:  "Using tool: bash",
			wantOK:   true,
		},
		{
			name:     "tool_result",
			raw:      `{"type":"assistant","content":[{"type":"tool_result"}]}`,
			wantKind: EventToolResult,
			wantMsg:  "Tool completed",
			wantOK:   true,
		},
		{
			name:     "result",
			raw:      `{"type":"result","usage":{"total_tokens":42}}`,
			wantKind: EventCompleted,
			wantMsg:  "Agent session completed",
			wantOK:   true,
		},
		{
			name:     "error with message",
			raw:      `{"type":"error","error":{"message":"boom"}}`,
			wantKind: EventError,
			wantMsg:  "boom",
			wantOK:   true,
		},
		{
			name:     "error without message",
			raw:      `{"type":"error"}`,
			wantKind: EventError,
			wantMsg:  "unknown error",
			wantOK:   true,
		},
		{name: "unrecognized type", raw: `{"type":"system"}`, wantOK: false},
		{name: "empty assistant content", raw: `{"type":"assistant","content":[]}`, wantOK: false},
		{name: "unparseable", raw: `not json`, wantOK: false},
		{name: "empty line", raw: ``, wantOK: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event, ok := parseLine("session-1", []byte(tc.raw))
			assert.Equal(t, tc.wantOK, ok)
			if !tc.wantOK {
				return
			}
			assert.Equal(t, tc.wantKind, event.Kind)
			assert.Equal(t, tc.wantMsg, event.Message)
			assert.Equal(t, "session-1", event.SessionID)
		})
	}
}

func TestParseLine_ThinkingTruncatedTo200Chars(t *testing.T) {
	long := ""
	for i := 0; i < 300; i++ {
		long += "a"
	}
	raw := `{"type":"assistant","content":[{"type":"thinking","thinking":"` + long + `"}]}`
	event, ok := parseLine("s", []byte(raw))
	assert.True(t, ok)
	assert.Len(t, event.Message, 200)
}

func TestFinalUsageTokens(t *testing.T) {
	tokens, ok := finalUsageTokens([]byte(`{"type":"result","usage":{"total_tokens":123}}`))
	assert.True(t, ok)
	assert.Equal(t, int64(123), tokens)

	_, ok = finalUsageTokens([]byte(`{"type":"assistant"}`))
	assert.False(t, ok)
}

func TestProgressHub_PublishAndSubscribe(t *testing.T) {
	hub := NewProgressHub()
	ch, unsubscribe := hub.Subscribe("s1")
	defer unsubscribe()

	hub.Publish(ProgressEvent{SessionID: "s1", Kind: EventText, Message: "hi"})
	hub.Publish(ProgressEvent{SessionID: "other", Kind: EventText, Message: "ignored"})

	select {
	case event := <-ch:
		assert.Equal(t, "hi", event.Message)
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestProgressHub_NonSubscribingSessionIsNonBlockingSink(t *testing.T) {
	hub := NewProgressHub()
	assert.NotPanics(t, func() {
		hub.Publish(ProgressEvent{SessionID: "nobody-listening", Kind: EventText, Message: "x"})
	})
}
