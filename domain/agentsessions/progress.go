package agentsessions

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
)

// EventKind discriminates the progress events surfaced to subscribers.
type EventKind string

const (
	EventThinking   EventKind = "thinking"
	EventText       EventKind = "text"
	EventToolCall   EventKind = "tool_call"
	EventToolResult EventKind = "tool_result"
	EventCompleted  EventKind = "completed"
	EventError      EventKind = "error"
)

// ProgressEvent is one normalized line of agent stdout, ready to forward
// to a session's subscribers.
type ProgressEvent struct {
	SessionID string         `json:"sessionId"`
	Kind      EventKind      `json:"kind"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type stdoutLine struct {
	Type    string `json:"type"`
	Content []struct {
		Type     string `json:"type"`
		Thinking string `json:"thinking"`
		Text     string `json:"text"`
		Name     string `json:"name"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Usage map[string]any `json:"usage"`
	Cost  any            `json:"cost"`
}

// parseLine maps one raw stdout line to a ProgressEvent per the CLI's
// `type` discriminator. It returns ok=false for unrecognized,
// unparseable, or empty-content lines, which the caller silently drops.
func parseLine(sessionID string, raw []byte) (ProgressEvent, bool) {
	var line stdoutLine
	if err := json.Unmarshal(raw, &line); err != nil {
		return ProgressEvent{}, false
	}

	switch line.Type {
	case "assistant":
		if len(line.Content) == 0 {
			return ProgressEvent{}, false
		}
		c := line.Content[0]
		switch c.Type {
		case "thinking":
			msg := c.Thinking
			if len(msg) > 200 {
				msg = msg[:200]
			}
			return ProgressEvent{SessionID: sessionID, Kind: EventThinking, Message: msg}, true
		case "text":
			return ProgressEvent{SessionID: sessionID, Kind: EventText, Message: c.Text}, true
		case "tool_use":
			return ProgressEvent{
				SessionID: sessionID,
				Kind:      EventToolCall,
				Message:   "Using tool: " + c.Name,
				Metadata:  map[string]any{"tool": c.Name},
			}, true
		case "tool_result":
			return ProgressEvent{SessionID: sessionID, Kind: EventToolResult, Message: "Tool completed"}, true
		default:
			return ProgressEvent{}, false
		}
	case "result":
		return ProgressEvent{
			SessionID: sessionID,
			Kind:      EventCompleted,
			Message:   "Agent session completed",
			Metadata:  map[string]any{"cost": line.Cost, "usage": line.Usage},
		}, true
	case "error":
		msg := "unknown error"
		if line.Error != nil && line.Error.Message != "" {
			msg = line.Error.Message
		}
		return ProgressEvent{SessionID: sessionID, Kind: EventError, Message: msg}, true
	default:
		return ProgressEvent{}, false
	}
}

// finalUsageTokens extracts usage.total_tokens from a raw `result` line,
// used by the reaper to persist cost_tokens. Returns ok=false if the line
// isn't a result line or carries no usable token count.
func finalUsageTokens(raw []byte) (int64, bool) {
	var line stdoutLine
	if err := json.Unmarshal(raw, &line); err != nil || line.Type != "result" {
		return 0, false
	}
	v, ok := line.Usage["total_tokens"]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// ProgressHub fans out stdout-derived events to per-session subscribers.
// Modeled on the MCP event store's per-session map, but push-based rather
// than replay-based: a dropped or absent subscriber never blocks
// publication to others.
type ProgressHub struct {
	mu   sync.RWMutex
	subs map[string][]chan ProgressEvent
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: make(map[string][]chan ProgressEvent)}
}

// Subscribe registers a buffered channel for sessionID's events. Callers
// must invoke the returned unsubscribe func when done listening.
func (h *ProgressHub) Subscribe(sessionID string) (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, 64)
	h.mu.Lock()
	h.subs[sessionID] = append(h.subs[sessionID], ch)
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		list := h.subs[sessionID]
		for i, c := range list {
			if c == ch {
				h.subs[sessionID] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(h.subs[sessionID]) == 0 {
			delete(h.subs, sessionID)
		}
		close(ch)
	}
	return ch, unsubscribe
}

// Publish delivers event to every current subscriber of its session. A
// subscriber whose buffer is full is skipped rather than blocking the
// publisher or the other subscribers.
func (h *ProgressHub) Publish(event ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[event.SessionID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// ScanStdout line-buffers r and publishes each recognized line to hub
// until r is exhausted or ctx-equivalent cancellation closes it. Partial
// final lines without a trailing newline are still processed via
// bufio.Scanner's default line-splitting.
func ScanStdout(sessionID string, r io.Reader, hub *ProgressHub) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		event, ok := parseLine(sessionID, scanner.Bytes())
		if !ok {
			continue
		}
		hub.Publish(event)
	}
}
