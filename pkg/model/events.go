package model

import (
	"encoding/json"
	"fmt"
)

// EventType names a push event on the canvas stream
type EventType string

const (
	EventMessageCommitted EventType = "message_committed"
	EventMessageUpdated   EventType = "message_updated"
	EventMessageDeleted   EventType = "message_deleted"
	EventCanvasUpdated    EventType = "canvas_updated"
	EventHeartbeat        EventType = "heartbeat"
	EventError            EventType = "error"
)

// IsValid returns true if the event type is a recognized value
func (t EventType) IsValid() bool {
	switch t {
	case EventMessageCommitted, EventMessageUpdated, EventMessageDeleted,
		EventCanvasUpdated, EventHeartbeat, EventError:
		return true
	}
	return false
}

// IsMutation returns true for events that change canvas structure or content
func (t EventType) IsMutation() bool {
	switch t {
	case EventMessageCommitted, EventMessageUpdated, EventMessageDeleted, EventCanvasUpdated:
		return true
	}
	return false
}

// StreamEvent is one raw frame read off the event stream
type StreamEvent struct {
	ID    string
	Event string
	Data  []byte
}

// Type returns the event name as an EventType
func (e StreamEvent) Type() EventType {
	return EventType(e.Event)
}

// MessageEvent is the payload of message_committed and message_updated
type MessageEvent struct {
	Type      EventType        `json:"type"`
	Timestamp float64          `json:"timestamp"`
	CanvasID  string           `json:"canvas_id"`
	Data      ConversationNode `json:"data"`
}

// MessageDeletedEvent is the payload of message_deleted
type MessageDeletedEvent struct {
	Type      EventType `json:"type"`
	Timestamp float64   `json:"timestamp"`
	CanvasID  string    `json:"canvas_id"`
	Data      struct {
		MessageID string `json:"message_id"`
	} `json:"data"`
}

// CanvasEvent is the payload of canvas_updated
type CanvasEvent struct {
	Type      EventType `json:"type"`
	Timestamp float64   `json:"timestamp"`
	CanvasID  string    `json:"canvas_id"`
}

// HeartbeatEvent keeps the connection alive
type HeartbeatEvent struct {
	Type      EventType `json:"type"`
	Timestamp float64   `json:"timestamp"`
}

// ErrorEventData describes a server-side stream error
type ErrorEventData struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorEvent is the payload of the error event
type ErrorEvent struct {
	Type      EventType      `json:"type"`
	Timestamp float64        `json:"timestamp"`
	Data      ErrorEventData `json:"data"`
}

// MutationCanvasID decodes a mutation payload and returns the canvas it
// targets. Payloads that do not parse, or parse without a canvas id, are
// reported as errors so the caller can drop the single event.
func MutationCanvasID(ev StreamEvent) (string, error) {
	var canvasID string
	switch ev.Type() {
	case EventMessageCommitted, EventMessageUpdated:
		var p MessageEvent
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return "", fmt.Errorf("decode %s payload: %w", ev.Event, err)
		}
		if err := p.Data.Validate(); err != nil {
			return "", fmt.Errorf("invalid %s payload: %w", ev.Event, err)
		}
		canvasID = p.CanvasID
	case EventMessageDeleted:
		var p MessageDeletedEvent
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return "", fmt.Errorf("decode %s payload: %w", ev.Event, err)
		}
		canvasID = p.CanvasID
	case EventCanvasUpdated:
		var p CanvasEvent
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return "", fmt.Errorf("decode %s payload: %w", ev.Event, err)
		}
		canvasID = p.CanvasID
	default:
		return "", fmt.Errorf("event %q is not a mutation", ev.Event)
	}
	if canvasID == "" {
		return "", fmt.Errorf("%s payload has no canvas_id", ev.Event)
	}
	return canvasID, nil
}
