package store

import (
	"context"
	"time"
)

// EventType defines the events published by a Store.
type EventType string

const (
	PresetLoaded     EventType = "preset:load:success"
	PresetLoadFailed EventType = "preset:load:failed"
	PresetReplaced   EventType = "preset:replace"
	PresetRestored   EventType = "preset:restore"
	PresetRemoved    EventType = "preset:remove"
	PresetSaved      EventType = "preset:save:success"
	PresetSaveFailed EventType = "preset:save:failed"
)

// Event is the payload of every store notification.
type Event struct {
	Type       EventType `json:"type"`               // The type of event.
	Timestamp  int64     `json:"timestamp"`          // Unix milliseconds.
	Preset     string    `json:"preset"`             // Identifier of the affected preset.
	Generation uint64    `json:"generation"`         // Store generation of the preset when the event fired.
	Error      *string   `json:"error,omitempty"`    // Error message if the operation failed.
	Duration   *int64    `json:"duration,omitempty"` // Duration of the operation in milliseconds.
	Context    any       `json:"context,omitempty"`  // Operation specific data, e.g. the saved wire document.
}

// EventCallback receives store events. Returned errors are reported by the
// event bus and do not affect the store.
type EventCallback func(ctx context.Context, event Event) error

// SubscriptionInfo describes a registered subscription.
type SubscriptionInfo struct {
	ID          string    `json:"id"`
	Event       EventType `json:"event"`
	Label       string    `json:"label,omitempty"`
	Unsubscribe func()    `json:"-"`
}

// NewEvent builds an event. A zero startTime omits the duration; a nil err
// omits the error message.
func NewEvent(eventType EventType, presetID string, generation uint64, err error, detail any, startTime time.Time) Event {
	var duration *int64
	if !startTime.IsZero() {
		d := time.Since(startTime).Milliseconds()
		duration = &d
	}

	var msg *string
	if err != nil {
		s := err.Error()
		msg = &s
	}

	return Event{
		Type:       eventType,
		Timestamp:  time.Now().UnixMilli(),
		Preset:     presetID,
		Generation: generation,
		Error:      msg,
		Duration:   duration,
		Context:    detail,
	}
}
