// Package event defines the typed records streamed to a caller while a
// request moves through the response pipeline.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Type tags an Event.
type Type string

const (
	TypeStatusUpdate  Type = "status_update"
	TypeThinkingChunk Type = "thinking_chunk"
	TypeThinkingDone  Type = "thinking_done"
	TypeFinalAnswer   Type = "final_answer"
	TypeError         Type = "error"
)

// Event is one record of the outbound stream.
type Event struct {
	Type    Type
	Content string
}

func StatusUpdate(content string) Event  { return Event{Type: TypeStatusUpdate, Content: content} }
func ThinkingChunk(content string) Event { return Event{Type: TypeThinkingChunk, Content: content} }
func ThinkingDone() Event                { return Event{Type: TypeThinkingDone} }
func FinalAnswer(content string) Event   { return Event{Type: TypeFinalAnswer, Content: content} }
func Error(content string) Event         { return Event{Type: TypeError, Content: content} }

// Terminal reports whether no further events may follow e.
func (e Event) Terminal() bool {
	return e.Type == TypeFinalAnswer || e.Type == TypeError
}

// MarshalJSON renders the tagged object clients consume. thinking_done
// carries no content field.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Type == TypeThinkingDone {
		return json.Marshal(struct {
			Type Type `json:"type"`
		}{e.Type})
	}
	return json.Marshal(struct {
		Type    Type   `json:"type"`
		Content string `json:"content"`
	}{e.Type, e.Content})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type    Type   `json:"type"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case TypeStatusUpdate, TypeThinkingChunk, TypeThinkingDone, TypeFinalAnswer, TypeError:
	default:
		return fmt.Errorf("unknown event type %q", raw.Type)
	}
	e.Type, e.Content = raw.Type, raw.Content
	return nil
}

// ErrClosed is returned by sinks that can no longer deliver events.
var ErrClosed = errors.New("event sink closed")

// Sink receives events in emission order.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Emit(ctx context.Context, e Event) error { return f(ctx, e) }

// ChannelSink forwards events to a channel. It blocks until the reader
// takes the event or ctx is done.
type ChannelSink struct {
	ch chan<- Event
}

func NewChannelSink(ch chan<- Event) *ChannelSink {
	return &ChannelSink{ch: ch}
}

func (s *ChannelSink) Emit(ctx context.Context, e Event) error {
	select {
	case s.ch <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recorder keeps every event in memory. Useful for one-shot callers.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(_ context.Context, e Event) error {
	r.Events = append(r.Events, e)
	return nil
}

// Last returns the final recorded event.
func (r *Recorder) Last() (Event, bool) {
	if len(r.Events) == 0 {
		return Event{}, false
	}
	return r.Events[len(r.Events)-1], true
}
