package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/Protocol-Lattice/research-agent/pkg/event"
)

// errStreamEnded is returned for emits attempted after the terminal event.
var errStreamEnded = errors.New("event stream already terminated")

// sinkError marks a delivery failure. The caller is gone, so the
// pipeline stops without a terminal event.
type sinkError struct{ err error }

func (e *sinkError) Error() string { return fmt.Sprintf("emit event: %v", e.err) }
func (e *sinkError) Unwrap() error { return e.err }

// emitter guards a sink so that exactly one terminal event is delivered
// and nothing follows it.
type emitter struct {
	sink       event.Sink
	terminated bool
	failed     error
	onTerminal func(event.Type)
}

func newEmitter(sink event.Sink, onTerminal func(event.Type)) *emitter {
	return &emitter{sink: sink, onTerminal: onTerminal}
}

func (e *emitter) Emit(ctx context.Context, ev event.Event) error {
	if e.terminated {
		return errStreamEnded
	}
	if e.failed != nil {
		return e.failed
	}
	if err := e.sink.Emit(ctx, ev); err != nil {
		e.failed = &sinkError{err: err}
		return e.failed
	}
	if ev.Terminal() {
		e.terminated = true
		if e.onTerminal != nil {
			e.onTerminal(ev.Type)
		}
	}
	return nil
}

func isSinkError(err error) bool {
	var se *sinkError
	return errors.As(err, &se)
}
