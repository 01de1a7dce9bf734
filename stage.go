package agent

import (
	"errors"
	"fmt"
	"time"
)

// Stage is a pipeline state.
type Stage string

const (
	StageStart           Stage = "start"
	StageClassifying     Stage = "classifying"
	StageDirectAnswering Stage = "direct_answering"
	StageReasoning       Stage = "reasoning"
	StageToolPending     Stage = "tool_pending"
	StageToolObserved    Stage = "tool_observed"
	StageSynthesizing    Stage = "synthesizing"
	StageDone            Stage = "done"
	StageError           Stage = "error"
)

// ErrInvalidTransition reports a pipeline step taken out of order.
var ErrInvalidTransition = errors.New("invalid stage transition")

var transitions = map[Stage][]Stage{
	StageStart:           {StageClassifying},
	StageClassifying:     {StageDirectAnswering, StageReasoning},
	StageDirectAnswering: {StageDone},
	StageReasoning:       {StageToolPending, StageSynthesizing},
	StageToolPending:     {StageToolObserved},
	StageToolObserved:    {StageReasoning},
	StageSynthesizing:    {StageDone},
}

// Terminal reports whether no transition leaves s.
func (s Stage) Terminal() bool { return s == StageDone || s == StageError }

// CanTransition reports whether the table allows from -> to. Error is
// reachable from every non-terminal stage.
func CanTransition(from, to Stage) bool {
	if from.Terminal() {
		return false
	}
	if to == StageError {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// stageMachine walks one request through the table. Reasoning may be
// re-entered once, after a tool observation.
type stageMachine struct {
	current  Stage
	entered  time.Time
	toolUsed bool
	now      func() time.Time
	observe  func(stage Stage, d time.Duration)
}

func newStageMachine(observe func(Stage, time.Duration)) *stageMachine {
	m := &stageMachine{current: StageStart, now: time.Now, observe: observe}
	m.entered = m.now()
	return m
}

func (m *stageMachine) Current() Stage { return m.current }

func (m *stageMachine) To(next Stage) error {
	if !CanTransition(m.current, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.current, next)
	}
	if next == StageToolPending {
		if m.toolUsed {
			return fmt.Errorf("%w: second tool call", ErrInvalidTransition)
		}
		m.toolUsed = true
	}
	now := m.now()
	if m.observe != nil {
		m.observe(m.current, now.Sub(m.entered))
	}
	m.current, m.entered = next, now
	return nil
}
