package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]Stage{
		{StageStart, StageClassifying},
		{StageClassifying, StageDirectAnswering},
		{StageClassifying, StageReasoning},
		{StageDirectAnswering, StageDone},
		{StageReasoning, StageToolPending},
		{StageReasoning, StageSynthesizing},
		{StageToolPending, StageToolObserved},
		{StageToolObserved, StageReasoning},
		{StageSynthesizing, StageDone},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	denied := [][2]Stage{
		{StageStart, StageReasoning},
		{StageDirectAnswering, StageSynthesizing},
		{StageToolPending, StageSynthesizing},
		{StageReasoning, StageDone},
		{StageDone, StageError},
		{StageError, StageStart},
	}
	for _, tr := range denied {
		assert.False(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	for _, s := range []Stage{StageStart, StageClassifying, StageDirectAnswering, StageReasoning, StageToolPending, StageToolObserved, StageSynthesizing} {
		assert.True(t, CanTransition(s, StageError), "%s -> error", s)
	}
}

func TestStageMachineAllowsSingleToolLoop(t *testing.T) {
	var observed []Stage
	m := newStageMachine(func(s Stage, _ time.Duration) { observed = append(observed, s) })

	for _, s := range []Stage{StageClassifying, StageReasoning, StageToolPending, StageToolObserved, StageReasoning} {
		require.NoError(t, m.To(s))
	}
	assert.ErrorIs(t, m.To(StageToolPending), ErrInvalidTransition)
	require.NoError(t, m.To(StageSynthesizing))
	require.NoError(t, m.To(StageDone))
	assert.ErrorIs(t, m.To(StageError), ErrInvalidTransition)

	assert.Equal(t, []Stage{
		StageStart, StageClassifying, StageReasoning, StageToolPending,
		StageToolObserved, StageReasoning, StageSynthesizing,
	}, observed)
	assert.Equal(t, StageDone, m.Current())
}
