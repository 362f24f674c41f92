package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_Transitions(t *testing.T) {
	assert.True(t, StateIdle.CanTransition(StateAuthorizing))
	assert.True(t, StateAuthorizing.CanTransition(StateFailed))
	assert.True(t, StateTransforming.CanTransition(StateFailed))
	assert.True(t, StateCommitting.CanTransition(StateCompleted))

	assert.False(t, StateIdle.CanTransition(StateTransforming))
	assert.False(t, StateIdle.CanTransition(StateFailed))
	assert.False(t, StateCompleted.CanTransition(StateFailed))
	assert.False(t, StateFailed.CanTransition(StateAuthorizing))

	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateCommitting.Terminal())

	assert.Equal(t, "transforming", StateTransforming.String())
	assert.Equal(t, "state(99)", State(99).String())
}

func TestRequest_IllegalMovePanics(t *testing.T) {
	r := &request{op: OpEncrypt}
	assert.Panics(t, func() { r.move(StateCommitting) })
}

func TestRequest_FinishFromIdle(t *testing.T) {
	var seen []State
	r := &request{op: OpDecrypt, observer: func(_ Op, _, to State) { seen = append(seen, to) }}
	r.finish(assert.AnError)
	assert.Equal(t, []State{StateAuthorizing, StateFailed}, seen)
}
