package vault

import "fmt"

// State is the lifecycle position of one encrypt or decrypt request.
type State int

const (
	StateIdle State = iota
	StateAuthorizing
	StateTransforming
	StateCommitting
	StateCompleted
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:         "idle",
	StateAuthorizing:  "authorizing",
	StateTransforming: "transforming",
	StateCommitting:   "committing",
	StateCompleted:    "completed",
	StateFailed:       "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var transitions = map[State][]State{
	StateIdle:         {StateAuthorizing},
	StateAuthorizing:  {StateTransforming, StateFailed},
	StateTransforming: {StateCommitting, StateFailed},
	StateCommitting:   {StateCompleted, StateFailed},
}

// CanTransition reports whether next may follow s.
func (s State) CanTransition(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// StateObserver is notified of every transition of every request.
type StateObserver func(op Op, from, to State)

// request tracks the state of a single operation.
type request struct {
	op       Op
	state    State
	observer StateObserver
}

func (r *request) move(next State) {
	if !r.state.CanTransition(next) {
		panic(fmt.Sprintf("vault: illegal %s transition %s -> %s", r.op, r.state, next))
	}
	prev := r.state
	r.state = next
	if r.observer != nil {
		r.observer(r.op, prev, next)
	}
}

// finish moves the request to its terminal state. A request that fails
// before authorization starts is first moved to Authorizing so that Failed
// is always reached through a legal edge.
func (r *request) finish(err error) {
	if err == nil {
		r.move(StateCompleted)
		return
	}
	if r.state == StateIdle {
		r.move(StateAuthorizing)
	}
	r.move(StateFailed)
}
