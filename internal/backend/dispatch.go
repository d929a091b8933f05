package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ErrExhausted is returned when no registered strategy exists or every one
// failed. Callers resolve it by running a reference implementation; it is
// never surfaced as a run failure.
var ErrExhausted = errors.New("no backend strategy produced a valid result")

// State is the dispatcher's position in its lifecycle.
type State int

const (
	StatePending State = iota
	StateTrying
	StateSucceeded
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateTrying:
		return "trying"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Strategy is one candidate backend invocation. Run produces a raw result;
// Check verifies the structural contract. A strategy fails on a Run error
// or a Check error; the dispatcher then advances to the next one.
type Strategy[R any] struct {
	ID    string
	Run   func() (R, error)
	Check func(R) error
}

// Attempt records one tried strategy and why it failed. Err is nil for the
// succeeding attempt.
type Attempt struct {
	ID  string
	Err error
}

// Dispatcher tries a priority-ordered list of strategies and commits to the
// first structurally valid result. At most one strategy ever succeeds: no
// strategy after the first success is invoked. The order is caller-supplied
// and stable; nothing reorders it.
type Dispatcher[R any] struct {
	strategies []Strategy[R]
	log        *slog.Logger

	state    State
	attempts []Attempt
	chosen   string
}

// NewDispatcher creates a dispatcher over the given strategies. A nil
// logger discards per-attempt diagnostics.
func NewDispatcher[R any](strategies []Strategy[R], logger *slog.Logger) *Dispatcher[R] {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher[R]{
		strategies: strategies,
		log:        logger,
		state:      StatePending,
	}
}

// Dispatch runs the strategy list once. On success it returns the first
// valid result and the winning strategy's ID. When no strategy exists or
// all fail it returns ErrExhausted. Dispatch is single-shot: calling it on
// a dispatcher that already left StatePending is an error.
func (d *Dispatcher[R]) Dispatch() (R, string, error) {
	var zero R
	if d.state != StatePending {
		return zero, "", fmt.Errorf("dispatcher already ran (state %s)", d.state)
	}

	for i, s := range d.strategies {
		d.state = StateTrying
		result, err := d.tryStrategy(s)
		if err != nil {
			d.attempts = append(d.attempts, Attempt{ID: s.ID, Err: err})
			d.log.Warn("backend strategy failed",
				"strategy", s.ID, "index", i, "error", err)
			continue
		}
		d.attempts = append(d.attempts, Attempt{ID: s.ID})
		d.state = StateSucceeded
		d.chosen = s.ID
		d.log.Debug("backend strategy succeeded", "strategy", s.ID, "index", i)
		return result, s.ID, nil
	}

	d.state = StateExhausted
	return zero, "", ErrExhausted
}

// tryStrategy invokes one strategy, converting panics in foreign backend
// code into ordinary per-strategy failures.
func (d *Dispatcher[R]) tryStrategy(s Strategy[R]) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panicked: %v", r)
		}
	}()

	result, err = s.Run()
	if err != nil {
		return result, err
	}
	if s.Check != nil {
		if cerr := s.Check(result); cerr != nil {
			return result, fmt.Errorf("structurally invalid result: %w", cerr)
		}
	}
	return result, nil
}

// State returns the dispatcher's current state.
func (d *Dispatcher[R]) State() State { return d.state }

// Chosen returns the ID of the succeeding strategy, or "" when none did.
func (d *Dispatcher[R]) Chosen() string { return d.chosen }

// Attempts returns the audit trail of tried strategies in order.
func (d *Dispatcher[R]) Attempts() []Attempt {
	out := make([]Attempt, len(d.attempts))
	copy(out, d.attempts)
	return out
}
