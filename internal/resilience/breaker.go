package resilience

import (
	"sync"
	"time"

	"github.com/smallbiznis/accreditation/internal/clock"
)

// State is the circuit breaker state of a call target.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	outcomeIgnored
)

// permit is handed out by acquire and must be returned through record.
type permit struct {
	trial bool
}

// Breaker is a count-based sliding window circuit breaker. All state is
// guarded by mu and shared by every request against the same target.
type Breaker struct {
	policy       BreakerPolicy
	clock        clock.Clock
	onTransition func(from, to State)

	mu            sync.Mutex
	state         State
	window        []bool // true marks a failure
	next          int
	size          int
	failures      int
	openedAt      time.Time
	trialInFlight bool
}

func NewBreaker(policy BreakerPolicy, clk clock.Clock, onTransition func(from, to State)) *Breaker {
	if clk == nil {
		clk = clock.New()
	}
	return &Breaker{
		policy:       policy,
		clock:        clk,
		onTransition: onTransition,
		state:        StateClosed,
		window:       make([]bool, policy.WindowSize),
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// acquire decides whether an attempt may reach the downstream.
func (b *Breaker) acquire() (permit, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return permit{}, true
	case StateOpen:
		if b.clock.Now().Sub(b.openedAt) < b.policy.OpenCooldown {
			return permit{}, false
		}
		b.transition(StateHalfOpen)
		b.trialInFlight = true
		return permit{trial: true}, true
	case StateHalfOpen:
		if b.trialInFlight {
			return permit{}, false
		}
		b.trialInFlight = true
		return permit{trial: true}, true
	default:
		return permit{}, false
	}
}

func (b *Breaker) record(p permit, o outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p.trial {
		b.trialInFlight = false
		switch o {
		case outcomeSuccess:
			b.resetWindow()
			b.transition(StateClosed)
		case outcomeFailure:
			b.open()
		}
		return
	}

	// Attempts admitted while Closed that finish after the breaker moved on
	// are dropped; the window only describes the current Closed period.
	if b.state != StateClosed || o == outcomeIgnored {
		return
	}

	if b.size == len(b.window) {
		if b.window[b.next] {
			b.failures--
		}
	} else {
		b.size++
	}
	failed := o == outcomeFailure
	b.window[b.next] = failed
	if failed {
		b.failures++
	}
	b.next = (b.next + 1) % len(b.window)

	if b.size < b.policy.MinimumCalls {
		return
	}
	rate := float64(b.failures) * 100 / float64(b.size)
	if rate >= b.policy.FailureRateThreshold {
		b.open()
	}
}

func (b *Breaker) open() {
	b.resetWindow()
	b.openedAt = b.clock.Now()
	b.transition(StateOpen)
}

func (b *Breaker) resetWindow() {
	for i := range b.window {
		b.window[i] = false
	}
	b.next = 0
	b.size = 0
	b.failures = 0
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if from != to && b.onTransition != nil {
		b.onTransition(from, to)
	}
}
