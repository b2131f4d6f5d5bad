package infra

import (
	"errors"
	"sync"
	"time"
)

// ── Circuit Breaker ───────────────────────────────────────────────────────────
// Guards outbound calls to the messaging gateway (Closed -> Open -> Half-Open).
// While open every call fails fast and the notification is marked failed for
// the retry scheduler instead of hammering a gateway that is down.

type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures to trip open
	SuccessThreshold int           // consecutive half-open successes to close
	OpenTimeout      time.Duration // time spent open before probing
	// OnStateChange, if set, is called outside the lock after every transition.
	OnStateChange func(from, to CBState)
}

func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 1,
		OpenTimeout:      30 * time.Second,
	}
}

type CircuitBreaker struct {
	mu          sync.Mutex
	cfg         CircuitBreakerConfig
	state       CBState
	failures    int
	successes   int
	openedAt    time.Time
	probeActive bool
	now         func() time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	return &CircuitBreaker{cfg: cfg, state: CBClosed, now: time.Now}
}

func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	from, to := cb.advance()
	state := cb.state
	cb.mu.Unlock()
	cb.notify(from, to)
	return state
}

// Execute runs fn unless the breaker is open. In half-open only one probe
// runs at a time; concurrent callers fail fast.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	from, to := cb.advance()
	switch {
	case cb.state == CBOpen, cb.state == CBHalfOpen && cb.probeActive:
		cb.mu.Unlock()
		cb.notify(from, to)
		return ErrCircuitOpen
	case cb.state == CBHalfOpen:
		cb.probeActive = true
	}
	cb.mu.Unlock()
	cb.notify(from, to)

	err := fn()

	cb.mu.Lock()
	cb.probeActive = false
	if err != nil {
		from, to = cb.onFailure()
	} else {
		from, to = cb.onSuccess()
	}
	cb.mu.Unlock()
	cb.notify(from, to)
	return err
}

// advance moves open -> half-open once the timeout elapsed. Caller holds mu.
func (cb *CircuitBreaker) advance() (CBState, CBState) {
	if cb.state == CBOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.OpenTimeout {
		return cb.transition(CBHalfOpen)
	}
	return cb.state, cb.state
}

func (cb *CircuitBreaker) onFailure() (CBState, CBState) {
	cb.failures++
	switch cb.state {
	case CBClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			return cb.transition(CBOpen)
		}
	case CBHalfOpen:
		return cb.transition(CBOpen)
	}
	return cb.state, cb.state
}

func (cb *CircuitBreaker) onSuccess() (CBState, CBState) {
	switch cb.state {
	case CBClosed:
		cb.failures = 0
	case CBHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			return cb.transition(CBClosed)
		}
	}
	return cb.state, cb.state
}

func (cb *CircuitBreaker) transition(to CBState) (CBState, CBState) {
	from := cb.state
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	if to == CBOpen {
		cb.openedAt = cb.now()
	}
	return from, to
}

func (cb *CircuitBreaker) notify(from, to CBState) {
	if from != to && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(from, to)
	}
}
