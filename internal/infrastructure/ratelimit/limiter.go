// Package ratelimit guards entry into the order pipeline: a per-user
// message rate limit, an order submission cooldown and the session timer
// that gates the order-entry button.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Config holds the limits
type Config struct {
	MessageLimit   int
	MessageWindow  time.Duration
	OrderCooldown  time.Duration
	SessionTimeout time.Duration
}

// ExpiryFunc is called once when a session lapses without being renewed
type ExpiryFunc func(userID int64)

// Limiter keeps all per-user rate state of the process
type Limiter struct {
	config Config
	exempt func(userID int64) bool
	now    func() time.Time

	mu         sync.Mutex
	messages   map[int64][]time.Time
	lastOrder  map[int64]time.Time
	sessions   map[int64]session
	onExpiry   ExpiryFunc
	stopSweep  chan struct{}
	sweepOnce  sync.Once
	afterFunc  func(d time.Duration, f func()) stopper
	sweepEvery time.Duration
}

type session struct {
	startedAt time.Time
	gen       uint64
	timer     stopper
	fired     bool
}

type stopper interface {
	Stop() bool
}

// Option configures a Limiter
type Option func(*Limiter)

// WithExemption skips the message limit for matching users (admins)
func WithExemption(fn func(userID int64) bool) Option {
	return func(l *Limiter) {
		l.exempt = fn
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithExpiryHandler registers the callback fired when a session lapses
func WithExpiryHandler(fn ExpiryFunc) Option {
	return func(l *Limiter) {
		l.onExpiry = fn
	}
}

// New creates a limiter and starts the background sweep of idle users
func New(cfg Config, opts ...Option) *Limiter {
	l := &Limiter{
		config:    cfg,
		exempt:    func(int64) bool { return false },
		now:       time.Now,
		messages:  make(map[int64][]time.Time),
		lastOrder: make(map[int64]time.Time),
		sessions:  make(map[int64]session),
		stopSweep: make(chan struct{}),
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		sweepEvery: max(cfg.MessageWindow, cfg.OrderCooldown, cfg.SessionTimeout, time.Minute),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.sweepLoop()
	return l
}

// Close stops the sweep loop and pending session timers
func (l *Limiter) Close() {
	l.sweepOnce.Do(func() {
		close(l.stopSweep)
	})
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, s := range l.sessions {
		if s.timer != nil {
			s.timer.Stop()
		}
		s.timer = nil
		l.sessions[id] = s
	}
}

// AllowMessage records an inbound message and reports whether it fits the
// sliding window. Rejected messages are not recorded.
func (l *Limiter) AllowMessage(userID int64) bool {
	if l.exempt(userID) || l.config.MessageLimit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := pruneBefore(l.messages[userID], now.Add(-l.config.MessageWindow))
	if len(recent) >= l.config.MessageLimit {
		l.messages[userID] = recent
		return false
	}
	l.messages[userID] = append(recent, now)
	return true
}

// CheckCooldown reports whether the user may submit an order now and, if
// not, how many whole seconds remain.
func (l *Limiter) CheckCooldown(userID int64) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.lastOrder[userID]
	if !ok {
		return true, 0
	}
	passed := l.now().Sub(last)
	if passed >= l.config.OrderCooldown {
		return true, 0
	}
	return false, ceilSeconds(l.config.OrderCooldown - passed)
}

// RegisterOrder starts the cooldown window
func (l *Limiter) RegisterOrder(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastOrder[userID] = l.now()
}

// StartSession (re)activates the order-entry affordance. A previous timer
// of the same user is superseded; only the newest one fires the expiry
// handler.
func (l *Limiter) StartSession(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.sessions[userID]
	if prev.timer != nil {
		prev.timer.Stop()
	}
	s := session{startedAt: l.now(), gen: prev.gen + 1}
	if l.onExpiry != nil && l.config.SessionTimeout > 0 {
		gen := s.gen
		s.timer = l.afterFunc(l.config.SessionTimeout, func() {
			l.expire(userID, gen)
		})
	}
	l.sessions[userID] = s
}

func (l *Limiter) expire(userID int64, gen uint64) {
	l.mu.Lock()
	s, ok := l.sessions[userID]
	current := ok && s.gen == gen && !s.fired
	if current {
		s.timer = nil
		s.fired = true
		l.sessions[userID] = s
	}
	l.mu.Unlock()

	if current {
		l.onExpiry(userID)
	}
}

// SessionActive reports whether the user's session is still open
func (l *Limiter) SessionActive(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[userID]
	if !ok {
		return false
	}
	return l.now().Sub(s.startedAt) <= l.config.SessionTimeout
}

// SessionRemaining returns the whole seconds left in the session
func (l *Limiter) SessionRemaining(userID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[userID]
	if !ok {
		return 0
	}
	left := l.config.SessionTimeout - l.now().Sub(s.startedAt)
	if left <= 0 {
		return 0
	}
	return int(left / time.Second)
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopSweep:
			return
		case <-ticker.C:
			l.sweep(l.now())
		}
	}
}

// sweep drops state that can no longer affect any decision
func (l *Limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, ts := range l.messages {
		recent := pruneBefore(ts, now.Add(-l.config.MessageWindow))
		if len(recent) == 0 {
			delete(l.messages, id)
		} else {
			l.messages[id] = recent
		}
	}
	for id, at := range l.lastOrder {
		if now.Sub(at) >= l.config.OrderCooldown {
			delete(l.lastOrder, id)
		}
	}
	for id, s := range l.sessions {
		if s.timer == nil && now.Sub(s.startedAt) > l.config.SessionTimeout {
			delete(l.sessions, id)
		}
	}
}

// pruneBefore keeps timestamps strictly after cutoff. ts is sorted.
func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0], ts[i:]...)
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
