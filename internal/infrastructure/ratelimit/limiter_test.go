package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func testConfig() Config {
	return Config{
		MessageLimit:   3,
		MessageWindow:  time.Minute,
		OrderCooldown:  time.Minute,
		SessionTimeout: 5 * time.Minute,
	}
}

func newTestLimiter(t *testing.T, opts ...Option) (*Limiter, *fakeClock, *[]*fakeTimer) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	l := New(testConfig(), opts...)
	timers := &[]*fakeTimer{}
	l.afterFunc = func(d time.Duration, f func()) stopper {
		ft := &fakeTimer{fn: f}
		*timers = append(*timers, ft)
		return ft
	}
	t.Cleanup(l.Close)
	return l, clock, timers
}

// ============ Message Limit Tests ============

func TestLimiter_AllowMessage_SlidingWindow(t *testing.T) {
	l, clock, _ := newTestLimiter(t)

	for i := 0; i < 3; i++ {
		assert.True(t, l.AllowMessage(1), "message %d", i)
		clock.Advance(10 * time.Second)
	}
	assert.False(t, l.AllowMessage(1))

	// other users are independent
	assert.True(t, l.AllowMessage(2))

	// the first message leaves the window 60s after it was sent
	clock.Advance(30 * time.Second)
	assert.True(t, l.AllowMessage(1))
	assert.False(t, l.AllowMessage(1))
}

func TestLimiter_AllowMessage_ExemptAdmins(t *testing.T) {
	l, _, _ := newTestLimiter(t, WithExemption(func(id int64) bool { return id == 99 }))

	for i := 0; i < 10; i++ {
		assert.True(t, l.AllowMessage(99))
	}
	assert.Empty(t, l.messages)
}

// ============ Cooldown Tests ============

func TestLimiter_Cooldown(t *testing.T) {
	l, clock, _ := newTestLimiter(t)

	ok, remaining := l.CheckCooldown(1)
	assert.True(t, ok)
	assert.Zero(t, remaining)

	l.RegisterOrder(1)
	clock.Advance(20*time.Second + 500*time.Millisecond)

	ok, remaining = l.CheckCooldown(1)
	assert.False(t, ok)
	assert.Equal(t, 40, remaining)

	clock.Advance(40 * time.Second)
	ok, remaining = l.CheckCooldown(1)
	assert.True(t, ok)
	assert.Zero(t, remaining)
}

// ============ Session Timer Tests ============

func TestLimiter_Session(t *testing.T) {
	l, clock, _ := newTestLimiter(t)

	assert.False(t, l.SessionActive(1))
	assert.Zero(t, l.SessionRemaining(1))

	l.StartSession(1)
	assert.True(t, l.SessionActive(1))
	assert.Equal(t, 300, l.SessionRemaining(1))

	clock.Advance(299 * time.Second)
	assert.True(t, l.SessionActive(1))
	assert.Equal(t, 1, l.SessionRemaining(1))

	clock.Advance(2 * time.Second)
	assert.False(t, l.SessionActive(1))
	assert.Zero(t, l.SessionRemaining(1))

	l.StartSession(1)
	assert.True(t, l.SessionActive(1))
}

func TestLimiter_SessionExpiry_StaleTimerIsNoop(t *testing.T) {
	var expired []int64
	l, _, timers := newTestLimiter(t, WithExpiryHandler(func(id int64) { expired = append(expired, id) }))

	l.StartSession(7)
	l.StartSession(7)
	require.Len(t, *timers, 2)
	assert.True(t, (*timers)[0].stopped)

	// the superseded timer fires anyway
	(*timers)[0].fn()
	assert.Empty(t, expired)

	(*timers)[1].fn()
	assert.Equal(t, []int64{7}, expired)

	// firing twice does nothing more
	(*timers)[1].fn()
	assert.Equal(t, []int64{7}, expired)
}

func TestLimiter_NoTimerWithoutHandler(t *testing.T) {
	l, _, timers := newTestLimiter(t)
	l.StartSession(1)
	assert.Empty(t, *timers)
}

// ============ Sweep Tests ============

func TestLimiter_Sweep(t *testing.T) {
	l, clock, _ := newTestLimiter(t)

	l.AllowMessage(1)
	l.RegisterOrder(1)
	l.StartSession(1)
	l.StartSession(2)

	clock.Advance(2 * time.Minute)
	l.StartSession(2)
	l.sweep(clock.Now())
	assert.Empty(t, l.messages)
	assert.Empty(t, l.lastOrder)
	assert.Len(t, l.sessions, 2)

	clock.Advance(4 * time.Minute)
	l.sweep(clock.Now())
	_, ok := l.sessions[1]
	assert.False(t, ok)
	_, ok = l.sessions[2]
	assert.True(t, ok)
}

func TestPruneBefore(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := []time.Time{base, base.Add(time.Second), base.Add(2 * time.Second)}

	assert.Len(t, pruneBefore(ts, base.Add(time.Second)), 1)
	assert.Len(t, pruneBefore([]time.Time{base}, base.Add(-time.Second)), 1)
	assert.Empty(t, pruneBefore(nil, base))
}
