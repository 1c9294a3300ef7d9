package handler

import (
	"sync"
	"time"
)

type registrationStep int

const (
	stepPhone registrationStep = iota + 1
	stepCity
	stepLocation
	stepFullName
)

// registrationTTL drops abandoned conversations
const registrationTTL = 30 * time.Minute

type registrationDraft struct {
	step      registrationStep
	phone     string
	city      string
	latitude  *float64
	longitude *float64
	updatedAt time.Time
}

// registrations tracks customers in the middle of the sign-up conversation
type registrations struct {
	mu     sync.Mutex
	drafts map[int64]*registrationDraft
}

func newRegistrations() *registrations {
	return &registrations{drafts: make(map[int64]*registrationDraft)}
}

func (r *registrations) start(userID int64, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[userID] = &registrationDraft{step: stepPhone, updatedAt: now}
}

// get returns a copy of the draft, dropping it when it is stale
func (r *registrations) get(userID int64, now time.Time) (registrationDraft, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[userID]
	if !ok {
		return registrationDraft{}, false
	}
	if now.Sub(d.updatedAt) > registrationTTL {
		delete(r.drafts, userID)
		return registrationDraft{}, false
	}
	return *d, true
}

func (r *registrations) update(userID int64, now time.Time, fn func(d *registrationDraft)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.drafts[userID]; ok {
		fn(d)
		d.updatedAt = now
	}
}

func (r *registrations) finish(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, userID)
}
