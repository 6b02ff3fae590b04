// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 JDK-tech

package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/JDK-tech/twilio-web-dialer/model"
)

// Event types published by the registry and scheduler
const (
	EventRecorded  = "session.recorded"
	EventRemoved   = "session.removed"
	EventEscalated = "call.escalated"
)

// Observer receives registry and scheduler events. It is never called while
// the registry lock is held.
type Observer func(model.Event)

// Registry is the single source of truth for outstanding calls. Each method
// is its own unit of atomicity.
type Registry struct {
	mu        sync.RWMutex
	clock     Clock
	sessions  map[string]*model.CallSession
	observers []Observer
}

// RegistryOption configures the registry
type RegistryOption func(*Registry)

// WithRegistryClock sets the clock used to stamp sessions
func WithRegistryClock(clock Clock) RegistryOption {
	return func(r *Registry) {
		r.clock = clock
	}
}

// WithObserver subscribes to session events
func WithObserver(o Observer) RegistryOption {
	return func(r *Registry) {
		r.observers = append(r.observers, o)
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		clock:    NewAutoClock(),
		sessions: make(map[string]*model.CallSession),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record inserts or overwrites the session for callSID, restarting its timer
func (r *Registry) Record(callSID string, step int) {
	r.mu.Lock()
	now := r.clock.Now()
	r.sessions[callSID] = &model.CallSession{
		CallSID:   callSID,
		StartedAt: now,
		Step:      step,
	}
	r.mu.Unlock()

	r.publish(model.NewEvent(now, EventRecorded, callSID, map[string]any{"step": step}))
}

// ListOverdue returns every call that has been tracked for at least timeout
func (r *Registry) ListOverdue(timeout time.Duration) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.clock.Now()
	var overdue []string
	for sid, s := range r.sessions {
		if s.Age(now) >= timeout {
			overdue = append(overdue, sid)
		}
	}
	sort.Strings(overdue)
	return overdue
}

// Remove deletes the session and reports whether it was present. Exactly one
// of any number of concurrent Remove calls for the same SID returns true.
func (r *Registry) Remove(callSID string) bool {
	r.mu.Lock()
	_, ok := r.sessions[callSID]
	if ok {
		delete(r.sessions, callSID)
	}
	now := r.clock.Now()
	r.mu.Unlock()

	if ok {
		r.publish(model.NewEvent(now, EventRemoved, callSID, nil))
	}
	return ok
}

// Get returns a copy of the session for callSID
func (r *Registry) Get(callSID string) (model.CallSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[callSID]
	if !ok {
		return model.CallSession{}, false
	}
	return *s, true
}

// Len returns the number of tracked calls
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns copies of all sessions, oldest first
func (r *Registry) Snapshot() []model.CallSession {
	r.mu.RLock()
	sessions := make([]model.CallSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, *s)
	}
	r.mu.RUnlock()

	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].StartedAt.Equal(sessions[j].StartedAt) {
			return sessions[i].CallSID < sessions[j].CallSID
		}
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})
	return sessions
}

// Now returns the registry clock's current time
func (r *Registry) Now() time.Time {
	return r.clock.Now()
}

func (r *Registry) publish(ev model.Event) {
	for _, o := range r.observers {
		o(ev)
	}
}
