// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 JDK-tech

// Package console exposes the live call registry to operators.
package console

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/JDK-tech/twilio-web-dialer/engine"
	"github.com/JDK-tech/twilio-web-dialer/model"
)

// StatsSource reports escalation counters. *engine.Scheduler implements it.
type StatsSource interface {
	Stats() engine.SchedulerStats
	RingTimeout() time.Duration
}

// SessionView is one tracked call as shown to operators
type SessionView struct {
	CallSID    string    `json:"call_sid"`
	StartedAt  time.Time `json:"started_at"`
	AgeSeconds float64   `json:"age_seconds"`
	Step       int       `json:"step"`
	Agent      string    `json:"agent,omitempty"`
	Overdue    bool      `json:"overdue"`
}

// Snapshot is the body of GET /console/sessions
type Snapshot struct {
	Timestamp   time.Time              `json:"timestamp"`
	RingTimeout string                 `json:"ring_timeout,omitempty"`
	Sessions    []SessionView          `json:"sessions"`
	Stats       *engine.SchedulerStats `json:"stats,omitempty"`
}

// Console serves the operator console endpoints
type Console struct {
	registry *engine.Registry
	roster   model.Roster
	stats    StatsSource
	hub      *Hub
}

// New creates a console over registry. stats and hub may be nil.
func New(registry *engine.Registry, roster model.Roster, stats StatsSource, hub *Hub) *Console {
	return &Console{
		registry: registry,
		roster:   roster,
		stats:    stats,
		hub:      hub,
	}
}

// RegisterRoutes mounts the console under r
func (c *Console) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/sessions", c.handleSessions).Methods(http.MethodGet)
	if c.hub != nil {
		r.HandleFunc("/feed", c.hub.ServeWS).Methods(http.MethodGet)
	}
}

// Snapshot builds the current console view
func (c *Console) Snapshot() Snapshot {
	now := c.registry.Now()
	snap := Snapshot{
		Timestamp: now,
		Sessions:  make([]SessionView, 0),
	}

	var timeout time.Duration
	if c.stats != nil {
		timeout = c.stats.RingTimeout()
		snap.RingTimeout = timeout.String()
		stats := c.stats.Stats()
		snap.Stats = &stats
	}

	for _, s := range c.registry.Snapshot() {
		age := s.Age(now)
		view := SessionView{
			CallSID:    s.CallSID,
			StartedAt:  s.StartedAt,
			AgeSeconds: age.Seconds(),
			Step:       s.Step,
			Overdue:    timeout > 0 && age >= timeout,
		}
		if s.Step >= 0 && s.Step < len(c.roster) {
			view.Agent = c.roster[s.Step].Name
		}
		snap.Sessions = append(snap.Sessions, view)
	}
	return snap
}

func (c *Console) handleSessions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(c.Snapshot()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
