// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 JDK-tech

package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JDK-tech/twilio-web-dialer/model"
	"github.com/JDK-tech/twilio-web-dialer/twilioapi"
)

const (
	DefaultRingTimeout  = 23 * time.Second
	DefaultScanInterval = time.Second
)

// Outcome is what happened to one overdue call during a scan
type Outcome string

const (
	// OutcomeEscalated means the call was redirected to the backup agent
	OutcomeEscalated Outcome = "escalated"
	// OutcomeResolved means the call had already been answered or ended
	OutcomeResolved Outcome = "resolved"
	// OutcomeLost means another actor removed the session first
	OutcomeLost           Outcome = "lost"
	OutcomeFetchFailed    Outcome = "fetch-failed"
	OutcomeRedirectFailed Outcome = "redirect-failed"
)

// Escalation is the result of handling one overdue call
type Escalation struct {
	CallSID string           `json:"call_sid"`
	Outcome Outcome          `json:"outcome"`
	Status  model.CallStatus `json:"status,omitempty"`
	URL     string           `json:"url,omitempty"`
	Err     error            `json:"-"`
}

// SchedulerStats counts scan results over the process lifetime
type SchedulerStats struct {
	Scans            uint64 `json:"scans"`
	Escalated        uint64 `json:"escalated"`
	Resolved         uint64 `json:"resolved"`
	FetchFailures    uint64 `json:"fetch_failures"`
	RedirectFailures uint64 `json:"redirect_failures"`
}

// Scheduler periodically escalates calls that ring too long
type Scheduler struct {
	registry   *Registry
	port       twilioapi.ControlPort
	backup     model.Agent
	controlURL string

	clock       Clock
	log         *zap.Logger
	ringTimeout time.Duration
	interval    time.Duration

	scanMu sync.Mutex

	scans, escalated, resolved, fetchFailures, redirectFailures atomic.Uint64
}

// SchedulerOption configures the scheduler
type SchedulerOption func(*Scheduler)

// WithClock sets the clock that paces scans
func WithClock(clock Clock) SchedulerOption {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithLogger sets the scheduler logger
func WithLogger(log *zap.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.log = log
	}
}

// WithRingTimeout sets how long a call may ring before escalation
func WithRingTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.ringTimeout = d
		}
	}
}

// WithScanInterval sets the pause between scans
func WithScanInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// NewScheduler creates a scheduler that escalates to the roster's backup
// agent through controlURL, the absolute voice webhook URL.
func NewScheduler(registry *Registry, port twilioapi.ControlPort, roster model.Roster, controlURL string, opts ...SchedulerOption) (*Scheduler, error) {
	backup, ok := roster.Backup()
	if !ok {
		return nil, &model.ConfigurationMissing{Fields: []string{"roster"}}
	}
	// Fail at startup rather than on the first escalation.
	if _, err := twilioapi.BuildControlURL(controlURL, twilioapi.ControlParams{}); err != nil {
		return nil, err
	}

	s := &Scheduler{
		registry:    registry,
		port:        port,
		backup:      backup,
		controlURL:  controlURL,
		clock:       NewAutoClock(),
		log:         zap.NewNop(),
		ringTimeout: DefaultRingTimeout,
		interval:    DefaultScanInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run scans until ctx is canceled. A slow scan delays the next one; scans
// never overlap.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("escalation scheduler started",
		zap.Duration("ring_timeout", s.ringTimeout),
		zap.Duration("interval", s.interval),
		zap.String("backup_agent", s.backup.Name),
	)
	for {
		s.Scan(ctx)
		select {
		case <-ctx.Done():
			s.log.Info("escalation scheduler stopped")
			return
		case <-s.clock.After(s.interval):
		}
	}
}

// Scan escalates every currently overdue call once
func (s *Scheduler) Scan(ctx context.Context) []Escalation {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	s.scans.Add(1)

	overdue := s.registry.ListOverdue(s.ringTimeout)
	if len(overdue) == 0 {
		return nil
	}

	results := make([]Escalation, 0, len(overdue))
	for _, sid := range overdue {
		results = append(results, s.escalate(ctx, sid))
	}
	return results
}

func (s *Scheduler) escalate(ctx context.Context, callSID string) Escalation {
	// Winning Remove is the exclusive right to act on this call.
	if !s.registry.Remove(callSID) {
		return Escalation{CallSID: callSID, Outcome: OutcomeLost}
	}
	log := s.log.With(zap.String("call_sid", callSID))

	status, err := s.port.FetchStatus(ctx, callSID)
	if err != nil {
		s.fetchFailures.Add(1)
		log.Error("auto-transfer status fetch failed", zap.Error(err))
		return Escalation{CallSID: callSID, Outcome: OutcomeFetchFailed, Err: err}
	}

	if !status.Escalatable() {
		s.resolved.Add(1)
		log.Info("overdue call already resolved", zap.String("status", string(status)))
		return Escalation{CallSID: callSID, Outcome: OutcomeResolved, Status: status}
	}

	target, err := twilioapi.BuildControlURL(s.controlURL, twilioapi.ControlParams{TargetAgent: s.backup.Destination})
	if err == nil {
		err = s.port.Redirect(ctx, callSID, target)
	}
	if err != nil {
		s.redirectFailures.Add(1)
		log.Error("auto-transfer failed", zap.String("status", string(status)), zap.Error(err))
		return Escalation{CallSID: callSID, Outcome: OutcomeRedirectFailed, Status: status, URL: target, Err: err}
	}

	s.escalated.Add(1)
	log.Info("auto-transferred call to backup agent",
		zap.String("agent", s.backup.Name),
		zap.String("destination", s.backup.Destination),
	)
	s.registry.publish(model.NewEvent(s.clock.Now(), EventEscalated, callSID, map[string]any{
		"agent":  s.backup.Name,
		"status": status,
	}))
	return Escalation{CallSID: callSID, Outcome: OutcomeEscalated, Status: status, URL: target}
}

// Stats returns lifetime counters
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Scans:            s.scans.Load(),
		Escalated:        s.escalated.Load(),
		Resolved:         s.resolved.Load(),
		FetchFailures:    s.fetchFailures.Load(),
		RedirectFailures: s.redirectFailures.Load(),
	}
}

// RingTimeout returns the configured escalation threshold
func (s *Scheduler) RingTimeout() time.Duration {
	return s.ringTimeout
}
