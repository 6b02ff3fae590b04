// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 JDK-tech

package model

import (
	"strings"
	"time"
)

// CallStatus represents the current status of a call as reported by Twilio
type CallStatus string

const (
	CallInitiated  CallStatus = "initiated"
	CallQueued     CallStatus = "queued"
	CallRinging    CallStatus = "ringing"
	CallInProgress CallStatus = "in-progress"
	CallCompleted  CallStatus = "completed"
	CallBusy       CallStatus = "busy"
	CallFailed     CallStatus = "failed"
	CallNoAnswer   CallStatus = "no-answer"
	CallCanceled   CallStatus = "canceled"
	CallUnknown    CallStatus = "unknown"
)

// ParseCallStatus maps a platform status string onto a CallStatus.
// Anything unrecognised becomes CallUnknown.
func ParseCallStatus(s string) CallStatus {
	switch st := CallStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case CallInitiated, CallQueued, CallRinging, CallInProgress, CallCompleted,
		CallBusy, CallFailed, CallNoAnswer, CallCanceled:
		return st
	case "cancelled":
		return CallCanceled
	default:
		return CallUnknown
	}
}

func (s CallStatus) IsTerminal() bool {
	switch s {
	case CallCompleted, CallCanceled, CallFailed, CallNoAnswer, CallBusy:
		return true
	default:
		return false
	}
}

// Escalatable reports whether a call in this status can still be redirected
// to another agent.
func (s CallStatus) Escalatable() bool {
	return s == CallRinging || s == CallInProgress
}

// Direction represents whether a call is inbound or outbound
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// CallSession is the in-memory tracking record for one outstanding call
type CallSession struct {
	CallSID   string    `json:"call_sid"`
	StartedAt time.Time `json:"started_at"`
	Step      int       `json:"step"`
}

// Age returns how long the session has been ringing at now.
func (s CallSession) Age(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}

// Event represents a timeline event for a tracked call
type Event struct {
	Time    time.Time      `json:"time"`
	Type    string         `json:"type"` // "session.recorded", "session.removed", "call.escalated"
	CallSID string         `json:"call_sid"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// NewEvent creates a new timeline event
func NewEvent(t time.Time, eventType, callSID string, detail map[string]any) Event {
	if detail == nil {
		detail = make(map[string]any)
	}
	return Event{
		Time:    t,
		Type:    eventType,
		CallSID: callSID,
		Detail:  detail,
	}
}
