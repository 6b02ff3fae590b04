// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 JDK-tech

// Package routing picks the destination a call should ring. It holds no state.
package routing

import (
	"regexp"
	"strings"

	"github.com/JDK-tech/twilio-web-dialer/model"
)

var numberPattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

// DirectionOf classifies a call by its dialed number. A call addressed to
// anything other than the platform's own number is outbound.
func DirectionOf(to, platformNumber string) model.Direction {
	if to != "" && to != platformNumber {
		return model.Outbound
	}
	return model.Inbound
}

// Decide returns the destination number for a call.
//
// Outbound calls dial requestedTarget verbatim. Inbound calls start at the
// first agent, or, when resume is non-nil, at the agent after *resume, clamped
// to the backup agent.
func Decide(direction model.Direction, requestedTarget string, roster model.Roster, resume *int) (string, error) {
	if direction == model.Outbound {
		return requestedTarget, nil
	}
	_, dest, err := Step(roster, resume)
	return dest, err
}

// Step is Decide for inbound calls, also returning the roster index chosen.
func Step(roster model.Roster, resume *int) (int, string, error) {
	if len(roster) == 0 {
		return 0, "", &model.ConfigurationMissing{Fields: []string{"roster"}}
	}
	idx := 0
	if resume != nil && *resume >= 0 {
		// Clamp before advancing so a huge step cannot overflow.
		if *resume >= len(roster)-1 {
			idx = len(roster) - 1
		} else {
			idx = *resume + 1
		}
	}
	return idx, roster[idx].Destination, nil
}

// ResolveNamed resolves a manual transfer target. Roster names win over
// numbers; a dialable number or client identity passes through unchanged.
// Callers trim form input before resolving.
func ResolveNamed(target string, roster model.Roster) (string, error) {
	if a, ok := roster.Lookup(target); ok {
		return a.Destination, nil
	}
	for _, a := range roster {
		if strings.EqualFold(a.Name, target) {
			return a.Destination, nil
		}
	}
	if IsDialable(target) {
		return target, nil
	}
	return "", model.ErrUnknownAgent
}

// IsDialable reports whether s is an E.164 number or a client identity.
func IsDialable(s string) bool {
	if numberPattern.MatchString(s) {
		return true
	}
	id, ok := strings.CutPrefix(s, "client:")
	return ok && id != ""
}
