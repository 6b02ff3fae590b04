// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 JDK-tech

package model

import "fmt"

// Agent is a human who can be offered calls
type Agent struct {
	Name        string `json:"name" yaml:"name"`
	Destination string `json:"destination" yaml:"destination"`
}

// Roster is the ordered ring group. The last entry is the backup agent.
type Roster []Agent

// Backup returns the universal escalation target.
func (r Roster) Backup() (Agent, bool) {
	if len(r) == 0 {
		return Agent{}, false
	}
	return r[len(r)-1], true
}

// Lookup finds an agent by exact name.
func (r Roster) Lookup(name string) (Agent, bool) {
	for _, a := range r {
		if a.Name == name {
			return a, true
		}
	}
	return Agent{}, false
}

// Validate checks that every agent has a unique name and a destination.
func (r Roster) Validate() error {
	seen := make(map[string]struct{}, len(r))
	for i, a := range r {
		if a.Name == "" {
			return fmt.Errorf("roster entry %d has no name", i)
		}
		if a.Destination == "" {
			return fmt.Errorf("agent %q has no destination", a.Name)
		}
		if _, dup := seen[a.Name]; dup {
			return fmt.Errorf("agent %q listed twice", a.Name)
		}
		seen[a.Name] = struct{}{}
	}
	return nil
}
