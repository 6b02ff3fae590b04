// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 JDK-tech

package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAgent is returned when a manual transfer names neither a roster
// agent nor a dialable number.
var ErrUnknownAgent = errors.New("unknown agent")

// TransportError wraps a failure talking to the telephony platform.
type TransportError struct {
	Op      string // "fetch", "redirect"
	CallSID string
	Code    int // Twilio error code, 0 when the request never got a response
	Err     error
}

func (e *TransportError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s call %s: twilio error %d: %v", e.Op, e.CallSID, e.Code, e.Err)
	}
	return fmt.Sprintf("%s call %s: %v", e.Op, e.CallSID, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ConfigurationMissing reports required settings that are absent.
type ConfigurationMissing struct {
	Fields []string
}

func (e *ConfigurationMissing) Error() string {
	return "missing configuration: " + strings.Join(e.Fields, ", ")
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsConfigurationMissing reports whether err is a ConfigurationMissing.
func IsConfigurationMissing(err error) bool {
	var cm *ConfigurationMissing
	return errors.As(err, &cm)
}
