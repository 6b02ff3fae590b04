// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 JDK-tech

// Package twiml renders the voice webhook replies the dialer sends to Twilio
// and parses them back for inspection.
package twiml

import (
	"strconv"
	"strings"

	"github.com/twilio/twilio-go/twiml"
)

// ApologyMessage is spoken when a call cannot be routed
const ApologyMessage = "An error occurred while connecting your call."

// HoldMessage is spoken while a muted caller waits
const HoldMessage = "Please hold."

// StatusEvents are the dialed-leg events that retire a tracked call
var StatusEvents = []string{"answered", "completed"}

// DialOptions describes a single-destination <Dial>
type DialOptions struct {
	CallerID       string
	Destination    string // E.164 number or client:<identity>
	StatusCallback string // optional, receives StatusEvents for the dialed leg
}

// DialResponse rings one destination
func DialResponse(opts DialOptions) (string, error) {
	var noun twiml.Element
	if id, ok := strings.CutPrefix(opts.Destination, "client:"); ok {
		c := &twiml.VoiceClient{Identity: id}
		if opts.StatusCallback != "" {
			c.StatusCallback = opts.StatusCallback
			c.StatusCallbackEvent = strings.Join(StatusEvents, " ")
			c.StatusCallbackMethod = "POST"
		}
		noun = c
	} else {
		n := &twiml.VoiceNumber{PhoneNumber: opts.Destination}
		if opts.StatusCallback != "" {
			n.StatusCallback = opts.StatusCallback
			n.StatusCallbackEvent = strings.Join(StatusEvents, " ")
			n.StatusCallbackMethod = "POST"
		}
		noun = n
	}

	dial := &twiml.VoiceDial{
		CallerId:      opts.CallerID,
		InnerElements: []twiml.Element{noun},
	}
	return twiml.Voice([]twiml.Element{dial})
}

// ApologyResponse tells the caller routing failed
func ApologyResponse() (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: ApologyMessage},
	})
}

// HoldResponse keeps a muted caller waiting, then loops back to holdURL
func HoldResponse(holdURL string, pauseSeconds int) (string, error) {
	if pauseSeconds <= 0 {
		pauseSeconds = 10
	}
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: HoldMessage},
		&twiml.VoicePause{Length: strconv.Itoa(pauseSeconds)},
		&twiml.VoiceRedirect{Url: holdURL, Method: "POST"},
	})
}

// EmptyResponse acknowledges a webhook without further instructions
func EmptyResponse() (string, error) {
	return twiml.Voice(nil)
}
