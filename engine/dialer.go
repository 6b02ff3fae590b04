// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 JDK-tech

package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JDK-tech/twilio-web-dialer/model"
	"github.com/JDK-tech/twilio-web-dialer/routing"
	"github.com/JDK-tech/twilio-web-dialer/twilioapi"
)

// Route is the routing decision for a presented call
type Route struct {
	Direction   model.Direction
	Destination string
	Step        int
	Tracked     bool
}

// Dialer is the entry point the webhook layer drives
type Dialer struct {
	registry       *Registry
	port           twilioapi.ControlPort
	roster         model.Roster
	platformNumber string
	controlURL     string
	log            *zap.Logger
}

// NewDialer wires the registry, control port and roster together.
// controlURL is the absolute voice webhook URL used for transfers and mutes.
func NewDialer(registry *Registry, port twilioapi.ControlPort, roster model.Roster, platformNumber, controlURL string, log *zap.Logger) *Dialer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dialer{
		registry:       registry,
		port:           port,
		roster:         roster,
		platformNumber: platformNumber,
		controlURL:     controlURL,
		log:            log,
	}
}

// OnInboundCallPresented decides where a new call rings and starts tracking
// it when it rings the ring group.
func (d *Dialer) OnInboundCallPresented(callSID, from, to string, resume *int) (Route, error) {
	direction := routing.DirectionOf(to, d.platformNumber)
	if direction == model.Outbound {
		dest, err := routing.Decide(direction, to, d.roster, nil)
		if err != nil {
			return Route{}, err
		}
		d.log.Info("outbound call initiated", zap.String("call_sid", callSID), zap.String("destination", dest))
		return Route{Direction: direction, Destination: dest}, nil
	}

	step, dest, err := routing.Step(d.roster, resume)
	if err != nil {
		return Route{}, err
	}
	route := Route{Direction: direction, Destination: dest, Step: step}
	if callSID != "" {
		d.registry.Record(callSID, step)
		route.Tracked = true
	}
	d.log.Info("incoming call routed",
		zap.String("call_sid", callSID),
		zap.String("from", from),
		zap.String("destination", dest),
		zap.Int("step", step),
	)
	return route, nil
}

// OnManualTransferRequested redirects a call to a roster agent or raw number.
// The session is retired first so the scheduler cannot race the transfer.
func (d *Dialer) OnManualTransferRequested(ctx context.Context, callSID, target string) (string, error) {
	dest, err := routing.ResolveNamed(target, d.roster)
	if err != nil {
		return "", fmt.Errorf("transfer %s to %q: %w", callSID, target, err)
	}

	controlURL, err := twilioapi.BuildControlURL(d.controlURL, twilioapi.ControlParams{TargetAgent: dest})
	if err != nil {
		return "", err
	}

	retired := d.registry.Remove(callSID)
	if err := d.port.Redirect(ctx, callSID, controlURL); err != nil {
		d.log.Error("call transfer failed", zap.String("call_sid", callSID), zap.Error(err))
		return "", err
	}

	d.log.Info("transferred call",
		zap.String("call_sid", callSID),
		zap.String("target", target),
		zap.String("destination", dest),
		zap.Bool("was_tracked", retired),
	)
	return dest, nil
}

// OnManualMuteRequested passes a mute toggle straight to the platform
func (d *Dialer) OnManualMuteRequested(ctx context.Context, callSID string, mute bool) error {
	controlURL, err := twilioapi.BuildControlURL(d.controlURL, twilioapi.ControlParams{Mute: &mute})
	if err != nil {
		return err
	}
	if err := d.port.Redirect(ctx, callSID, controlURL); err != nil {
		d.log.Error("call mute failed", zap.String("call_sid", callSID), zap.Bool("mute", mute), zap.Error(err))
		return err
	}
	d.log.Info("mute toggled", zap.String("call_sid", callSID), zap.Bool("mute", mute))
	return nil
}

// OnCallStatus retires a tracked call once an agent answers or the call ends.
// It returns true when a session was retired.
func (d *Dialer) OnCallStatus(callSID string, status model.CallStatus) bool {
	if status != model.CallInProgress && !status.IsTerminal() {
		return false
	}
	retired := d.registry.Remove(callSID)
	if retired {
		d.log.Info("call retired", zap.String("call_sid", callSID), zap.String("status", string(status)))
	}
	return retired
}

// Roster returns the configured ring group
func (d *Dialer) Roster() model.Roster {
	return d.roster
}

// PlatformNumber returns the number inbound calls arrive on
func (d *Dialer) PlatformNumber() string {
	return d.platformNumber
}

// TrackedCalls returns how many inbound calls are awaiting an answer
func (d *Dialer) TrackedCalls() int {
	return d.registry.Len()
}
