// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 JDK-tech

package twilioapi

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/JDK-tech/twilio-web-dialer/model"
)

// Query parameter names understood by the voice webhook
const (
	ParamTargetAgent = "TargetAgent"
	ParamStep        = "CurrentAgentIndex"
	ParamMute        = "Mute"
)

// ControlParams tells the voice webhook what to do next for a call
type ControlParams struct {
	TargetAgent string
	Step        *int
	Mute        *bool
}

// BuildControlURL builds the absolute URL Twilio will fetch next.
// base must be absolute; Twilio cannot resolve relative callbacks.
func BuildControlURL(base string, params ControlParams) (string, error) {
	if base == "" {
		return "", &model.ConfigurationMissing{Fields: []string{"public_base_url"}}
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid control URL %q: %w", base, err)
	}
	if !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", &model.ConfigurationMissing{Fields: []string{"public_base_url (absolute http(s) URL)"}}
	}

	q := u.Query()
	if params.TargetAgent != "" {
		q.Set(ParamTargetAgent, params.TargetAgent)
	}
	if params.Step != nil {
		q.Set(ParamStep, strconv.Itoa(*params.Step))
	}
	if params.Mute != nil {
		q.Set(ParamMute, strconv.FormatBool(*params.Mute))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseControlParams reads control parameters back out of a webhook query
func ParseControlParams(q url.Values) (ControlParams, error) {
	var p ControlParams
	p.TargetAgent = q.Get(ParamTargetAgent)
	if v := q.Get(ParamStep); v != "" {
		step, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("invalid %s %q: %w", ParamStep, v, err)
		}
		p.Step = &step
	}
	if v := q.Get(ParamMute); v != "" {
		mute, err := strconv.ParseBool(v)
		if err != nil {
			return p, fmt.Errorf("invalid %s %q: %w", ParamMute, v, err)
		}
		p.Mute = &mute
	}
	return p, nil
}
