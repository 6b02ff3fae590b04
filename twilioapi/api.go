// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 JDK-tech

package twilioapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	twilioopenapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/JDK-tech/twilio-web-dialer/model"
)

const ErrorCodeResourceNotFound = 20404

// ControlPort is what the core needs from the telephony platform
type ControlPort interface {
	FetchStatus(ctx context.Context, callSID string) (model.CallStatus, error)
	Redirect(ctx context.Context, callSID, controlURL string) error
}

// CallAPI is the subset of the Twilio v2010 API used by Client.
// *twilioopenapi.ApiService satisfies it.
type CallAPI interface {
	FetchCall(sid string, params *twilioopenapi.FetchCallParams) (*twilioopenapi.ApiV2010Call, error)
	UpdateCall(sid string, params *twilioopenapi.UpdateCallParams) (*twilioopenapi.ApiV2010Call, error)
}

// Credentials authenticate against the Twilio REST API with an API key
type Credentials struct {
	AccountSID   string
	APIKeySID    string
	APIKeySecret string
}

// Client is the Twilio-backed ControlPort
type Client struct {
	api        CallAPI
	accountSID string
}

// NewClient creates a ControlPort talking to the real Twilio REST API
func NewClient(creds Credentials) *Client {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username:   creds.APIKeySID,
		Password:   creds.APIKeySecret,
		AccountSid: creds.AccountSID,
	})
	return &Client{api: rest.Api, accountSID: creds.AccountSID}
}

// NewClientWithAPI wraps an existing CallAPI, e.g. a simulator engine
func NewClientWithAPI(api CallAPI, accountSID string) *Client {
	return &Client{api: api, accountSID: accountSID}
}

// FetchStatus returns the live status of a call
func (c *Client) FetchStatus(ctx context.Context, callSID string) (model.CallStatus, error) {
	if err := ctx.Err(); err != nil {
		return model.CallUnknown, transportError("fetch", callSID, err)
	}

	params := &twilioopenapi.FetchCallParams{}
	if c.accountSID != "" {
		params.SetPathAccountSid(c.accountSID)
	}

	call, err := c.api.FetchCall(callSID, params)
	if err != nil {
		return model.CallUnknown, transportError("fetch", callSID, err)
	}
	if call == nil || call.Status == nil {
		return model.CallUnknown, nil
	}
	return model.ParseCallStatus(*call.Status), nil
}

// Redirect tells Twilio to fetch new instructions for an active call
func (c *Client) Redirect(ctx context.Context, callSID, controlURL string) error {
	if err := ctx.Err(); err != nil {
		return transportError("redirect", callSID, err)
	}

	params := (&twilioopenapi.UpdateCallParams{}).
		SetUrl(controlURL).
		SetMethod(http.MethodPost)
	if c.accountSID != "" {
		params.SetPathAccountSid(c.accountSID)
	}

	if _, err := c.api.UpdateCall(callSID, params); err != nil {
		return transportError("redirect", callSID, err)
	}
	return nil
}

func transportError(op, callSID string, err error) *model.TransportError {
	te := &model.TransportError{Op: op, CallSID: callSID, Err: err}
	var restErr *client.TwilioRestError
	if errors.As(err, &restErr) {
		te.Code = restErr.Code
	}
	return te
}

// IsNotFound reports whether err is Twilio's "resource not found"
func IsNotFound(err error) bool {
	var te *model.TransportError
	if errors.As(err, &te) && te.Code == ErrorCodeResourceNotFound {
		return true
	}
	var restErr *client.TwilioRestError
	return errors.As(err, &restErr) && restErr.Code == ErrorCodeResourceNotFound
}
