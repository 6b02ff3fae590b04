package httpstub

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// NewSID returns a random Twilio-shaped SID with the given two letter prefix
func NewSID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// InboundCallForm is the voice webhook form Twilio posts when a call arrives
func InboundCallForm(accountSID, callSID, from, to string) url.Values {
	return url.Values{
		"AccountSid": {accountSID},
		"CallSid":    {callSID},
		"From":       {from},
		"To":         {to},
		"CallStatus": {"ringing"},
		"Direction":  {"inbound"},
	}
}

// StatusCallbackForm is the status callback Twilio posts for a dialed leg
func StatusCallbackForm(accountSID, parentCallSID, status string) url.Values {
	return url.Values{
		"AccountSid":    {accountSID},
		"CallSid":       {NewSID("CA")},
		"ParentCallSid": {parentCallSID},
		"CallStatus":    {status},
		"Direction":     {"outbound-dial"},
	}
}

// Simulator plays the Twilio side of a call against a dialer
type Simulator struct {
	Client     WebhookClient
	BaseURL    string
	AccountSID string
}

// Result is a webhook reply
type Result struct {
	Status int
	Body   []byte
}

// Inbound presents a new call from caller to the platform number
func (s *Simulator) Inbound(ctx context.Context, callSID, from, to string) (Result, error) {
	return s.post(ctx, "/handle_calls", InboundCallForm(s.AccountSID, callSID, from, to))
}

// Status reports a dialed-leg status for parentCallSID
func (s *Simulator) Status(ctx context.Context, parentCallSID, status string) (Result, error) {
	return s.post(ctx, "/call_status", StatusCallbackForm(s.AccountSID, parentCallSID, status))
}

func (s *Simulator) post(ctx context.Context, path string, form url.Values) (Result, error) {
	target := strings.TrimRight(s.BaseURL, "/") + path
	status, body, _, err := s.Client.POST(ctx, target, form)
	if err != nil {
		return Result{}, err
	}
	if status != http.StatusOK {
		return Result{Status: status, Body: body}, fmt.Errorf("webhook %s returned %d: %s", path, status, strings.TrimSpace(string(body)))
	}
	return Result{Status: status, Body: body}, nil
}
