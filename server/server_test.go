package server_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/JDK-tech/twilio-web-dialer/console"
	"github.com/JDK-tech/twilio-web-dialer/engine"
	"github.com/JDK-tech/twilio-web-dialer/httpstub"
	"github.com/JDK-tech/twilio-web-dialer/model"
	"github.com/JDK-tech/twilio-web-dialer/server"
	"github.com/JDK-tech/twilio-web-dialer/token"
	"github.com/JDK-tech/twilio-web-dialer/twilioapi"
	"github.com/JDK-tech/twilio-web-dialer/twiml"
)

const (
	baseURL        = "https://dialer.example.com"
	platformNumber = "+15559990000"
)

var roster = model.Roster{
	{Name: "A", Destination: "+15550000001"},
	{Name: "B", Destination: "+15550000002"},
	{Name: "Backup", Destination: "+15550000009"},
}

type fixture struct {
	registry *engine.Registry
	port     *twilioapi.MockPort
	server   *server.Server
}

func newFixture(t *testing.T, opts ...server.Option) *fixture {
	t.Helper()
	reg := engine.NewRegistry(engine.WithRegistryClock(engine.NewManualClock(time.Time{})))
	port := twilioapi.NewMockPort()
	dialer := engine.NewDialer(reg, port, roster, platformNumber, baseURL+"/handle_calls", nil)
	return &fixture{registry: reg, port: port, server: server.New(dialer, baseURL, opts...)}
}

func (f *fixture) post(t *testing.T, path string, form url.Values, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func parseDial(t *testing.T, rec *httptest.ResponseRecorder) *twiml.Dial {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	resp, err := twiml.Parse(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("invalid TwiML: %v\n%s", err, rec.Body.String())
	}
	dial, ok := resp.FirstDial()
	if !ok {
		t.Fatalf("expected <Dial>, got %s", rec.Body.String())
	}
	return dial
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestInboundCallRingsFirstAgentAndIsTracked(t *testing.T) {
	f := newFixture(t)
	rec := f.post(t, "/handle_calls", httpstub.InboundCallForm("AC1", "CA1", "+14155550100", platformNumber), nil)

	dial := parseDial(t, rec)
	if dial.CallerID != platformNumber || dial.Number != "+15550000001" {
		t.Fatalf("unexpected dial %+v", dial)
	}
	num := dial.Children[0].(*twiml.Number)
	if num.StatusCallback != baseURL+"/call_status" {
		t.Fatalf("expected status callback on the dialed leg, got %q", num.StatusCallback)
	}
	if _, ok := f.registry.Get("CA1"); !ok {
		t.Fatal("inbound call should be tracked")
	}
}

func TestInboundCallResumesFromIndex(t *testing.T) {
	f := newFixture(t)
	form := httpstub.InboundCallForm("AC1", "CA1", "+14155550100", platformNumber)
	form.Set("CurrentAgentIndex", "0")

	dial := parseDial(t, f.post(t, "/handle_calls", form, nil))
	if dial.Number != "+15550000002" {
		t.Fatalf("expected second agent, got %s", dial.Number)
	}
	if s, _ := f.registry.Get("CA1"); s.Step != 1 {
		t.Fatalf("expected step 1, got %d", s.Step)
	}
}

func TestInboundCallHugeResumeIndexRingsBackup(t *testing.T) {
	f := newFixture(t)
	form := httpstub.InboundCallForm("AC1", "CA1", "+14155550100", platformNumber)
	form.Set("CurrentAgentIndex", "9223372036854775807")

	dial := parseDial(t, f.post(t, "/handle_calls", form, nil))
	if dial.Number != "+15550000009" {
		t.Fatalf("expected backup agent, got %s", dial.Number)
	}
	if s, _ := f.registry.Get("CA1"); s.Step != 2 {
		t.Fatalf("expected step 2, got %d", s.Step)
	}
}

func TestOutboundCallDialsRequestedNumber(t *testing.T) {
	f := newFixture(t)
	form := url.Values{"CallSid": {"CA2"}, "From": {"client:alice"}, "To": {"+14155550199"}}

	dial := parseDial(t, f.post(t, "/handle_calls", form, nil))
	if dial.Number != "+14155550199" || dial.CallerID != platformNumber {
		t.Fatalf("unexpected dial %+v", dial)
	}
	if dial.Children[0].(*twiml.Number).StatusCallback != "" {
		t.Fatal("outbound legs carry no status callback")
	}
	if f.registry.Len() != 0 {
		t.Fatal("outbound calls are not tracked")
	}
}

func TestTransferRedirectDialsTarget(t *testing.T) {
	f := newFixture(t)
	form := url.Values{"CallSid": {"CA1"}, "From": {"+14155550100"}, "To": {platformNumber}}

	dial := parseDial(t, f.post(t, "/handle_calls?TargetAgent=%2B15550000009", form, nil))
	if dial.Number != "+15550000009" {
		t.Fatalf("expected backup number, got %s", dial.Number)
	}
	if f.registry.Len() != 0 {
		t.Fatal("a redirected call must not be re-tracked")
	}
}

func TestMuteRedirectHoldsCaller(t *testing.T) {
	f := newFixture(t, server.WithHoldPause(5))
	form := url.Values{"CallSid": {"CA1"}, "To": {platformNumber}}

	rec := f.post(t, "/handle_calls?Mute=True", form, nil)
	resp, err := twiml.Parse(rec.Body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Children) != 3 {
		t.Fatalf("expected hold loop, got %s", rec.Body.String())
	}
	redirect := resp.Children[2].(*twiml.Redirect)
	if !strings.HasPrefix(redirect.URL, baseURL+"/handle_calls?") || !strings.Contains(redirect.URL, "Mute=true") {
		t.Fatalf("unexpected hold redirect %s", redirect.URL)
	}
	if f.registry.Len() != 0 {
		t.Fatal("held call must not be tracked")
	}
}

func TestHandleCallsApologizesOnRoutingFailure(t *testing.T) {
	reg := engine.NewRegistry()
	dialer := engine.NewDialer(reg, twilioapi.NewMockPort(), nil, platformNumber, baseURL+"/handle_calls", nil)
	srv := server.New(dialer, baseURL)

	req := httptest.NewRequest(http.MethodPost, "/handle_calls", strings.NewReader("CallSid=CA1&To=%2B15559990000"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	resp, err := twiml.Parse(rec.Body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if say, ok := resp.Children[0].(*twiml.Say); !ok || say.Text != twiml.ApologyMessage {
		t.Fatalf("expected apology, got %s", rec.Body.String())
	}
}

func TestHandleCallsWithoutPlatformNumber(t *testing.T) {
	dialer := engine.NewDialer(engine.NewRegistry(), twilioapi.NewMockPort(), roster, "", baseURL+"/handle_calls", nil)
	srv := server.New(dialer, baseURL)

	req := httptest.NewRequest(http.MethodPost, "/handle_calls", strings.NewReader("CallSid=CA1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestCallStatusRetiresParentSession(t *testing.T) {
	f := newFixture(t)
	f.post(t, "/handle_calls", httpstub.InboundCallForm("AC1", "CA1", "+14155550100", platformNumber), nil)

	rec := f.post(t, "/call_status", httpstub.StatusCallbackForm("AC1", "CA1", "ringing"), nil)
	if rec.Code != http.StatusOK || f.registry.Len() != 1 {
		t.Fatalf("ringing must not retire the call (%d, %d)", rec.Code, f.registry.Len())
	}
	f.post(t, "/call_status", httpstub.StatusCallbackForm("AC1", "CA1", "in-progress"), nil)
	if f.registry.Len() != 0 {
		t.Fatal("answered call should be retired")
	}
}

func TestTransferCall(t *testing.T) {
	f := newFixture(t)
	f.registry.Record("CA1", 0)

	rec := f.post(t, "/transfer_call", url.Values{"CallSid": {"CA1"}, "TargetAgent": {"B"}}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeJSON(t, rec); body["success"] != true || body["destination"] != "+15550000002" {
		t.Fatalf("unexpected body %v", body)
	}
	if len(f.port.RedirectsFor("CA1")) != 1 || f.registry.Len() != 0 {
		t.Fatal("expected one redirect and the session retired")
	}
}

func TestTransferCallErrors(t *testing.T) {
	f := newFixture(t)

	if rec := f.post(t, "/transfer_call", url.Values{"CallSid": {"CA1"}}, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing target: expected 400, got %d", rec.Code)
	}
	rec := f.post(t, "/transfer_call", url.Values{"CallSid": {"CA1"}, "TargetAgent": {"Bogus"}}, nil)
	if rec.Code != http.StatusBadRequest || decodeJSON(t, rec)["error"] != "Invalid target agent" {
		t.Fatalf("unknown agent: got %d %s", rec.Code, rec.Body.String())
	}

	f.port.RedirectFunc = func(string, string) error {
		return &model.TransportError{Op: "redirect", Code: 20404, Err: errors.New("not found")}
	}
	if rec := f.post(t, "/transfer_call", url.Values{"CallSid": {"CA1"}, "TargetAgent": {"A"}}, nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("transport failure: expected 500, got %d", rec.Code)
	}
}

func TestMuteCall(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "/mute_call", url.Values{"CallSid": {"CA1"}}, nil)
	if rec.Code != http.StatusOK || decodeJSON(t, rec)["message"] != "Call CA1 muted" {
		t.Fatalf("unexpected reply %d %s", rec.Code, rec.Body.String())
	}
	rec = f.post(t, "/mute_call", url.Values{"CallSid": {"CA1"}, "Mute": {"False"}}, nil)
	if decodeJSON(t, rec)["message"] != "Call CA1 unmuted" {
		t.Fatalf("unexpected reply %s", rec.Body.String())
	}
	if n := len(f.port.RedirectsFor("CA1")); n != 2 {
		t.Fatalf("expected 2 redirects, got %d", n)
	}
	if rec := f.post(t, "/mute_call", url.Values{}, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing SID: expected 400, got %d", rec.Code)
	}
}

func TestToken(t *testing.T) {
	f := newFixture(t)
	if rec := f.get(t, "/token?client=alice"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without credentials, got %d", rec.Code)
	}

	f = newFixture(t, server.WithTokenIssuer(&token.Issuer{
		AccountSID:   "AC1",
		APIKeySID:    "SK1",
		APIKeySecret: "secret",
		TwiMLAppSID:  "AP1",
	}))
	rec := f.get(t, "/token")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	if body["identity"] != "user" {
		t.Fatalf("expected default identity, got %v", body["identity"])
	}
	appSID, err := token.ApplicationSID(body["token"].(string), "secret")
	if err != nil || appSID != "AP1" {
		t.Fatalf("unexpected token app SID %q (%v)", appSID, err)
	}
}

func TestHealthAndRequestID(t *testing.T) {
	f := newFixture(t)
	f.registry.Record("CA1", 0)

	rec := f.get(t, "/healthz")
	if rec.Code != http.StatusOK || decodeJSON(t, rec)["tracked_calls"] != float64(1) {
		t.Fatalf("unexpected health reply %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestSignatureValidation(t *testing.T) {
	f := newFixture(t, server.WithSignatureValidation("authtoken"))
	form := httpstub.InboundCallForm("AC1", "CA1", "+14155550100", platformNumber)

	if rec := f.post(t, "/handle_calls", form, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("unsigned webhook: expected 403, got %d", rec.Code)
	}

	sig := httpstub.Sign("authtoken", baseURL+"/handle_calls", form)
	rec := f.post(t, "/handle_calls", form, http.Header{"X-Twilio-Signature": {sig}})
	if rec.Code != http.StatusOK {
		t.Fatalf("signed webhook: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.registry.Len() != 1 {
		t.Fatal("signed call should be tracked")
	}
}

func TestOperatorAuth(t *testing.T) {
	reg := engine.NewRegistry()
	f := newFixture(t,
		server.WithOperatorSecret("opsecret"),
		server.WithConsole(console.New(reg, roster, nil, nil)),
	)
	form := url.Values{"CallSid": {"CA1"}, "TargetAgent": {"A"}}

	if rec := f.post(t, "/transfer_call", form, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", rec.Code)
	}
	bad, _ := server.IssueOperatorToken("wrong", "mallory", time.Hour)
	if rec := f.post(t, "/transfer_call", form, http.Header{"Authorization": {"Bearer " + bad}}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", rec.Code)
	}

	good, err := server.IssueOperatorToken("opsecret", "alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if rec := f.post(t, "/transfer_call", form, http.Header{"Authorization": {"Bearer " + good}}); rec.Code != http.StatusOK {
		t.Fatalf("good token: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := f.get(t, "/console/sessions?access_token="+good); rec.Code != http.StatusOK {
		t.Fatalf("console with query token: expected 200, got %d", rec.Code)
	}
	if rec := f.get(t, "/console/sessions"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("console without token: expected 401, got %d", rec.Code)
	}

	// webhooks stay open to Twilio
	if rec := f.post(t, "/handle_calls", httpstub.InboundCallForm("AC1", "CA9", "+14155550100", platformNumber), nil); rec.Code != http.StatusOK {
		t.Fatalf("webhook should not need an operator token, got %d", rec.Code)
	}
}

func TestOperatorTokenRoundTrip(t *testing.T) {
	signed, err := server.IssueOperatorToken("opsecret", "alice", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := server.ParseOperatorToken("opsecret", signed)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "alice" || claims.Role != "operator" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if _, err := server.IssueOperatorToken("", "alice", time.Minute); err == nil {
		t.Fatal("expected error without a secret")
	}
}
