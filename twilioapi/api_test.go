package twilioapi_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/twilio/twilio-go/client"
	twilioopenapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/JDK-tech/twilio-web-dialer/model"
	"github.com/JDK-tech/twilio-web-dialer/twilioapi"
)

type fakeCallAPI struct {
	status    string
	fetchErr  error
	updateErr error

	fetched []string
	updated map[string]*twilioopenapi.UpdateCallParams
}

func (f *fakeCallAPI) FetchCall(sid string, _ *twilioopenapi.FetchCallParams) (*twilioopenapi.ApiV2010Call, error) {
	f.fetched = append(f.fetched, sid)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	status := f.status
	return &twilioopenapi.ApiV2010Call{Sid: &sid, Status: &status}, nil
}

func (f *fakeCallAPI) UpdateCall(sid string, params *twilioopenapi.UpdateCallParams) (*twilioopenapi.ApiV2010Call, error) {
	if f.updated == nil {
		f.updated = make(map[string]*twilioopenapi.UpdateCallParams)
	}
	f.updated[sid] = params
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &twilioopenapi.ApiV2010Call{Sid: &sid}, nil
}

func TestFetchStatus(t *testing.T) {
	api := &fakeCallAPI{status: "in-progress"}
	c := twilioapi.NewClientWithAPI(api, "AC123")

	status, err := c.FetchStatus(context.Background(), "CA1")
	if err != nil {
		t.Fatal(err)
	}
	if status != model.CallInProgress {
		t.Fatalf("expected in-progress, got %s", status)
	}
	if len(api.fetched) != 1 || api.fetched[0] != "CA1" {
		t.Fatalf("unexpected fetches: %v", api.fetched)
	}
}

func TestFetchStatusTransportError(t *testing.T) {
	api := &fakeCallAPI{fetchErr: &client.TwilioRestError{Code: twilioapi.ErrorCodeResourceNotFound, Message: "not found", Status: 404}}
	c := twilioapi.NewClientWithAPI(api, "")

	_, err := c.FetchStatus(context.Background(), "CA404")
	var te *model.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Code != twilioapi.ErrorCodeResourceNotFound || te.Op != "fetch" || te.CallSID != "CA404" {
		t.Fatalf("unexpected transport error: %+v", te)
	}
	if !twilioapi.IsNotFound(err) {
		t.Fatal("expected IsNotFound")
	}
}

func TestFetchStatusCanceledContext(t *testing.T) {
	api := &fakeCallAPI{status: "ringing"}
	c := twilioapi.NewClientWithAPI(api, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.FetchStatus(ctx, "CA1"); !model.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if len(api.fetched) != 0 {
		t.Fatal("canceled context must not reach the API")
	}
}

func TestRedirect(t *testing.T) {
	api := &fakeCallAPI{}
	c := twilioapi.NewClientWithAPI(api, "AC123")

	if err := c.Redirect(context.Background(), "CA1", "https://dialer.example.com/handle_calls?TargetAgent=%2B15177451309"); err != nil {
		t.Fatal(err)
	}
	params := api.updated["CA1"]
	if params == nil || params.Url == nil || params.Method == nil {
		t.Fatalf("expected Url and Method to be set, got %+v", params)
	}
	if *params.Method != "POST" {
		t.Errorf("expected POST, got %s", *params.Method)
	}
	if params.PathAccountSid == nil || *params.PathAccountSid != "AC123" {
		t.Errorf("expected account SID AC123")
	}

	api.updateErr = errors.New("connection reset")
	err := c.Redirect(context.Background(), "CA2", "https://dialer.example.com/handle_calls")
	if !model.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestBuildControlURL(t *testing.T) {
	step := 2
	mute := true
	got, err := twilioapi.BuildControlURL("https://dialer.example.com/handle_calls", twilioapi.ControlParams{
		TargetAgent: "+15177451309",
		Step:        &step,
		Mute:        &mute,
	})
	if err != nil {
		t.Fatal(err)
	}

	u, err := url.Parse(got)
	if err != nil {
		t.Fatal(err)
	}
	if u.Host != "dialer.example.com" || u.Path != "/handle_calls" {
		t.Fatalf("unexpected URL %s", got)
	}

	p, err := twilioapi.ParseControlParams(u.Query())
	if err != nil {
		t.Fatal(err)
	}
	if p.TargetAgent != "+15177451309" || p.Step == nil || *p.Step != 2 || p.Mute == nil || !*p.Mute {
		t.Fatalf("params did not survive the URL: %+v", p)
	}
}

func TestBuildControlURLRequiresAbsoluteBase(t *testing.T) {
	for _, base := range []string{"", "/handle_calls", "ftp://example.com/x", "http://"} {
		if _, err := twilioapi.BuildControlURL(base, twilioapi.ControlParams{}); !model.IsConfigurationMissing(err) {
			t.Errorf("%q: expected ConfigurationMissing, got %v", base, err)
		}
	}
}

func TestParseControlParamsRejectsGarbage(t *testing.T) {
	if _, err := twilioapi.ParseControlParams(url.Values{"CurrentAgentIndex": {"two"}}); err == nil {
		t.Error("expected step parse error")
	}
	if _, err := twilioapi.ParseControlParams(url.Values{"Mute": {"maybe"}}); err == nil {
		t.Error("expected mute parse error")
	}
}
