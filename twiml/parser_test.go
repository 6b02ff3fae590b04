package twiml

import (
	"testing"
	"time"
)

func TestParseDialWithNumber(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Dial callerId="+15559990000" timeout="20">
    <Number statusCallback="https://dialer.example.com/call_status" statusCallbackEvent="answered completed">+15550000001</Number>
  </Dial>
</Response>`

	resp, err := Parse([]byte(xml))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	dial, ok := resp.FirstDial()
	if !ok {
		t.Fatal("expected a <Dial>")
	}
	if dial.CallerID != "+15559990000" || dial.Timeout != 20*time.Second {
		t.Errorf("unexpected dial attributes %+v", dial)
	}
	if dial.Number != "+15550000001" {
		t.Errorf("expected number +15550000001, got %q", dial.Number)
	}
	num := dial.Children[0].(*Number)
	if num.StatusCallback != "https://dialer.example.com/call_status" {
		t.Errorf("unexpected status callback %q", num.StatusCallback)
	}
	if len(num.StatusCallbackEvent) != 2 || num.StatusCallbackEvent[0] != "answered" {
		t.Errorf("unexpected events %v", num.StatusCallbackEvent)
	}
}

func TestParsePlainDialAndClient(t *testing.T) {
	resp, err := Parse([]byte(`<Response><Dial>+15550000002</Dial><Dial><Client>alice</Client></Dial></Response>`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(resp.Children) != 2 {
		t.Fatalf("expected 2 dials, got %d", len(resp.Children))
	}
	if d := resp.Children[0].(*Dial); d.Number != "+15550000002" || d.Method != "POST" {
		t.Errorf("unexpected first dial %+v", d)
	}
	if d := resp.Children[1].(*Dial); d.Client != "alice" {
		t.Errorf("expected client alice, got %q", d.Client)
	}
}

func TestParseHoldLoop(t *testing.T) {
	xml := `<Response><Say voice="alice">Please hold.</Say><Pause length="5"/><Redirect method="post">https://x.example.com/handle_calls?Mute=true</Redirect></Response>`
	resp, err := Parse([]byte(xml))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(resp.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(resp.Children))
	}
	if s := resp.Children[0].(*Say); s.Text != "Please hold." || s.Voice != "alice" {
		t.Errorf("unexpected say %+v", s)
	}
	if p := resp.Children[1].(*Pause); p.Length != 5*time.Second {
		t.Errorf("unexpected pause %s", p.Length)
	}
	r := resp.Children[2].(*Redirect)
	if r.URL != "https://x.example.com/handle_calls?Mute=true" || r.Method != "POST" {
		t.Errorf("unexpected redirect %+v", r)
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"no response":       `<Foo/>`,
		"unknown verb":      `<Response><Gather/></Response>`,
		"unknown attribute": `<Response><Say bogus="1">hi</Say></Response>`,
		"unterminated":      `<Response><Say>hi</Say>`,
	}
	for name, xml := range cases {
		if _, err := Parse([]byte(xml)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
