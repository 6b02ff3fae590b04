package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/JDK-tech/twilio-web-dialer/twiml"
)

func TestDescribe(t *testing.T) {
	color.NoColor = true

	body, err := twiml.DialResponse(twiml.DialOptions{CallerID: "+15559990000", Destination: "+15550000001"})
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := describe(&out, []byte(body)); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); !strings.Contains(got, "dial +15550000001 (caller ID +15559990000)") {
		t.Fatalf("unexpected description %q", got)
	}

	if err := describe(&out, []byte(`{"error":"nope"}`)); err == nil {
		t.Fatal("expected error for a non-TwiML body")
	}
}
