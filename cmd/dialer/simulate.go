package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JDK-tech/twilio-web-dialer/httpstub"
	"github.com/JDK-tech/twilio-web-dialer/twiml"
)

func simulateCmd() *cobra.Command {
	var baseURL string
	var unsigned bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Post Twilio-style webhooks to a running dialer",
	}
	cmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:3000", "dialer base URL")
	cmd.PersistentFlags().BoolVar(&unsigned, "unsigned", false, "do not sign requests with TWILIO_AUTH_TOKEN")

	newSimulator := func() (*httpstub.Simulator, error) {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		authToken := cfg.Twilio.AuthToken
		if unsigned {
			authToken = ""
		}
		return &httpstub.Simulator{
			Client:     httpstub.NewDefaultWebhookClient(10*time.Second, authToken),
			BaseURL:    baseURL,
			AccountSID: cfg.Twilio.AccountSID,
		}, nil
	}

	var from, to, callSID string
	inbound := &cobra.Command{
		Use:   "inbound",
		Short: "Present a new inbound call",
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := newSimulator()
			if err != nil {
				return err
			}
			if to == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				to = cfg.Twilio.Number
			}
			if callSID == "" {
				callSID = httpstub.NewSID("CA")
			}
			res, err := sim.Inbound(cmd.Context(), callSID, from, to)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "call %s\n", color.New(color.FgCyan).Sprint(callSID))
			return describe(cmd.OutOrStdout(), res.Body)
		},
	}
	inbound.Flags().StringVar(&from, "from", "+15005550006", "caller number")
	inbound.Flags().StringVar(&to, "to", "", "dialed number (defaults to TWILIO_NUMBER)")
	inbound.Flags().StringVar(&callSID, "call-sid", "", "call SID (random when empty)")

	status := &cobra.Command{
		Use:   "status <call-sid> <status>",
		Short: "Report a dialed-leg status such as in-progress or no-answer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := newSimulator()
			if err != nil {
				return err
			}
			if _, err := sim.Status(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reported %s for %s\n", args[1], args[0])
			return nil
		},
	}

	cmd.AddCommand(inbound, status)
	return cmd
}

// describe prints what the dialer told Twilio to do
func describe(w io.Writer, body []byte) error {
	resp, err := twiml.Parse(body)
	if err != nil {
		return fmt.Errorf("dialer returned invalid TwiML: %w", err)
	}
	verb := color.New(color.FgGreen).SprintFunc()
	for _, n := range resp.Children {
		switch v := n.(type) {
		case *twiml.Dial:
			target := v.Number
			if target == "" {
				target = "client:" + v.Client
			}
			fmt.Fprintf(w, "  %s %s (caller ID %s)\n", verb("dial"), target, v.CallerID)
		case *twiml.Say:
			fmt.Fprintf(w, "  %s %q\n", verb("say"), v.Text)
		case *twiml.Pause:
			fmt.Fprintf(w, "  %s %s\n", verb("pause"), v.Length)
		case *twiml.Redirect:
			fmt.Fprintf(w, "  %s %s\n", verb("redirect"), v.URL)
		case *twiml.Hangup:
			fmt.Fprintf(w, "  %s\n", verb("hangup"))
		}
	}
	return nil
}
