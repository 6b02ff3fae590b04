package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JDK-tech/twilio-web-dialer/server"
	"github.com/JDK-tech/twilio-web-dialer/token"
)

func tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <identity>",
		Short: "Mint a softphone access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			issuer := &token.Issuer{
				AccountSID:   cfg.Twilio.AccountSID,
				APIKeySID:    cfg.Twilio.APIKeySID,
				APIKeySecret: cfg.Twilio.APIKeySecret,
				TwiMLAppSID:  cfg.Twilio.TwiMLAppSID,
				TTL:          ttl,
			}
			signed, err := issuer.Issue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", token.DefaultTTL, "token lifetime")
	return cmd
}

func operatorTokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "operator-token <subject>",
		Short: "Mint a bearer token for the transfer, mute and console endpoints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			signed, err := server.IssueOperatorToken(cfg.Server.OperatorSecret, args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}
