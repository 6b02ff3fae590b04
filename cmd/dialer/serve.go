package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JDK-tech/twilio-web-dialer/console"
	"github.com/JDK-tech/twilio-web-dialer/engine"
	"github.com/JDK-tech/twilio-web-dialer/logging"
	"github.com/JDK-tech/twilio-web-dialer/server"
	"github.com/JDK-tech/twilio-web-dialer/token"
	"github.com/JDK-tech/twilio-web-dialer/twilioapi"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and escalation scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.ListenAddr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer log.Sync()

			port := twilioapi.NewClient(twilioapi.Credentials{
				AccountSID:   cfg.Twilio.AccountSID,
				APIKeySID:    cfg.Twilio.APIKeySID,
				APIKeySecret: cfg.Twilio.APIKeySecret,
			})

			hub := console.NewHub(log.Named("console"))
			registry := engine.NewRegistry(engine.WithObserver(hub.Publish))
			dialer := engine.NewDialer(registry, port, cfg.Agents, cfg.Twilio.Number, cfg.VoiceURL(), log.Named("dialer"))
			scheduler, err := engine.NewScheduler(registry, port, cfg.Agents, cfg.VoiceURL(),
				engine.WithLogger(log.Named("scheduler")),
				engine.WithRingTimeout(cfg.Routing.RingTimeout),
				engine.WithScanInterval(cfg.Routing.ScanInterval),
			)
			if err != nil {
				return err
			}

			srv := server.New(dialer, cfg.Server.PublicBaseURL,
				server.WithLogger(log.Named("http")),
				server.WithTokenIssuer(&token.Issuer{
					AccountSID:   cfg.Twilio.AccountSID,
					APIKeySID:    cfg.Twilio.APIKeySID,
					APIKeySecret: cfg.Twilio.APIKeySecret,
					TwiMLAppSID:  cfg.Twilio.TwiMLAppSID,
				}),
				server.WithConsole(console.New(registry, cfg.Agents, scheduler, hub)),
				server.WithSignatureValidation(cfg.Twilio.AuthToken),
				server.WithOperatorSecret(cfg.Server.OperatorSecret),
			)
			if cfg.Twilio.AuthToken == "" {
				log.Warn("TWILIO_AUTH_TOKEN not set, webhook signatures are not checked")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go hub.Run(ctx)
			go scheduler.Run(ctx)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(cfg.Server.ListenAddr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down", zap.Int("tracked_calls", dialer.TrackedCalls()))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
