// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 JDK-tech

// Package server is the HTTP surface of the dialer: Twilio voice webhooks,
// softphone tokens and the operator controls.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/JDK-tech/twilio-web-dialer/config"
	"github.com/JDK-tech/twilio-web-dialer/console"
	"github.com/JDK-tech/twilio-web-dialer/engine"
	"github.com/JDK-tech/twilio-web-dialer/token"
)

// Server serves the dialer's HTTP API
type Server struct {
	dialer        *engine.Dialer
	publicBaseURL string

	issuer         *token.Issuer
	console        *console.Console
	authToken      string
	operatorSecret string
	holdPause      int
	log            *zap.Logger

	router *mux.Router
	http   *http.Server
}

// Option configures the server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithTokenIssuer enables GET /token
func WithTokenIssuer(issuer *token.Issuer) Option {
	return func(s *Server) {
		s.issuer = issuer
	}
}

// WithConsole mounts the operator console under /console
func WithConsole(c *console.Console) Option {
	return func(s *Server) {
		s.console = c
	}
}

// WithSignatureValidation requires Twilio signatures on webhook routes
func WithSignatureValidation(authToken string) Option {
	return func(s *Server) {
		s.authToken = authToken
	}
}

// WithOperatorSecret requires an operator bearer token on control routes
func WithOperatorSecret(secret string) Option {
	return func(s *Server) {
		s.operatorSecret = secret
	}
}

// WithHoldPause sets the pause, in seconds, between hold announcements
func WithHoldPause(seconds int) Option {
	return func(s *Server) {
		s.holdPause = seconds
	}
}

// New creates a server. publicBaseURL is the absolute URL Twilio reaches the
// dialer on, without a trailing path.
func New(dialer *engine.Dialer, publicBaseURL string, opts ...Option) *Server {
	s := &Server{
		dialer:        dialer,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		holdPause:     10,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.accessLog)

	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/token", s.handleToken).Methods(http.MethodGet)

	hooks := r.NewRoute().Subrouter()
	hooks.Use(s.validateTwilioSignature)
	hooks.HandleFunc(config.VoicePath, s.handleCalls).Methods(http.MethodPost)
	hooks.HandleFunc(config.StatusPath, s.handleCallStatus).Methods(http.MethodPost)

	ops := r.NewRoute().Subrouter()
	ops.Use(s.requireOperator)
	ops.HandleFunc("/transfer_call", s.handleTransfer).Methods(http.MethodPost)
	ops.HandleFunc("/mute_call", s.handleMute).Methods(http.MethodPost)
	if s.console != nil {
		s.console.RegisterRoutes(ops.PathPrefix("/console").Subrouter())
	}
	return r
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// VoiceURL is the absolute voice webhook URL
func (s *Server) VoiceURL() string {
	if s.publicBaseURL == "" {
		return ""
	}
	return s.publicBaseURL + config.VoicePath
}

// StatusURL is the absolute status callback URL
func (s *Server) StatusURL() string {
	if s.publicBaseURL == "" {
		return ""
	}
	return s.publicBaseURL + config.StatusPath
}

// Start listens on addr and blocks until the server stops
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("dialer listening", zap.String("addr", addr), zap.String("public_base_url", s.publicBaseURL))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
