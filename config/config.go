// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 JDK-tech

// Package config loads dialer settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JDK-tech/twilio-web-dialer/model"
	"github.com/JDK-tech/twilio-web-dialer/routing"
)

// Config is the full dialer configuration
type Config struct {
	Twilio  TwilioConfig  `yaml:"twilio"`
	Server  ServerConfig  `yaml:"server"`
	Routing RoutingConfig `yaml:"routing"`
	Agents  model.Roster  `yaml:"agents"`
	Log     LogConfig     `yaml:"log"`
}

type TwilioConfig struct {
	AccountSID   string `yaml:"account_sid"`
	APIKeySID    string `yaml:"api_key_sid"`
	APIKeySecret string `yaml:"api_key_secret"`
	AuthToken    string `yaml:"auth_token"` // enables webhook signature checks
	TwiMLAppSID  string `yaml:"twiml_app_sid"`
	Number       string `yaml:"number"`
}

type ServerConfig struct {
	ListenAddr     string `yaml:"listen_addr"`
	PublicBaseURL  string `yaml:"public_base_url"`
	OperatorSecret string `yaml:"operator_secret"`
}

type RoutingConfig struct {
	RingTimeout  time.Duration `yaml:"ring_timeout"`
	ScanInterval time.Duration `yaml:"scan_interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Webhook paths served by the dialer
const (
	VoicePath  = "/handle_calls"
	StatusPath = "/call_status"
)

// DefaultRoster is the ring group used when none is configured. The last
// entry is the backup agent.
func DefaultRoster() model.Roster {
	return model.Roster{
		{Name: "Hailey", Destination: "+18108191394"},
		{Name: "Brandi", Destination: "+13137658399"},
		{Name: "Nicholle", Destination: "+15177778712"},
		{Name: "Rue", Destination: "+18105444469"},
		{Name: "Avary", Destination: "+17346009019"},
		{Name: "Breezy", Destination: "+17343664154"},
		{Name: "Graysen", Destination: "+15863023066"},
		{Name: "Stephanie", Destination: "+15177451309"},
	}
}

// Default returns a configuration with every optional setting filled in
func Default() *Config {
	return &Config{
		Server: ServerConfig{ListenAddr: ":3000"},
		Routing: RoutingConfig{
			RingTimeout:  23 * time.Second,
			ScanInterval: time.Second,
		},
		Agents: DefaultRoster(),
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path on top of the defaults and applies environment overrides.
// An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}
	overrideWithEnv(cfg, os.Getenv)
	return cfg, nil
}

func overrideWithEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	set(&cfg.Twilio.APIKeySID, "TWILIO_API_KEY_SID")
	set(&cfg.Twilio.APIKeySecret, "TWILIO_API_KEY_SECRET")
	set(&cfg.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	set(&cfg.Twilio.TwiMLAppSID, "TWIML_APP_SID")
	set(&cfg.Twilio.Number, "TWILIO_NUMBER")
	set(&cfg.Server.PublicBaseURL, "PUBLIC_BASE_URL")
	set(&cfg.Server.OperatorSecret, "DIALER_OPERATOR_SECRET")
	set(&cfg.Server.ListenAddr, "DIALER_LISTEN_ADDR")

	// AGENTn_NUMBER overrides the nth roster entry, 1-based
	for i := range cfg.Agents {
		set(&cfg.Agents[i].Destination, fmt.Sprintf("AGENT%d_NUMBER", i+1))
	}
}

// Validate reports every setting the server cannot run without
func (c *Config) Validate() error {
	var missing []string
	req := func(v, name string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	req(c.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	req(c.Twilio.APIKeySID, "TWILIO_API_KEY_SID")
	req(c.Twilio.APIKeySecret, "TWILIO_API_KEY_SECRET")
	req(c.Twilio.TwiMLAppSID, "TWIML_APP_SID")
	req(c.Twilio.Number, "TWILIO_NUMBER")
	req(c.Server.PublicBaseURL, "PUBLIC_BASE_URL")
	if len(c.Agents) == 0 {
		missing = append(missing, "agents")
	}
	if len(missing) > 0 {
		return &model.ConfigurationMissing{Fields: missing}
	}
	return c.ValidateRoster()
}

// ValidateRoster checks agent names and that every destination is dialable.
// Transfers and escalations carry the destination back through the voice
// webhook, which only dials E.164 numbers and client identities.
func (c *Config) ValidateRoster() error {
	if err := c.Agents.Validate(); err != nil {
		return fmt.Errorf("invalid roster: %w", err)
	}
	for _, a := range c.Agents {
		if !routing.IsDialable(a.Destination) {
			return fmt.Errorf("invalid roster: agent %q destination %q is not dialable", a.Name, a.Destination)
		}
	}
	return nil
}

// VoiceURL is the absolute voice webhook URL used in control redirects
func (c *Config) VoiceURL() string {
	return c.publicURL(VoicePath)
}

// StatusURL is the absolute status callback URL for dialed legs
func (c *Config) StatusURL() string {
	return c.publicURL(StatusPath)
}

func (c *Config) publicURL(path string) string {
	if c.Server.PublicBaseURL == "" {
		return ""
	}
	return strings.TrimRight(c.Server.PublicBaseURL, "/") + path
}
