// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 JDK-tech

// Package token issues and inspects softphone access tokens.
package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/twilio/twilio-go/client/jwt"

	"github.com/JDK-tech/twilio-web-dialer/model"
)

// DefaultTTL matches Twilio's default access token lifetime
const DefaultTTL = time.Hour

// Issuer mints voice access tokens for browser softphones
type Issuer struct {
	AccountSID   string
	APIKeySID    string
	APIKeySecret string
	TwiMLAppSID  string
	// TTL defaults to DefaultTTL. Twilio floors its relative lifetime at an
	// hour, so shorter values are applied as an absolute expiry.
	TTL time.Duration
}

func (i *Issuer) missing() []string {
	var fields []string
	if i.AccountSID == "" {
		fields = append(fields, "TWILIO_ACCOUNT_SID")
	}
	if i.APIKeySID == "" {
		fields = append(fields, "TWILIO_API_KEY_SID")
	}
	if i.APIKeySecret == "" {
		fields = append(fields, "TWILIO_API_KEY_SECRET")
	}
	if i.TwiMLAppSID == "" {
		fields = append(fields, "TWIML_APP_SID")
	}
	return fields
}

// Issue returns a signed token letting identity place calls through the
// TwiML app and receive calls addressed to client:identity.
func (i *Issuer) Issue(identity string) (string, error) {
	if missing := i.missing(); len(missing) > 0 {
		return "", &model.ConfigurationMissing{Fields: missing}
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "", fmt.Errorf("identity is required")
	}
	ttl := i.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	params := jwt.AccessTokenParams{
		AccountSid:    i.AccountSID,
		SigningKeySid: i.APIKeySID,
		Secret:        i.APIKeySecret,
		Identity:      identity,
		Ttl:           ttl.Seconds(),
	}
	if ttl < DefaultTTL {
		params.ValidUntil = float64(time.Now().Add(ttl).Unix())
	}

	accessToken := jwt.CreateAccessToken(params)
	accessToken.AddGrant(&jwt.VoiceGrant{
		Incoming: jwt.Incoming{Allow: true},
		Outgoing: jwt.Outgoing{ApplicationSid: i.TwiMLAppSID},
	})

	signed, err := accessToken.ToJwt()
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Parse decodes a token. Pass an empty secret to skip signature validation.
func Parse(tokenString, secret string) (*jwt.AccessToken, error) {
	accessToken := &jwt.AccessToken{}
	decoded, err := accessToken.FromJwt(tokenString, secret)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}
	return decoded, nil
}

// VoiceGrant extracts the voice grant from a decoded token
func VoiceGrant(token *jwt.AccessToken) (*jwt.VoiceGrant, error) {
	for _, grant := range token.Grants {
		if voiceGrant, ok := grant.(*jwt.VoiceGrant); ok {
			return voiceGrant, nil
		}
	}
	return nil, fmt.Errorf("no voice grant found in token")
}

// ApplicationSID returns the outgoing TwiML app a token dials through
func ApplicationSID(tokenString, secret string) (string, error) {
	decoded, err := Parse(tokenString, secret)
	if err != nil {
		return "", err
	}
	grant, err := VoiceGrant(decoded)
	if err != nil {
		return "", err
	}
	if grant.Outgoing.ApplicationSid == "" {
		return "", fmt.Errorf("no voice grant with application SID found in token")
	}
	return grant.Outgoing.ApplicationSid, nil
}
