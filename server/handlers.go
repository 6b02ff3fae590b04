// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 JDK-tech

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JDK-tech/twilio-web-dialer/model"
	"github.com/JDK-tech/twilio-web-dialer/routing"
	"github.com/JDK-tech/twilio-web-dialer/twilioapi"
	"github.com/JDK-tech/twilio-web-dialer/twiml"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) writeTwiML(w http.ResponseWriter, body string, err error) {
	if err != nil {
		s.log.Error("failed to render TwiML", zap.Error(err))
		http.Error(w, "failed to render TwiML", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func (s *Server) apologize(w http.ResponseWriter) {
	body, err := twiml.ApologyResponse()
	s.writeTwiML(w, body, err)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "twilio-web-dialer",
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"tracked_calls": s.dialer.TrackedCalls(),
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("client")
	if identity == "" {
		identity = "user"
	}
	if s.issuer == nil {
		writeError(w, http.StatusInternalServerError, "Missing required environment variables")
		return
	}

	signed, err := s.issuer.Issue(identity)
	if err != nil {
		if model.IsConfigurationMissing(err) {
			writeError(w, http.StatusInternalServerError, "Missing required environment variables")
			return
		}
		s.log.Error("token generation failed", zap.String("identity", identity), zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate token: %v", err))
		return
	}

	s.log.Info("generated token", zap.String("identity", identity))
	writeJSON(w, http.StatusOK, map[string]string{"token": signed, "identity": identity})
}

// handleCalls is the voice webhook. Twilio posts here for new calls and for
// every control redirect the dialer issues.
func (s *Server) handleCalls(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.apologize(w)
		return
	}
	callSID := r.PostForm.Get("CallSid")
	log := s.log.With(zap.String("call_sid", callSID), zap.String("request_id", RequestID(r.Context())))

	platformNumber := s.dialer.PlatformNumber()
	if platformNumber == "" {
		writeError(w, http.StatusInternalServerError, "Twilio number not configured")
		return
	}

	params, err := twilioapi.ParseControlParams(r.Form)
	if err != nil {
		log.Warn("bad control parameters", zap.Error(err))
		s.apologize(w)
		return
	}

	switch {
	case params.TargetAgent != "":
		if !routing.IsDialable(params.TargetAgent) {
			log.Warn("transfer target is not dialable", zap.String("destination", params.TargetAgent))
			s.apologize(w)
			return
		}
		log.Info("connecting transferred call", zap.String("destination", params.TargetAgent))
		body, err := twiml.DialResponse(twiml.DialOptions{CallerID: platformNumber, Destination: params.TargetAgent})
		s.writeTwiML(w, body, err)

	case params.Mute != nil && *params.Mute:
		mute := true
		holdURL, err := twilioapi.BuildControlURL(s.VoiceURL(), twilioapi.ControlParams{Mute: &mute})
		if err != nil {
			log.Error("cannot build hold loop", zap.Error(err))
			s.apologize(w)
			return
		}
		body, err := twiml.HoldResponse(holdURL, s.holdPause)
		s.writeTwiML(w, body, err)

	default:
		route, err := s.dialer.OnInboundCallPresented(callSID, r.PostForm.Get("From"), r.PostForm.Get("To"), params.Step)
		if err != nil {
			log.Error("call routing failed", zap.Error(err))
			s.apologize(w)
			return
		}
		opts := twiml.DialOptions{CallerID: platformNumber, Destination: route.Destination}
		if route.Tracked {
			opts.StatusCallback = s.StatusURL()
		}
		body, err := twiml.DialResponse(opts)
		s.writeTwiML(w, body, err)
	}
}

// handleCallStatus receives status callbacks for dialed legs. The tracked
// session belongs to the parent call.
func (s *Server) handleCallStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed form body")
		return
	}
	callSID := r.PostForm.Get("ParentCallSid")
	if callSID == "" {
		callSID = r.PostForm.Get("CallSid")
	}
	if callSID == "" {
		writeError(w, http.StatusBadRequest, "Missing CallSid parameter")
		return
	}

	status := model.ParseCallStatus(r.PostForm.Get("CallStatus"))
	s.dialer.OnCallStatus(callSID, status)

	body, err := twiml.EmptyResponse()
	s.writeTwiML(w, body, err)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed form body")
		return
	}
	callSID := strings.TrimSpace(r.PostForm.Get("CallSid"))
	target := strings.TrimSpace(r.PostForm.Get("TargetAgent"))
	if callSID == "" || target == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}

	dest, err := s.dialer.OnManualTransferRequested(r.Context(), callSID, target)
	switch {
	case errors.Is(err, model.ErrUnknownAgent):
		writeError(w, http.StatusBadRequest, "Invalid target agent")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Call transferred successfully",
		"destination": dest,
	})
}

func (s *Server) handleMute(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed form body")
		return
	}
	callSID := strings.TrimSpace(r.PostForm.Get("CallSid"))
	if callSID == "" {
		writeError(w, http.StatusBadRequest, "Missing CallSid parameter")
		return
	}
	mute := true
	if v := r.PostForm.Get("Mute"); v != "" {
		mute = strings.EqualFold(v, "true")
	}

	if err := s.dialer.OnManualMuteRequested(r.Context(), callSID, mute); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	verb := "unmuted"
	if mute {
		verb = "muted"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Call %s %s", callSID, verb),
	})
}
