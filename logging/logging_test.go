package logging_test

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/JDK-tech/twilio-web-dialer/config"
	"github.com/JDK-tech/twilio-web-dialer/logging"
)

func TestNewLevels(t *testing.T) {
	log, err := logging.New(config.LogConfig{Level: "debug", Format: "console"})
	if err != nil {
		t.Fatal(err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug should be enabled")
	}

	log, err = logging.New(config.LogConfig{Level: "WARN"})
	if err != nil {
		t.Fatal(err)
	}
	if log.Core().Enabled(zapcore.InfoLevel) || !log.Core().Enabled(zapcore.WarnLevel) {
		t.Fatal("expected warn level")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := logging.New(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := logging.New(config.LogConfig{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
