package logging

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("default logger should be silent")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	defer SetLogger(nil)

	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	if !GetLogger().Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn level should be enabled")
	}
	if GetLogger().Core().Enabled(zapcore.InfoLevel) {
		t.Error("info level should be disabled")
	}
}

func TestLevelHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Debug("hidden")
	Info("selected", zap.String("target", "TCP:10.0.0.5"))
	Warn("careful")
	Error("failed", zap.Error(errors.New("boom")))

	tests := []struct {
		msg   string
		level zapcore.Level
	}{
		{"selected", zapcore.InfoLevel},
		{"careful", zapcore.WarnLevel},
		{"failed", zapcore.ErrorLevel},
	}

	entries := logs.All()
	if len(entries) != len(tests) {
		t.Fatalf("logged %d entries, want %d", len(entries), len(tests))
	}
	for i, tt := range tests {
		if entries[i].Message != tt.msg || entries[i].Level != tt.level {
			t.Errorf("entry %d = %s %q, want %s %q", i, entries[i].Level, entries[i].Message, tt.level, tt.msg)
		}
	}
}

func TestDomainHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogDeviceFound("usb", "TM-T20", "USB:/dev/bus/usb/001/002")
	LogStopRetry(2, 40*time.Millisecond, errors.New("busy"))
	LogDiscoveryEvent("restart")

	if logs.Len() != 3 {
		t.Fatalf("logged %d entries, want 3", logs.Len())
	}

	found := logs.FilterMessage("Device found").All()
	if len(found) != 1 {
		t.Fatalf("Device found entries = %d, want 1", len(found))
	}
	if got := found[0].ContextMap()["target"]; got != "USB:/dev/bus/usb/001/002" {
		t.Errorf("target field = %v, want USB:/dev/bus/usb/001/002", got)
	}

	events := logs.FilterField(zap.String("event", "restart")).All()
	if len(events) != 1 {
		t.Errorf("restart events = %d, want 1", len(events))
	}
}
