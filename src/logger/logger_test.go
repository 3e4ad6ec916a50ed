package logger

import (
	"testing"

	"stock-insight/src/models"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		"warn":    zapcore.WarnLevel,
		" ERROR ": zapcore.ErrorLevel,
		"INFO":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerToleratesNilConfig(t *testing.T) {
	var cfg *models.MConfig
	for _, c := range []interface{}{nil, cfg, "not a config"} {
		l := NewLogger(c, "test")
		if l == nil {
			t.Fatalf("NewLogger(%T) returned nil", c)
		}
		if l.sugar.Desugar().Core().Enabled(zapcore.DebugLevel) {
			t.Errorf("NewLogger(%T) should default to INFO", c)
		}
	}

	l := NewLogger(&models.MConfig{LogLevel: "DEBUG"}, "test")
	if !l.sugar.Desugar().Core().Enabled(zapcore.DebugLevel) {
		t.Error("DEBUG level not applied")
	}
}
