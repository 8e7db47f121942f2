package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_IsNoop(t *testing.T) {
	l := New()
	if l.Log == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.Log.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected no-op logger before Init")
	}
}

func TestInit(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
		debugOn bool
		infoOn  bool
	}{
		{level: "Info", infoOn: true},
		{level: "debug", debugOn: true, infoOn: true},
		{level: "error"},
		{level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := New()
			err := l.Init(tt.level)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Init(%q) expected error", tt.level)
				}
				return
			}
			if err != nil {
				t.Fatalf("Init(%q) unexpected error: %v", tt.level, err)
			}
			if got := l.Log.Core().Enabled(zapcore.DebugLevel); got != tt.debugOn {
				t.Errorf("debug enabled = %v; want %v", got, tt.debugOn)
			}
			if got := l.Log.Core().Enabled(zapcore.InfoLevel); got != tt.infoOn {
				t.Errorf("info enabled = %v; want %v", got, tt.infoOn)
			}
		})
	}
}
