package logger

import "testing"

func TestNew_IsNop(t *testing.T) {
	l := New()
	if l.Log == nil {
		t.Fatal("expected non-nil logger before Init")
	}
	l.Log.Info("dropped")
}

func TestInit_Levels(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		level   string
		wantErr bool
	}{
		{"dev info", "", "Info", false},
		{"prod debug", "prod", "debug", false},
		{"dev warn", "dev", "warn", false},
		{"bad level", "", "loud", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			l.Env = tt.env
			err := l.Init(tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Init(%q) error = %v; wantErr %v", tt.level, err, tt.wantErr)
			}
		})
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Error("OrNop(nil) returned nil")
	}
	l := New()
	if got := OrNop(l.Log); got != l.Log {
		t.Error("OrNop should return the given logger")
	}
}
