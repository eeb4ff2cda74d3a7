package engine

import (
	"testing"
	"time"
)

func TestSettings(t *testing.T) {
	tests := []struct {
		name        string
		settings    Settings
		wantTimeout time.Duration
		wantErr     bool
	}{
		{"defaults", Settings{}, DefaultTimeout, false},
		{"explicit", Settings{Command: "python3 -m pyshacl", Timeout: "30s"}, 30 * time.Second, false},
		{"invalid timeout", Settings{Timeout: "soon"}, DefaultTimeout, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.settings.GetTimeout(); got != tt.wantTimeout {
				t.Errorf("GetTimeout() = %v, want %v", got, tt.wantTimeout)
			}
			v, err := tt.settings.New(nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && v.timeout != tt.wantTimeout {
				t.Errorf("validator timeout = %v, want %v", v.timeout, tt.wantTimeout)
			}
		})
	}
}
