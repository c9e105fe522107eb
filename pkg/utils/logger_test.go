package utils

import "testing"

// TestInitLogger проверяет создание логгера для валидных комбинаций
func TestInitLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{name: "json info", level: "info", format: "json"},
		{name: "console debug", level: "debug", format: "console"},
		{name: "json error", level: "error", format: "json"},
		{name: "unknown level", level: "verbose", format: "json", wantErr: true},
		{name: "unknown format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := InitLogger(tt.level, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Errorf("InitLogger(%q, %q) expected error", tt.level, tt.format)
				}
				return
			}
			if err != nil {
				t.Fatalf("InitLogger(%q, %q) unexpected error: %v", tt.level, tt.format, err)
			}
			if logger == nil {
				t.Fatalf("InitLogger returned nil logger")
			}
			logger.Debug("test entry")
			_ = logger.Sync()
		})
	}
}
