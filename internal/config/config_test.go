package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		wantErr     bool
		errorString string
	}{
		{
			name:    "valid config",
			config:  Config{DBPath: "./test.db", LogLevel: "info"},
			wantErr: false,
		},
		{
			name:        "empty database path",
			config:      Config{DBPath: "", LogLevel: "info"},
			wantErr:     true,
			errorString: "database path cannot be empty",
		},
		{
			name:        "invalid log level",
			config:      Config{DBPath: "./test.db", LogLevel: "loud"},
			wantErr:     true,
			errorString: "invalid log level 'loud'",
		},
		{
			name:    "debug log level",
			config:  Config{DBPath: "./test.db", LogLevel: "debug"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Config.Validate() error = nil, wantErr %v", tt.wantErr)
					return
				}
				if tt.errorString != "" && !contains(err.Error(), tt.errorString) {
					t.Errorf("Config.Validate() error = %v, want error containing %v", err.Error(), tt.errorString)
				}
			} else {
				if err != nil {
					t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			}
		})
	}
}

func TestConfig_ValidateDoesNotTouchFilesystem(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := Config{
		DBPath:   filepath.Join(tmpDir, "nested", "xpense.db"),
		LogLevel: "info",
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Config.Validate() error = %v", err)
	}
	// directory creation belongs to storage.Open, not validation
	if _, err := os.Stat(filepath.Join(tmpDir, "nested")); !os.IsNotExist(err) {
		t.Errorf("Validate created the database directory, stat err = %v", err)
	}
}

func TestLoad(t *testing.T) {
	originalVars := map[string]string{
		"XPENSE_DB_PATH": os.Getenv("XPENSE_DB_PATH"),
		"LOG_LEVEL":      os.Getenv("LOG_LEVEL"),
	}

	for key := range originalVars {
		os.Unsetenv(key)
	}

	defer func() {
		for key, value := range originalVars {
			if value != "" {
				os.Setenv(key, value)
			} else {
				os.Unsetenv(key)
			}
		}
	}()

	t.Run("default values", func(t *testing.T) {
		cfg := Load()

		if cfg.DBPath != "./data/xpense.db" {
			t.Errorf("Load() DBPath = %v, want ./data/xpense.db", cfg.DBPath)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("Load() LogLevel = %v, want info", cfg.LogLevel)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		os.Setenv("XPENSE_DB_PATH", "/tmp/test.db")
		os.Setenv("LOG_LEVEL", "debug")

		cfg := Load()

		if cfg.DBPath != "/tmp/test.db" {
			t.Errorf("Load() DBPath = %v, want /tmp/test.db", cfg.DBPath)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("Load() LogLevel = %v, want debug", cfg.LogLevel)
		}
	})
}

// Helper function to check if string contains substring
func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || func() bool {
		for i := 0; i <= len(s)-len(substr); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	}())
}
