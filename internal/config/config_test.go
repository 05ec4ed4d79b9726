package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.Host = "gateway.local:8080"
	cfg.Auth = "token"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Host != "gateway.local:8080" {
		t.Errorf("Host = %q, want gateway.local:8080", loaded.Host)
	}
	if loaded.Auth != "token" {
		t.Errorf("Auth = %q, want token", loaded.Auth)
	}
	if loaded.PartLimitGSM7 != 160 {
		t.Errorf("PartLimitGSM7 = %d, want 160", loaded.PartLimitGSM7)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate() error = %v", err)
	}
	if cfg.Host != "localhost:3000" {
		t.Errorf("Host = %q, want localhost:3000", cfg.Host)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config not written: %v", err)
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestEndpointDerivation(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantHTTP string
		wantWS   string
	}{
		{
			name:     "derived from host",
			cfg:      Config{Host: "localhost:3000"},
			wantHTTP: "http://localhost:3000",
			wantWS:   "ws://localhost:3000/ws",
		},
		{
			name:     "certificate switches scheme",
			cfg:      Config{Host: "gw:3000", SSLCertificate: "/etc/cert.pem"},
			wantHTTP: "https://gw:3000",
			wantWS:   "wss://gw:3000/ws",
		},
		{
			name:     "explicit uris win",
			cfg:      Config{Host: "gw:3000", HTTPURI: "http://other:9000", WSURI: "ws://other:9000/live"},
			wantHTTP: "http://other:9000",
			wantWS:   "ws://other:9000/live",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.HTTPBaseURL(); got != tt.wantHTTP {
				t.Errorf("HTTPBaseURL() = %q, want %q", got, tt.wantHTTP)
			}
			if got := tt.cfg.WSURL(); got != tt.wantWS {
				t.Errorf("WSURL() = %q, want %q", got, tt.wantWS)
			}
		})
	}
}
