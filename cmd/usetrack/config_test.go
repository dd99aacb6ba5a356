package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_AddressResolution(t *testing.T) {
	resetUsetrackEnv(t)

	tests := []struct {
		name        string
		configYAML  string
		wantHost    string
		wantAPIAddr string
		wantTCPAddr string
	}{
		{
			name: "defaults to localhost host",
			configYAML: `
api-port: 3100
tcp-port: 4100
`,
			wantHost:    "127.0.0.1",
			wantAPIAddr: "127.0.0.1:3100",
			wantTCPAddr: "127.0.0.1:4100",
		},
		{
			name: "host applies to derived api address",
			configYAML: `
host: 0.0.0.0
api-port: 3200
tcp-port: 4200
`,
			wantHost:    "0.0.0.0",
			wantAPIAddr: "0.0.0.0:3200",
			wantTCPAddr: "0.0.0.0:4200",
		},
		{
			name: "explicit address overrides host and port",
			configYAML: `
host: 0.0.0.0
api-port: 3300
api-addr: 10.0.0.5:8888
tcp-addr: 10.0.0.5:9999
`,
			wantHost:    "0.0.0.0",
			wantAPIAddr: "10.0.0.5:8888",
			wantTCPAddr: "10.0.0.5:9999",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig(writeTempConfig(t, tt.configYAML))
			if err != nil {
				t.Fatalf("loadConfig returned error: %v", err)
			}
			if cfg.Host != tt.wantHost {
				t.Fatalf("Host = %q, want %q", cfg.Host, tt.wantHost)
			}
			if cfg.APIAddr != tt.wantAPIAddr {
				t.Fatalf("APIAddr = %q, want %q", cfg.APIAddr, tt.wantAPIAddr)
			}
			if cfg.TCPAddr != tt.wantTCPAddr {
				t.Fatalf("TCPAddr = %q, want %q", cfg.TCPAddr, tt.wantTCPAddr)
			}
		})
	}
}

func TestLoadConfig_SessionSettings(t *testing.T) {
	resetUsetrackEnv(t)

	tests := []struct {
		name         string
		configYAML   string
		wantErr      bool
		errSubstring string
		assert       func(t *testing.T, cfg appConfig)
	}{
		{
			name: "defaults",
			configYAML: `
api-port: 3000
`,
			assert: func(t *testing.T, cfg appConfig) {
				t.Helper()
				if cfg.TestMode {
					t.Fatal("test mode should be off by default")
				}
				if cfg.TCPEnabled {
					t.Fatal("tcp command feed should be off by default")
				}
				if !cfg.APIEnabled || !cfg.MetricsEnabled {
					t.Fatalf("api-enabled=%v metrics-enabled=%v, want both on", cfg.APIEnabled, cfg.MetricsEnabled)
				}
				if cfg.TickInterval != time.Second || cfg.UpdateInterval != time.Second {
					t.Fatalf("intervals = %s/%s, want 1s/1s", cfg.TickInterval, cfg.UpdateInterval)
				}
				if cfg.SocketPath == "" {
					t.Fatal("socket path should default to a runtime path")
				}
				if cfg.ConfigPath == "" {
					t.Fatal("ConfigPath should record the file that was read")
				}
			},
		},
		{
			name: "custom session settings",
			configYAML: `
test-mode: true
metrics-enabled: false
tick-interval: 250ms
update-interval: 2s
socket-path: /tmp/usetrack-test/usetrack.sock
`,
			assert: func(t *testing.T, cfg appConfig) {
				t.Helper()
				if !cfg.TestMode {
					t.Fatal("test-mode not applied")
				}
				if cfg.MetricsEnabled {
					t.Fatal("metrics-enabled not applied")
				}
				if cfg.TickInterval != 250*time.Millisecond {
					t.Fatalf("tick-interval = %s", cfg.TickInterval)
				}
				if cfg.UpdateInterval != 2*time.Second {
					t.Fatalf("update-interval = %s", cfg.UpdateInterval)
				}
				if cfg.SocketPath != "/tmp/usetrack-test/usetrack.sock" {
					t.Fatalf("socket-path = %q", cfg.SocketPath)
				}
			},
		},
		{
			name: "invalid api port rejected",
			configYAML: `
api-port: 70000
`,
			wantErr:      true,
			errSubstring: "invalid api-port",
		},
		{
			name: "invalid tcp port rejected",
			configYAML: `
tcp-port: 0
`,
			wantErr:      true,
			errSubstring: "invalid tcp-port",
		},
		{
			name: "zero tick interval rejected",
			configYAML: `
tick-interval: 0s
`,
			wantErr:      true,
			errSubstring: "invalid tick-interval",
		},
		{
			name: "negative update interval rejected",
			configYAML: `
update-interval: -1s
`,
			wantErr:      true,
			errSubstring: "invalid update-interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig(writeTempConfig(t, tt.configYAML))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.errSubstring != "" && !strings.Contains(err.Error(), tt.errSubstring) {
					t.Fatalf("error = %q, want substring %q", err.Error(), tt.errSubstring)
				}
				return
			}

			if err != nil {
				t.Fatalf("loadConfig returned error: %v", err)
			}
			if tt.assert != nil {
				tt.assert(t, cfg)
			}
		})
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	resetUsetrackEnv(t)
	t.Setenv("USETRACK_TEST_MODE", "true")
	t.Setenv("USETRACK_API_PORT", "3900")

	cfg, err := loadConfig(writeTempConfig(t, `
test-mode: false
api-port: 3000
`))
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if !cfg.TestMode {
		t.Error("USETRACK_TEST_MODE did not override the file")
	}
	if cfg.APIAddr != "127.0.0.1:3900" {
		t.Errorf("APIAddr = %q, want 127.0.0.1:3900", cfg.APIAddr)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	resetUsetrackEnv(t)

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("missing config file should be tolerated: %v", err)
	}
	if cfg.APIAddr != "127.0.0.1:3000" {
		t.Errorf("APIAddr = %q, want default", cfg.APIAddr)
	}
	if cfg.ConfigPath != "" {
		t.Errorf("ConfigPath = %q, want empty for a missing file", cfg.ConfigPath)
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func resetUsetrackEnv(t *testing.T) {
	t.Helper()

	original := make(map[string]string)

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, "USETRACK_") {
			continue
		}
		original[key] = value
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}

	t.Cleanup(func() {
		for key, value := range original {
			if err := os.Setenv(key, value); err != nil {
				t.Fatalf("cleanup restore %s: %v", key, err)
			}
		}
	})
}
