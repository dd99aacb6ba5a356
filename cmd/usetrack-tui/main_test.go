package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tinytelemetry/usetrack/internal/collector"
	"github.com/tinytelemetry/usetrack/internal/socketrpc"
)

func TestWriteSnapshot_OverSocket(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := collector.New(collector.WithClock(clock))
	c.EnableTestMode()
	_, _ = c.StartTask("Login")
	c.RecordClick()
	clock.Advance(42 * time.Second)

	sockPath := filepath.Join(t.TempDir(), "usetrack.sock")
	srv := socketrpc.NewServer(sockPath, collector.API(c))
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	defer srv.Stop()

	client, err := socketrpc.Dial(sockPath)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	var buf bytes.Buffer
	if err := writeSnapshot(&buf, client); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"test_mode: true", "name: Login", "00:42", "active: true"} {
		if !strings.Contains(out, want) {
			t.Errorf("snapshot missing %q:\n%s", want, out)
		}
	}
}

func TestLoadCLIConfig(t *testing.T) {
	for _, kv := range os.Environ() {
		if key, _, _ := strings.Cut(kv, "="); strings.HasPrefix(key, "USETRACK_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}

	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("update-interval: 500ms\ntick-interval: 0s\nsocket-path: /tmp/u.sock\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadCLIConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.UpdateInterval != 500*time.Millisecond {
		t.Errorf("UpdateInterval = %s, want 500ms", cfg.UpdateInterval)
	}
	if cfg.TickInterval != defaultTickInterval {
		t.Errorf("TickInterval = %s, want default for non-positive value", cfg.TickInterval)
	}
	if cfg.SocketPath != "/tmp/u.sock" {
		t.Errorf("SocketPath = %q", cfg.SocketPath)
	}
}
