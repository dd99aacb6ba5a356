package main

import (
	"bufio"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tinytelemetry/usetrack/internal/collector"
	"github.com/tinytelemetry/usetrack/internal/model"
	"github.com/tinytelemetry/usetrack/internal/socketrpc"
)

func testRuntimeConfig(t *testing.T) appConfig {
	t.Helper()
	return appConfig{
		Host:           defaultBindHost,
		APIEnabled:     false,
		MetricsEnabled: true,
		SocketPath:     filepath.Join(t.TempDir(), "usetrack.sock"),
		TickInterval:   time.Second,
		UpdateInterval: time.Second,
	}
}

func TestRuntime_ServesSessionOverSocket(t *testing.T) {
	cfg := testRuntimeConfig(t)
	rt := newRuntime(cfg)
	if err := rt.start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer rt.stop()

	client, err := socketrpc.Dial(cfg.SocketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if _, err := client.StartTask("Login"); !errors.Is(err, collector.ErrNotInTestMode) {
		t.Fatalf("StartTask before test mode err = %v, want ErrNotInTestMode", err)
	}
	if err := client.SetTestMode(true); err != nil {
		t.Fatal(err)
	}
	if _, err := client.StartTask("Login"); err != nil {
		t.Fatal(err)
	}
	if err := client.Record(model.EventClick); err != nil {
		t.Fatal(err)
	}

	task, ok := rt.collector.CurrentTask()
	if !ok || task.Name != "Login" || task.Clicks != 1 {
		t.Fatalf("collector task = %+v %v", task, ok)
	}

	count, err := testutil.GatherAndCount(rt.registry, "usetrack_tasks_started_total")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("usetrack_tasks_started_total series = %d, want 1", count)
	}
}

func TestRuntime_TestModeAtStartup(t *testing.T) {
	cfg := testRuntimeConfig(t)
	cfg.TestMode = true
	cfg.MetricsEnabled = false

	rt := newRuntime(cfg)
	if !rt.collector.IsTestMode() {
		t.Error("test-mode config did not enable test mode")
	}
	if rt.registry != nil {
		t.Error("registry created with metrics disabled")
	}
	if rt.apiServer != nil {
		t.Error("API server created with api-enabled=false")
	}
}

func TestRuntime_StopFinalizesActiveTask(t *testing.T) {
	cfg := testRuntimeConfig(t)
	cfg.TestMode = true
	rt := newRuntime(cfg)
	if err := rt.start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := rt.collector.StartTask("Checkout"); err != nil {
		t.Fatal(err)
	}
	rt.stop()

	if _, ok := rt.collector.CurrentTask(); ok {
		t.Error("task still active after stop")
	}
	if got := rt.collector.AllMetrics().TaskCount; got != 1 {
		t.Errorf("TaskCount = %d, want 1", got)
	}
	if _, err := socketrpc.Dial(cfg.SocketPath); err == nil {
		t.Error("socket still accepting after stop")
	}
}

func TestRuntime_TCPCommandFeed(t *testing.T) {
	cfg := testRuntimeConfig(t)
	cfg.TCPEnabled = true
	cfg.TCPAddr = "127.0.0.1:0"

	rt := newRuntime(cfg)
	if err := rt.start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer rt.stop()

	conn, err := net.DialTimeout("tcp", rt.feed.Addr(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := conn.Write([]byte("test-mode on\nstart Search\nerror\n")); err != nil {
		t.Fatal(err)
	}
	r := bufio.NewReader(conn)
	for i := 0; i < 3; i++ {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reply %d: %v", i, err)
		}
		if !strings.HasPrefix(line, "ok") {
			t.Fatalf("reply %d = %q", i, line)
		}
	}

	task, ok := rt.collector.CurrentTask()
	if !ok || task.Name != "Search" || task.Errors != 1 {
		t.Errorf("collector task = %+v %v", task, ok)
	}
}

func TestRenderStartupBanner(t *testing.T) {
	cfg := testRuntimeConfig(t)
	cfg.APIEnabled = true
	cfg.APIAddr = "127.0.0.1:3000"
	cfg.TestMode = true

	banner := renderStartupBanner(cfg)
	for _, want := range []string{"HTTP API", "127.0.0.1:3000", "/metrics", "Test Mode", "default (no file)"} {
		if !strings.Contains(banner, want) {
			t.Errorf("banner missing %q", want)
		}
	}
}
