package tcpserver

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tinytelemetry/usetrack/internal/collector"
)

func TestNewServer_DefaultLocalhostAddress(t *testing.T) {
	t.Parallel()

	s := NewServer("", nil)
	if got := s.Addr(); got != "127.0.0.1:4000" {
		t.Fatalf("Addr() = %q, want %q", got, "127.0.0.1:4000")
	}
}

func TestNewServer_UsesConfiguredAddressAndLineSize(t *testing.T) {
	t.Parallel()

	s := NewServer("0.0.0.0:5000", nil, ServerConfig{MaxLineSize: 2048})

	if got := s.Addr(); got != "0.0.0.0:5000" {
		t.Fatalf("Addr() = %q, want %q", got, "0.0.0.0:5000")
	}
	if got := s.maxLineSize; got != 2048 {
		t.Fatalf("max line size = %d, want %d", got, 2048)
	}
}

func TestExecute(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := collector.New(collector.WithClock(clock), collector.WithIDGenerator(func() string { return "task-1" }))
	s := NewServer("", collector.API(c))

	steps := []struct {
		line string
		want string
	}{
		{"start Login", "err collector: not in test mode"},
		{"test-mode maybe", "err usage: test-mode on|off"},
		{"test-mode on", "ok"},
		{"start", "err collector: task name is empty"},
		{"start Login flow", "ok task-1"},
		{"click", "ok"},
		{"CLICK", "ok"},
		{"error", "ok"},
		{"swipe", `err unknown command "swipe"`},
		{"end", "ok ended Login flow"},
		{"end", "ok idle"},
		{"help", "ok"},
		{"metrics", "ok tasks=1 time=0 clicks=2 errors=1 help=0.0"},
		{"test-mode off", "ok"},
	}
	for _, st := range steps {
		if got := s.execute(st.line); got != st.want {
			t.Errorf("execute(%q) = %q, want %q", st.line, got, st.want)
		}
	}
	if c.IsTestMode() {
		t.Error("test mode still enabled")
	}
}

func TestServer_RoundTripOverTCP(t *testing.T) {
	c := collector.New()
	s := NewServer("127.0.0.1:0", collector.API(c))
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	conn, err := net.DialTimeout("tcp", s.Addr(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	r := bufio.NewReader(conn)
	send := func(line string) string {
		t.Helper()
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			t.Fatalf("write %q: %v", line, err)
		}
		got, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read reply to %q: %v", line, err)
		}
		return strings.TrimSpace(got)
	}

	if got := send("test-mode on"); got != "ok" {
		t.Fatalf("test-mode on = %q", got)
	}
	if got := send("start Checkout"); !strings.HasPrefix(got, "ok ") {
		t.Fatalf("start = %q", got)
	}
	send("click")
	send("help")

	task, ok := c.CurrentTask()
	if !ok || task.Name != "Checkout" || task.Clicks != 1 || !task.HelpUsed {
		t.Errorf("collector task = %+v %v", task, ok)
	}
}

func TestServer_StopClosesIdleConnections(t *testing.T) {
	s := NewServer("127.0.0.1:0", collector.API(collector.New()))
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	conn, err := net.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		_ = s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on an idle connection")
	}
}
