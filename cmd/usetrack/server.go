package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/usetrack/internal/collector"
	"github.com/tinytelemetry/usetrack/internal/httpserver"
	"github.com/tinytelemetry/usetrack/internal/socketrpc"
	"github.com/tinytelemetry/usetrack/internal/tcpserver"
	"github.com/tinytelemetry/usetrack/internal/telemetry"
	"github.com/tinytelemetry/usetrack/internal/tui"
)

// runtime holds the collector and the surfaces serving it.
type runtime struct {
	cfg       appConfig
	collector *collector.Collector
	registry  *prom.Registry
	apiServer *httpserver.Server
	sock      *socketrpc.Server
	feed      *tcpserver.Server
}

func newRuntime(cfg appConfig) *runtime {
	rt := &runtime{cfg: cfg}

	rt.collector = collector.New()
	if cfg.MetricsEnabled {
		rt.registry = prom.NewRegistry()
		rt.collector.Subscribe(telemetry.NewRecorder(rt.registry, rt.collector))
	}
	if cfg.TestMode {
		rt.collector.EnableTestMode()
	}

	api := collector.API(rt.collector)
	if cfg.APIEnabled {
		var httpOpts []httpserver.Option
		if rt.registry != nil {
			httpOpts = append(httpOpts, httpserver.WithMetricsHandler(telemetry.HTTPHandler(rt.registry)))
		}
		rt.apiServer = httpserver.NewServer(cfg.APIAddr, api, httpOpts...)
	}
	if cfg.TCPEnabled {
		rt.feed = tcpserver.NewServer(cfg.TCPAddr, api)
	}
	rt.sock = socketrpc.NewServer(cfg.SocketPath, api)
	return rt
}

// start brings up the HTTP API, the TCP command feed and the socket. A
// socket failure is logged, not fatal: the indicator is optional.
func (rt *runtime) start() error {
	if rt.apiServer != nil {
		if err := rt.apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
	}
	if rt.feed != nil {
		if err := rt.feed.Start(); err != nil {
			if rt.apiServer != nil {
				_ = rt.apiServer.Stop()
			}
			return fmt.Errorf("failed to start TCP command feed: %w", err)
		}
	}
	if err := rt.sock.Start(); err != nil {
		log.Printf("Warning: failed to start socket server: %v", err)
		rt.sock = nil
	}
	return nil
}

func (rt *runtime) stop() {
	if rt.sock != nil {
		rt.sock.Stop()
	}
	if rt.feed != nil {
		_ = rt.feed.Stop()
	}
	if rt.apiServer != nil {
		if err := rt.apiServer.Stop(); err != nil {
			log.Printf("server: http shutdown: %v", err)
		}
	}
	if task, ok := rt.collector.EndTask(); ok {
		log.Printf("server: finalized %q on shutdown after %s", task.Name, task.Duration(time.Now()).Truncate(time.Second))
	}
	m := rt.collector.AllMetrics()
	log.Printf("server: session closed: %d tasks, %d clicks, %d errors, help %.1f%%",
		m.TaskCount, m.TotalClicks, m.TotalErrors, m.HelpUsagePercent)
}

// runServer starts the collector with its HTTP API and socket, optionally
// with the moderator indicator in this terminal.
func runServer(cfg appConfig, withTUI bool) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	rt := newRuntime(cfg)
	if err := rt.start(); err != nil {
		return err
	}
	defer rt.stop()

	// Set up context and signal handling before errgroup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		if !withTUI {
			fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		}
		cancel()

		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		cleanupSocket(cfg.SocketPath)
		os.Exit(1)
	}()

	if !withTUI {
		printStartupBanner(cfg)
	}

	g, gctx := errgroup.WithContext(ctx)

	if withTUI {
		g.Go(func() error {
			defer cancel()
			return runIndicator(gctx, rt.collector, cfg)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err := g.Wait()
	if err != nil {
		log.Printf("server: errgroup exited with error: %v", err)
	}

	signal.Stop(sigCh)
	return err
}

// runIndicator runs the indicator against the in-process collector. The
// presenter is subscribed so task transitions show without waiting for the
// next refresh.
func runIndicator(ctx context.Context, c *collector.Collector, cfg appConfig) error {
	session := tui.NewSession(collector.API(c), tui.Config{
		UpdateInterval: cfg.UpdateInterval,
		TickInterval:   cfg.TickInterval,
		Source:         c,
	})
	defer session.Close()

	unsubscribe := c.Subscribe(session.Presenter())
	defer unsubscribe()

	p := tea.NewProgram(tui.NewSessionApp(session), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("indicator requires a real terminal")
		}
		return fmt.Errorf("error running indicator: %w", err)
	}
	return nil
}

func cleanupSocket(path string) {
	if path != "" {
		os.Remove(path)
	}
}

func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "usetrack")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	f, err := os.OpenFile(filepath.Join(logDir, "usetrack.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}

func printStartupBanner(cfg appConfig) {
	fmt.Println(renderStartupBanner(cfg))
}

func renderStartupBanner(cfg appConfig) string {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := cyan.Bold(true).Render(`
    ╦ ╦╔═╗╔═╗╔╦╗╦═╗╔═╗╔═╗╦╔═
    ║ ║╚═╗║╣  ║ ╠╦╝╠═╣║  ╠╩╗
    ╚═╝╚═╝╚═╝ ╩ ╩╚═╩ ╩╚═╝╩ ╩`)

	row := func(mark, label, value string) string {
		return fmt.Sprintf("    %s  %-14s %s", mark, label, value)
	}
	separator := dim.Render("    ─────────────────────────────────")

	lines := []string{"", logo, "    " + dim.Render("v"+version), "", separator, ""}

	lines = append(lines, bold.Render("    Gateway"), "")
	if cfg.APIEnabled {
		lines = append(lines, row(check, "HTTP API", cyan.Render(cfg.APIAddr)))
		if cfg.MetricsEnabled {
			lines = append(lines, row(check, "Prometheus", cyan.Render("http://"+cfg.APIAddr+"/metrics")))
		} else {
			lines = append(lines, row(dot, "Prometheus", dim.Render("disabled")))
		}
	} else {
		lines = append(lines, row(dot, "HTTP API", dim.Render("disabled")))
	}
	if cfg.TCPEnabled {
		lines = append(lines, row(check, "TCP Commands", cyan.Render(cfg.TCPAddr)))
	} else {
		lines = append(lines, row(dot, "TCP Commands", dim.Render("disabled")))
	}
	lines = append(lines, row(check, "Unix Socket", cyan.Render(shortenPath(cfg.SocketPath))), "")

	lines = append(lines, bold.Render("    Session"), "")
	if cfg.TestMode {
		lines = append(lines, row(check, "Test Mode", red.Render("on")))
	} else {
		lines = append(lines, row(dot, "Test Mode", dim.Render("off until enabled")))
	}
	lines = append(lines, row(check, "Tick", dim.Render(cfg.TickInterval.String())), "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, row(check, "Config File", dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, row(dot, "Config File", dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "",
		"    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	return strings.Join(lines, "\n")
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
