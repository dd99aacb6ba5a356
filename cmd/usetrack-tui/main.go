package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/usetrack/internal/model"
	"github.com/tinytelemetry/usetrack/internal/socketrpc"
	"github.com/tinytelemetry/usetrack/internal/tui"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var socketPath string
	var showVersion bool
	var snapshot bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/usetrack/config.yml)")
	flag.StringVar(&socketPath, "socket", "", "override socket path to connect to the usetrack service")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.BoolVar(&snapshot, "snapshot", false, "print the current session as YAML and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("usetrack-tui - Moderator Indicator\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if socketPath != "" {
		cfg.SocketPath = socketPath
	}

	client, err := socketrpc.Dial(cfg.SocketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot connect to usetrack service at %s: %v\nIs the service running? Start it with: usetrack\n", cfg.SocketPath, err)
		os.Exit(1)
	}
	defer client.Close()

	if snapshot {
		err = writeSnapshot(os.Stdout, client)
	} else {
		err = runTUI(cfg, client)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		client.Close()
		os.Exit(1)
	}
}

func writeSnapshot(w io.Writer, api model.SessionAPI) error {
	snap, err := api.Snapshot()
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}
	return tui.WriteSnapshotYAML(w, snap)
}

func runTUI(cfg cliConfig, api model.SessionAPI) error {
	session := tui.NewSession(api, tui.Config{
		UpdateInterval: cfg.UpdateInterval,
		TickInterval:   cfg.TickInterval,
	})
	defer session.Close()

	p := tea.NewProgram(tui.NewSessionApp(session), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
