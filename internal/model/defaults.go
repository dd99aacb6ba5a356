package model

import "time"

// Shared defaults used by both the service and TUI binaries.
const (
	DefaultTickInterval   = time.Second
	DefaultUpdateInterval = time.Second
)
