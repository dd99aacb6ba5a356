package socketrpc

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/tinytelemetry/usetrack/internal/collector"
	"github.com/tinytelemetry/usetrack/internal/model"
)

// JSON-RPC 2.0 Method Reference
//
// The socket RPC server exposes model.SessionAPI over a Unix domain socket.
//
//   Method           Params              Result
//   ──────────────   ─────────────────   ──────────────────────────────
//   IsTestMode       (none)              bool
//   SetTestMode      {Enabled: bool}     bool
//   StartTask        {Name: string}      TaskMetric
//   EndTask          (none)              {Task: TaskMetric, Ended: bool}
//   RecordClick      (none)              null
//   RecordError      (none)              null
//   RecordHelpUsed   (none)              null
//   CurrentTask      (none)              TaskMetric | null
//   AllMetrics       (none)              AggregateMetrics
//   Snapshot         (none)              SessionSnapshot
//
// Recording without an active task succeeds and changes nothing.
//
// Error codes follow JSON-RPC 2.0:
//   -32700  Parse error (malformed JSON)
//   -32601  Method not found
//   -32602  Invalid params
//   -32603  Internal error (marshal failure)
//   -32000  Application error
//   -32001  Not in test mode
//   -32002  No active task
//   -32003  Empty task name

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
	codeApplication    = -32000
	codeNotInTestMode  = -32001
	codeNoActiveTask   = -32002
	codeEmptyTaskName  = -32003
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// Unwrap maps session error codes back to the collector sentinels so
// errors.Is works across the socket.
func (e *RPCError) Unwrap() error {
	switch e.Code {
	case codeNotInTestMode:
		return collector.ErrNotInTestMode
	case codeNoActiveTask:
		return collector.ErrNoActiveTask
	case codeEmptyTaskName:
		return collector.ErrEmptyTaskName
	}
	return nil
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, collector.ErrNotInTestMode):
		return codeNotInTestMode
	case errors.Is(err, collector.ErrNoActiveTask):
		return codeNoActiveTask
	case errors.Is(err, collector.ErrEmptyTaskName):
		return codeEmptyTaskName
	}
	return codeApplication
}

type endTaskResult struct {
	Task  model.TaskMetric `json:"task"`
	Ended bool             `json:"ended"`
}

// DefaultSocketPath returns the default Unix socket path.
// It prefers $XDG_RUNTIME_DIR/usetrack/usetrack.sock, falling back to
// ~/.local/state/usetrack/usetrack.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "usetrack", "usetrack.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/usetrack.sock"
	}
	return filepath.Join(home, ".local", "state", "usetrack", "usetrack.sock")
}
