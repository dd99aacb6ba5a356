package socketrpc

import (
	"encoding/json"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/tinytelemetry/usetrack/internal/collector"
)

func newTestDispatcher() (*Server, *collector.Collector) {
	c := collector.New(collector.WithClock(clockwork.NewFakeClock()))
	return &Server{api: collector.API(c)}, c
}

func call(t *testing.T, srv *Server, method, params string) Response {
	t.Helper()
	var raw json.RawMessage
	if params != "" {
		raw = json.RawMessage(params)
	}
	return srv.dispatch(Request{JSONRPC: "2.0", ID: 1, Method: method, Params: raw})
}

func TestDispatch_AllMethods(t *testing.T) {
	t.Parallel()
	srv, c := newTestDispatcher()
	c.EnableTestMode()

	tests := []struct {
		method string
		params string
	}{
		{"IsTestMode", ``},
		{"SetTestMode", `{"Enabled":true}`},
		{"StartTask", `{"Name":"Login"}`},
		{"RecordClick", ``},
		{"RecordError", `{}`},
		{"RecordHelpUsed", `null`},
		{"CurrentTask", ``},
		{"AllMetrics", ``},
		{"Snapshot", ``},
		{"EndTask", ``},
	}

	// Sequential: later methods depend on the task started earlier.
	for _, tt := range tests {
		resp := call(t, srv, tt.method, tt.params)
		if resp.Error != nil {
			t.Fatalf("dispatch(%s) error: %s", tt.method, resp.Error.Message)
		}
		if resp.Result == nil {
			t.Fatalf("dispatch(%s) returned nil result", tt.method)
		}
		if resp.JSONRPC != "2.0" {
			t.Errorf("JSONRPC = %q, want 2.0", resp.JSONRPC)
		}
		if resp.ID != 1 {
			t.Errorf("ID = %d, want 1", resp.ID)
		}
	}

	agg := c.AllMetrics()
	if agg.TotalClicks != 1 || agg.TotalErrors != 1 || agg.HelpUsagePercent != 100 {
		t.Errorf("aggregate after dispatch = %+v", agg)
	}
}

func TestDispatch_MethodNotFound(t *testing.T) {
	t.Parallel()
	srv, _ := newTestDispatcher()

	resp := call(t, srv, "NonExistentMethod", `{}`)
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != codeMethodNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, codeMethodNotFound)
	}
}

func TestDispatch_InvalidParams(t *testing.T) {
	t.Parallel()
	srv, _ := newTestDispatcher()

	for _, tc := range []struct{ method, params string }{
		{"StartTask", `not json`},
		{"SetTestMode", `not json`},
		{"SetTestMode", `{}`},
	} {
		resp := call(t, srv, tc.method, tc.params)
		if resp.Error == nil {
			t.Fatalf("%s(%s): expected error", tc.method, tc.params)
		}
		if resp.Error.Code != codeInvalidParams {
			t.Errorf("%s(%s): error code = %d, want %d", tc.method, tc.params, resp.Error.Code, codeInvalidParams)
		}
	}
}

func TestDispatch_SessionErrorCodes(t *testing.T) {
	t.Parallel()
	srv, c := newTestDispatcher()

	resp := call(t, srv, "StartTask", `{"Name":"Login"}`)
	if resp.Error == nil || resp.Error.Code != codeNotInTestMode {
		t.Fatalf("StartTask outside test mode = %+v, want code %d", resp.Error, codeNotInTestMode)
	}

	c.EnableTestMode()
	resp = call(t, srv, "StartTask", `{"Name":"  "}`)
	if resp.Error == nil || resp.Error.Code != codeEmptyTaskName {
		t.Fatalf("StartTask blank name = %+v, want code %d", resp.Error, codeEmptyTaskName)
	}
}

func TestDispatch_EndTaskWithoutActiveTask(t *testing.T) {
	t.Parallel()
	srv, c := newTestDispatcher()
	c.EnableTestMode()

	resp := call(t, srv, "EndTask", ``)
	if resp.Error != nil {
		t.Fatalf("EndTask error: %s", resp.Error.Message)
	}
	var result endTaskResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.Ended {
		t.Error("Ended = true with no active task")
	}
}

func TestDispatch_CurrentTaskNullWhenIdle(t *testing.T) {
	t.Parallel()
	srv, _ := newTestDispatcher()

	resp := call(t, srv, "CurrentTask", ``)
	if string(resp.Result) != "null" {
		t.Errorf("CurrentTask result = %s, want null", resp.Result)
	}
}

func TestDispatch_PreservesRequestID(t *testing.T) {
	t.Parallel()
	srv, _ := newTestDispatcher()

	for _, id := range []int{0, 1, 42, 9999} {
		resp := srv.dispatch(Request{
			JSONRPC: "2.0",
			ID:      id,
			Method:  "IsTestMode",
			Params:  json.RawMessage(`{}`),
		})
		if resp.ID != id {
			t.Errorf("request ID %d: response ID = %d", id, resp.ID)
		}
	}
}

func TestRPCError_UnwrapsSentinels(t *testing.T) {
	t.Parallel()

	for _, sentinel := range []error{collector.ErrNotInTestMode, collector.ErrNoActiveTask, collector.ErrEmptyTaskName} {
		rpcErr := &RPCError{Code: errorCode(sentinel), Message: sentinel.Error()}
		if rpcErr.Unwrap() != sentinel {
			t.Errorf("Unwrap(%d) = %v, want %v", rpcErr.Code, rpcErr.Unwrap(), sentinel)
		}
	}
	if (&RPCError{Code: codeApplication}).Unwrap() != nil {
		t.Error("application error should not unwrap to a sentinel")
	}
}
