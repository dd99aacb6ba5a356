package socketrpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tinytelemetry/usetrack/internal/model"
)

// Client implements model.SessionAPI over a Unix domain socket using JSON-RPC 2.0.
type Client struct {
	conn    net.Conn
	mu      sync.Mutex
	nextID  int
	scanner *bufio.Scanner
	encoder *json.Encoder
}

// callTimeout bounds one request/response exchange.
const callTimeout = 5 * time.Second

// Dial connects to the socket RPC server at the given path.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("socketrpc: dial: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), 16*scannerMaxTokenSize)
	return &Client{
		conn:    conn,
		scanner: scanner,
		encoder: json.NewEncoder(conn),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// call performs a JSON-RPC call and unmarshals the result into dest.
func (c *Client) call(method string, params interface{}, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID

	paramsData, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("socketrpc: marshal params: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  paramsData,
	}

	c.conn.SetDeadline(time.Now().Add(callTimeout))
	defer c.conn.SetDeadline(time.Time{})

	if err := c.encoder.Encode(req); err != nil {
		return fmt.Errorf("socketrpc: send: %w", err)
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("socketrpc: read: %w", err)
		}
		return fmt.Errorf("socketrpc: connection closed")
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("socketrpc: unmarshal response: %w", err)
	}

	if resp.Error != nil {
		return resp.Error
	}

	if dest != nil {
		if err := json.Unmarshal(resp.Result, dest); err != nil {
			return fmt.Errorf("socketrpc: unmarshal result: %w", err)
		}
	}
	return nil
}

func (c *Client) IsTestMode() (bool, error) {
	var result bool
	err := c.call("IsTestMode", nil, &result)
	return result, err
}

func (c *Client) SetTestMode(enabled bool) error {
	return c.call("SetTestMode", map[string]interface{}{"Enabled": enabled}, nil)
}

func (c *Client) StartTask(name string) (model.TaskMetric, error) {
	var result model.TaskMetric
	err := c.call("StartTask", map[string]interface{}{"Name": name}, &result)
	return result, err
}

func (c *Client) EndTask() (model.TaskMetric, bool, error) {
	var result endTaskResult
	err := c.call("EndTask", nil, &result)
	return result.Task, result.Ended, err
}

// Record sends one interaction event. Unknown kinds are rejected locally.
func (c *Client) Record(kind model.EventKind) error {
	switch kind {
	case model.EventClick:
		return c.call("RecordClick", nil, nil)
	case model.EventError:
		return c.call("RecordError", nil, nil)
	case model.EventHelp:
		return c.call("RecordHelpUsed", nil, nil)
	}
	return fmt.Errorf("socketrpc: unknown event kind %q", kind)
}

func (c *Client) CurrentTask() (model.TaskMetric, bool, error) {
	var result *model.TaskMetric
	if err := c.call("CurrentTask", nil, &result); err != nil {
		return model.TaskMetric{}, false, err
	}
	if result == nil {
		return model.TaskMetric{}, false, nil
	}
	return *result, true, nil
}

func (c *Client) AllMetrics() (model.AggregateMetrics, error) {
	var result model.AggregateMetrics
	err := c.call("AllMetrics", nil, &result)
	return result, err
}

func (c *Client) Snapshot() (model.SessionSnapshot, error) {
	var result model.SessionSnapshot
	err := c.call("Snapshot", nil, &result)
	return result, err
}
