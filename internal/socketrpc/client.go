package socketrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tinytelemetry/sheetboard/internal/model"
)

const defaultClientTimeout = 90 * time.Second

// Client implements model.Dashboard over a Unix domain socket using JSON-RPC 2.0.
type Client struct {
	conn    net.Conn
	mu      sync.Mutex
	nextID  int
	scanner *bufio.Scanner
	encoder *json.Encoder
}

var _ model.Dashboard = (*Client)(nil)

// Dial connects to the socket RPC server at the given path.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("socketrpc: dial: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
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

// call performs a JSON-RPC call and unmarshals the result into dest. The
// connection deadline follows ctx, or a generous default when ctx has none.
func (c *Client) call(ctx context.Context, method string, params interface{}, dest interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

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

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultClientTimeout)
	}
	c.conn.SetDeadline(deadline)
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
	if resp.ID != id {
		return fmt.Errorf("socketrpc: response id %d, want %d", resp.ID, id)
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

func (c *Client) Overview(ctx context.Context) (model.Overview, error) {
	var result model.Overview
	err := c.call(ctx, "Overview", struct{}{}, &result)
	return result, err
}

func (c *Client) Requests(ctx context.Context) (model.RequestsView, error) {
	var result model.RequestsView
	err := c.call(ctx, "Requests", struct{}{}, &result)
	return result, err
}

func (c *Client) Errors(ctx context.Context) (model.ErrorsView, error) {
	var result model.ErrorsView
	err := c.call(ctx, "Errors", struct{}{}, &result)
	return result, err
}

func (c *Client) Metrics(ctx context.Context, name string) (model.MetricsView, error) {
	var result model.MetricsView
	err := c.call(ctx, "Metrics", map[string]interface{}{"Name": name}, &result)
	return result, err
}

func (c *Client) Refresh(ctx context.Context) (model.Overview, error) {
	var result model.Overview
	err := c.call(ctx, "Refresh", struct{}{}, &result)
	return result, err
}
