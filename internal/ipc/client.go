package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/mstack/internal/runtimepath"
)

// Client talks to a running mstackd over its control socket.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient builds a Client pointed at socketPath. socketPath may be
// empty, in which case runtimepath.SocketPath() resolves the default.
func NewClient(socketPath string) *Client {
	if socketPath == "" {
		if p, err := runtimepath.SocketPath(); err == nil {
			socketPath = p
		}
	}
	return &Client{socketPath: socketPath, timeout: 5 * time.Second}
}

func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("ipc: connect to daemon: %w (is mstackd running?)", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("ipc: set deadline: %w", err)
	}

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("ipc: marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("ipc: send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("ipc: read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("ipc: parse response: %w", err)
	}
	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("ipc: daemon error: %s", resp.Error)
	}
	return &resp, nil
}

// Ping verifies the daemon is reachable.
func (c *Client) Ping() error {
	_, err := c.sendRequest(&Request{Command: CommandGetStatus})
	return err
}

// GetStatus fetches the daemon's current status snapshot.
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetStatus})
	if err != nil {
		return nil, err
	}
	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("ipc: parse status: %w", err)
	}
	return &status, nil
}

// ApplyLayout asks the daemon to re-apply the layout immediately.
func (c *Client) ApplyLayout() error {
	_, err := c.sendRequest(&Request{Command: CommandApplyLayout})
	return err
}

// ForceRescan asks the daemon to run an immediate discovery scan.
func (c *Client) ForceRescan() error {
	_, err := c.sendRequest(&Request{Command: CommandForceRescan})
	return err
}

// Quit asks the daemon to shut down.
func (c *Client) Quit() error {
	_, err := c.sendRequest(&Request{Command: CommandQuit})
	return err
}
