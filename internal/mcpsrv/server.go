// Package mcpsrv exposes the daemon's status/control surface of
// spec.md §6.2 as MCP tools, so an editor or agent harness can query
// and drive mstackd the same way the status/menu-bar collaborator
// does over the unix socket.
package mcpsrv

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/mstack/internal/ipc"
)

const (
	ServerName    = "mstack"
	ServerVersion = "0.1.0"
)

// Server is the MCP server fronting a running mstackd over its
// control socket.
type Server struct {
	mcpServer *mcpsdk.Server
	client    *ipc.Client
}

// NewServer builds an MCP server that talks to mstackd through client.
func NewServer(client *ipc.Client) *Server {
	s := &Server{client: client}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{Name: ServerName, Version: ServerVersion},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until ctx is
// cancelled or the transport closes.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Return mstackd's current status: managed window count, zombie count, active animation jobs, accessibility trust, and uptime.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "apply_layout",
		Description: "Force mstackd to recompute and apply the master-stack layout immediately, bypassing debounce.",
	}, s.handleApplyLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "force_rescan",
		Description: "Force mstackd's Discovery worker to run an immediate window scan.",
	}, s.handleForceRescan)
}

type emptyArgs struct{}

type statusResult struct {
	ManagedWindowCount int     `json:"managed_window_count"`
	ZombieCount        int     `json:"zombie_count"`
	ActiveAnimations   int     `json:"active_animations"`
	Trusted            bool    `json:"trusted"`
	UptimeSeconds      float64 `json:"uptime_seconds"`
}

func (s *Server) handleGetStatus(ctx context.Context, req *mcpsdk.CallToolRequest, args emptyArgs) (*mcpsdk.CallToolResult, statusResult, error) {
	status, err := s.client.GetStatus()
	if err != nil {
		return nil, statusResult{}, fmt.Errorf("mcpsrv: get status: %w", err)
	}
	return nil, statusResult{
		ManagedWindowCount: status.ManagedWindowCount,
		ZombieCount:        status.ZombieCount,
		ActiveAnimations:   status.ActiveAnimations,
		Trusted:            status.Trusted,
		UptimeSeconds:      status.UptimeSeconds,
	}, nil
}

type okResult struct {
	OK bool `json:"ok"`
}

func (s *Server) handleApplyLayout(ctx context.Context, req *mcpsdk.CallToolRequest, args emptyArgs) (*mcpsdk.CallToolResult, okResult, error) {
	if err := s.client.ApplyLayout(); err != nil {
		return nil, okResult{}, fmt.Errorf("mcpsrv: apply layout: %w", err)
	}
	return nil, okResult{OK: true}, nil
}

func (s *Server) handleForceRescan(ctx context.Context, req *mcpsdk.CallToolRequest, args emptyArgs) (*mcpsdk.CallToolResult, okResult, error) {
	if err := s.client.ForceRescan(); err != nil {
		return nil, okResult{}, fmt.Errorf("mcpsrv: force rescan: %w", err)
	}
	return nil, okResult{OK: true}, nil
}
