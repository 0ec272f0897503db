// Package ipc implements the minimal unix-socket control protocol the
// status/menu-bar collaborator of spec.md §6.2 uses to reach the
// daemon: applyLayout, forceImmediateScan, and status introspection.
package ipc

import (
	"encoding/json"
	"fmt"
)

// CommandType enumerates the control commands this daemon accepts.
type CommandType string

const (
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandApplyLayout CommandType = "APPLY_LAYOUT"
	CommandForceRescan CommandType = "FORCE_RESCAN"
	CommandQuit        CommandType = "QUIT"
)

// Request is one line of JSON sent by a client.
type Request struct {
	Command CommandType `json:"command"`
}

// Response is one line of JSON returned to the client.
type Response struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData is the payload returned by GET_STATUS — the contract the
// status/menu-bar collaborator of spec.md §6.2 reads from.
type StatusData struct {
	ManagedWindowCount int             `json:"managed_window_count"`
	ZombieCount        int             `json:"zombie_count"`
	ActiveAnimations   int             `json:"active_animations"`
	Trusted            bool            `json:"trusted"`
	UptimeSeconds      float64         `json:"uptime_seconds"`
	Windows            []WindowSummary `json:"windows"`
}

// WindowSummary describes one ManagedList entry for status consumers
// (the dashboard, the menu-bar item) without exposing the accessibility
// handle itself.
type WindowSummary struct {
	AppName            string  `json:"app_name"`
	X                  float64 `json:"x"`
	Y                  float64 `json:"y"`
	Width              float64 `json:"width"`
	Height             float64 `json:"height"`
	Zombie             bool    `json:"zombie"`
	RemainingTTLMillis int64   `json:"remaining_ttl_millis,omitempty"`
}

// NewOKResponse builds a successful Response carrying data.
func NewOKResponse(data interface{}) (*Response, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("ipc: marshal response data: %w", err)
		}
		raw = b
	}
	return &Response{Status: "OK", Data: raw}, nil
}

// NewErrorResponse builds a failed Response carrying a message.
func NewErrorResponse(msg string) *Response {
	return &Response{Status: "ERROR", Error: msg}
}

// ParseRequest decodes one JSON line into a Request.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("ipc: parse request: %w", err)
	}
	return &req, nil
}

// Marshal encodes a Response to JSON bytes.
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
