package ipc

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/mstack/internal/daemon"
	"github.com/1broseidon/mstack/internal/model"
)

// Server exposes the daemon's status/control surface over a unix
// socket, following the teacher's line-delimited-JSON IPC shape.
type Server struct {
	socketPath string
	listener   net.Listener
	daemon     *daemon.Daemon
	logger     *slog.Logger
	startTime  time.Time

	shuttingDown bool
	shutdownMu   sync.Mutex

	Quit func()
}

// NewServer constructs a Server bound to d, listening at socketPath.
func NewServer(socketPath string, d *daemon.Daemon, logger *slog.Logger) *Server {
	_ = os.Remove(socketPath)
	return &Server{
		socketPath: socketPath,
		daemon:     d,
		logger:     logger,
		startTime:  time.Now(),
	}
}

// Start begins listening for connections.
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}
	s.listener = listener
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		return err
	}
	s.logger.Info("ipc server listening", "socket", s.socketPath)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			down := s.shuttingDown
			s.shutdownMu.Unlock()
			if down {
				return
			}
			s.logger.Warn("ipc: accept error", "error", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("ipc: read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, err.Error())
		return
	}

	resp := s.handleCommand(req)
	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("ipc: marshal response failed", "error", err)
		return
	}
	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("ipc: write response failed", "error", err)
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandApplyLayout:
		s.daemon.Engine.ApplyLayout()
		resp, _ := NewOKResponse(nil)
		return resp
	case CommandForceRescan:
		s.daemon.Discovery.ForceImmediateScan()
		resp, _ := NewOKResponse(nil)
		return resp
	case CommandQuit:
		if s.Quit != nil {
			s.Quit()
		}
		resp, _ := NewOKResponse(nil)
		return resp
	default:
		return NewErrorResponse("unknown command: " + string(req.Command))
	}
}

func (s *Server) handleGetStatus() *Response {
	list := s.daemon.Engine.ManagedList()
	ttlByID := make(map[model.WindowID]time.Duration)
	for _, z := range s.daemon.Engine.Zombies() {
		ttlByID[z.WindowID] = z.RemainingTTL
	}

	zombies := 0
	windows := make([]WindowSummary, 0, len(list))
	for _, w := range list {
		remaining, isZombie := ttlByID[w.WindowID]
		if isZombie {
			zombies++
		}
		windows = append(windows, WindowSummary{
			AppName:            w.AppName,
			X:                  w.Frame.X,
			Y:                  w.Frame.Y,
			Width:              w.Frame.Width,
			Height:             w.Frame.Height,
			Zombie:             isZombie,
			RemainingTTLMillis: remaining.Milliseconds(),
		})
	}

	status := StatusData{
		ManagedWindowCount: len(list),
		ZombieCount:        zombies,
		ActiveAnimations:   s.daemon.Animator.ActiveJobCount(),
		Trusted:            s.daemon.Perms.IsTrusted(),
		UptimeSeconds:      time.Since(s.startTime).Seconds(),
		Windows:            windows,
	}
	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) sendError(conn net.Conn, msg string) {
	resp := NewErrorResponse(msg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	_, _ = conn.Write(data)
}

// Stop shuts down the server and removes the socket file.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		_ = s.listener.Close()
	}
	_ = os.Remove(s.socketPath)
}
