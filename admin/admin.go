// Package admin implements the second, administrative listener spec.md
// §6.5 describes: a small text protocol for stat/stop/start/reload/run,
// exercising sockio's idle-based UntilQuietPeriod completion policy.
package admin

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/larkhttp/larkhttpd/config"
	"github.com/larkhttp/larkhttpd/httpserver"
	"github.com/larkhttp/larkhttpd/sockio"
	"github.com/larkhttp/larkhttpd/webdir"
)

// QuietPeriod bounds how long the admin connection handler waits for
// more bytes before treating a command as complete.
const QuietPeriod = 200 * time.Millisecond

// Server owns the admin listener and the runtime/config it controls.
type Server struct {
	Runtime    *httpserver.Runtime
	Tree       *webdir.DirectoryTree
	Log        *slog.Logger
	ConfigPath string

	listener net.Listener
}

// Serve accepts admin connections on addr until the listener is closed
// by a "stop" command or by the caller.
func (s *Server) Serve(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener

	for {
		conn, err := listener.Accept()
		if err != nil {
			return nil
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	raw, _, err := sockio.ReadUntil(conn, sockio.UntilQuietPeriod{Quiet: QuietPeriod}, true)
	if err != nil {
		return
	}

	cmd := strings.TrimSpace(string(raw))
	reply := s.dispatch(cmd)
	sockio.WriteAll(conn, []byte(reply+"\n"))
}

// dispatch implements the command list of spec §6.5 literally.
func (s *Server) dispatch(cmd string) string {
	switch cmd {
	case "stat":
		stat := s.Runtime.Stat()
		return fmt.Sprintf("requests=%d workers=%d idle=%d", stat.TotalRequests, stat.TotalWorkers, stat.IdleWorkers)

	case "stop":
		if err := s.Runtime.Stop(true); err != nil {
			return "error: " + err.Error()
		}
		if s.listener != nil {
			s.listener.Close()
		}
		return "stopped"

	case "start":
		if err := s.Runtime.Start(); err != nil {
			return "error: " + err.Error()
		}
		return "started"

	case "reload":
		return s.reload()

	case "run":
		return "ok"

	default:
		return "error: unknown command"
	}
}

func (s *Server) reload() string {
	if err := s.Runtime.Stop(true); err != nil {
		return "error: " + err.Error()
	}

	result, err := config.Load(s.ConfigPath)
	if err != nil {
		return "error: " + err.Error()
	}

	if s.Tree != nil {
		if err := s.Tree.Replace(result.Entries); err != nil {
			return "error: " + err.Error()
		}
	}

	s.Runtime.Settings = result.ServerSettings
	s.Log.Info("admin: config reloaded", "path", s.ConfigPath)

	if err := s.Runtime.Start(); err != nil {
		return "error: " + err.Error()
	}
	return "reloaded"
}
