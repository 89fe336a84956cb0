package admin

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/larkhttp/larkhttpd/config"
	"github.com/larkhttp/larkhttpd/httpctx"
	"github.com/larkhttp/larkhttpd/httpmsg"
	"github.com/larkhttp/larkhttpd/httpserver"
	"github.com/larkhttp/larkhttpd/webdir"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	settings := httpserver.DefaultSettings()
	settings.Addr = "127.0.0.1:0"
	rt := httpserver.New(settings, slog.New(slog.NewTextHandler(io.Discard, nil)), func(ctx *httpctx.HttpContext) error {
		ctx.Response.Status = httpmsg.StatusOK
		return ctx.Response.WriteCompleteHTML("ok")
	})
	if err := rt.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rt.Stop(true) })
	return &Server{Runtime: rt, Log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestDispatchStat(t *testing.T) {
	s := testServer(t)
	reply := s.dispatch("stat")
	if !strings.HasPrefix(reply, "requests=") {
		t.Errorf("stat reply = %q", reply)
	}
}

func TestDispatchRun(t *testing.T) {
	s := testServer(t)
	if got := s.dispatch("run"); got != "ok" {
		t.Errorf("run reply = %q, want ok", got)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	s := testServer(t)
	if got := s.dispatch("bogus"); !strings.HasPrefix(got, "error:") {
		t.Errorf("unknown command reply = %q, want error", got)
	}
}

func TestDispatchReloadSwapsLiveTree(t *testing.T) {
	origRoot := t.TempDir()
	tree, err := webdir.NewDirectoryTree([]*webdir.DirectoryEntry{
		{Name: "root", VirtualPath: "/", RealPath: origRoot},
	})
	if err != nil {
		t.Fatal(err)
	}

	newRoot := t.TempDir()
	configPath := filepath.Join(t.TempDir(), "larkhttpd.json")
	doc := fmt.Sprintf(`{
	  "server": {"listen": "127.0.0.1:0", "backlog": 1, "maxWorkers": 1},
	  "directories": [
	    {"name": "root", "parent": "", "realPath": %q, "virtualPath": "/"}
	  ]
	}`, newRoot)
	if err := os.WriteFile(configPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	s := testServer(t)
	s.Tree = tree
	s.ConfigPath = configPath

	if reply := s.dispatch("reload"); reply != "reloaded" {
		t.Fatalf("reload reply = %q, want reloaded", reply)
	}

	entry, ok := tree.Lookup("/")
	if !ok {
		t.Fatal("expected root entry still present after reload")
	}
	if entry.RealPath != newRoot {
		t.Errorf("tree.RealPath = %q after reload, want %q (reload discarded the new tree)", entry.RealPath, newRoot)
	}

	// sanity: config.Load still parses the same document the way reload did.
	if _, err := config.Load(configPath); err != nil {
		t.Fatal(err)
	}
}

func TestServeRespondsOverSocket(t *testing.T) {
	s := testServer(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s.listener = listener
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go s.handle(conn)
		}
	}()

	conn, err := net.Dial("tcp", listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.Write([]byte("run"))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(line) != "ok" {
		t.Errorf("got %q, want ok", line)
	}
}
