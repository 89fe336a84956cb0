package webdir

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/larkhttp/larkhttpd/filesystem"
	"github.com/larkhttp/larkhttpd/httpctx"
	"github.com/larkhttp/larkhttpd/httpmsg"
)

func newTestContext(t *testing.T, server net.Conn, method httpmsg.MethodKind, pathQuery string) *httpctx.HttpContext {
	t.Helper()
	ctx := &httpctx.HttpContext{
		Conn:     server,
		Method:   method,
		Header:   &httpmsg.RequestHeader{Method: methodName(method), Kind: method, PathQuery: pathQuery, Fields: map[string]string{}},
		Body:     httpmsg.NewBodyReader(server, 0, nil),
		Response: httpmsg.NewResponseWriter(server, method == httpmsg.MethodHEAD),
	}
	ctx.VirtualPath = ctx.Header.Path()
	return ctx
}

func methodName(k httpmsg.MethodKind) string {
	switch k {
	case httpmsg.MethodGET:
		return "GET"
	case httpmsg.MethodHEAD:
		return "HEAD"
	case httpmsg.MethodPOST:
		return "POST"
	default:
		return "?"
	}
}

func TestResolveServesFile(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hello"), 0o644)

	tree, err := NewDirectoryTree([]*DirectoryEntry{{Name: "root", VirtualPath: "/", RealPath: root}})
	if err != nil {
		t.Fatal(err)
	}
	r := &Resolver{Tree: tree, FS: filesystem.NewLocalFileSystem()}

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctx := newTestContext(t, server, httpmsg.MethodGET, "/hello.txt")

	done := make(chan error, 1)
	go func() {
		defer server.Close()
		done <- r.Resolve(ctx)
	}()

	raw, _ := io.ReadAll(client)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	text := string(raw)
	if !strings.Contains(text, "200") {
		t.Errorf("expected 200 status, got %q", text)
	}
	if !strings.HasSuffix(text, "hello") {
		t.Errorf("expected body hello, got %q", text)
	}
}

func TestResolveRedirectsDirectoryWithoutSlash(t *testing.T) {
	root := t.TempDir()
	os.Mkdir(filepath.Join(root, "docs"), 0o755)

	tree, err := NewDirectoryTree([]*DirectoryEntry{{Name: "root", VirtualPath: "/", RealPath: root}})
	if err != nil {
		t.Fatal(err)
	}
	r := &Resolver{Tree: tree, FS: filesystem.NewLocalFileSystem()}

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctx := newTestContext(t, server, httpmsg.MethodGET, "/docs")

	done := make(chan error, 1)
	go func() {
		defer server.Close()
		done <- r.Resolve(ctx)
	}()

	raw, _ := io.ReadAll(client)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	text := string(raw)
	if !strings.Contains(text, "302") || !strings.Contains(text, "Location: /docs/") {
		t.Errorf("expected 302 redirect to /docs/, got %q", text)
	}
}

func TestDispatchHandlersMatchesDottedConfiguredExtension(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "index.php"), []byte("<?php"), 0o644)

	var fired bool
	entry := &DirectoryEntry{
		Name:        "root",
		VirtualPath: "/",
		RealPath:    root,
		Handlers: []HandlerReg{
			{Ext: ".php", Fn: func(ctx *httpctx.HttpContext) bool {
				fired = true
				return true
			}},
		},
	}
	tree, err := NewDirectoryTree([]*DirectoryEntry{entry})
	if err != nil {
		t.Fatal(err)
	}
	r := &Resolver{Tree: tree, FS: filesystem.NewLocalFileSystem()}

	_, server := net.Pipe()
	defer server.Close()
	ctx := newTestContext(t, server, httpmsg.MethodGET, "/index.php")

	if err := r.Resolve(ctx); err != nil {
		t.Fatal(err)
	}
	if !fired {
		t.Error("handler registered under the dotted extension \".php\" did not fire")
	}
}

func TestResolveMissingRootReturns404(t *testing.T) {
	tree := &DirectoryTree{}

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	r := &Resolver{Tree: tree, FS: filesystem.NewLocalFileSystem()}
	ctx := newTestContext(t, server, httpmsg.MethodGET, "/anything")

	done := make(chan error, 1)
	go func() {
		defer server.Close()
		done <- r.Resolve(ctx)
	}()

	raw, _ := io.ReadAll(client)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "404") {
		t.Errorf("expected 404, got %q", raw)
	}
}
