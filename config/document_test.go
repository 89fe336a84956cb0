package config

import (
	"strings"
	"testing"

	"github.com/larkhttp/larkhttpd/httpctx"
	"github.com/larkhttp/larkhttpd/webdir"
)

const validDoc = `{
  "server": {"listen": "0.0.0.0:8080", "backlog": 128, "maxWorkers": 32},
  "admin": {"listen": "127.0.0.1:9090"},
  "directories": [
    {"name": "root", "parent": "", "realPath": "/srv/www", "virtualPath": "/", "browsing": "true"},
    {"name": "docs", "parent": "root", "realPath": "/srv/www/docs", "virtualPath": "/docs/",
     "handlers": [{"ext": ".php", "handler": "test-handler"}],
     "mappings": [{"pattern": "^old/(.*)$", "template": "new/{0}"}]}
  ]
}`

func TestParseBuildsSettingsAndTree(t *testing.T) {
	webdir.RegisterHandler("test-handler", func(ctx *httpctx.HttpContext) bool { return false })

	result, err := Parse(strings.NewReader(validDoc))
	if err != nil {
		t.Fatal(err)
	}
	if result.ServerSettings.Addr != "0.0.0.0:8080" {
		t.Errorf("Addr = %q", result.ServerSettings.Addr)
	}
	if result.ServerSettings.MaxWorkers != 32 {
		t.Errorf("MaxWorkers = %d, want 32", result.ServerSettings.MaxWorkers)
	}
	if result.AdminListen != "127.0.0.1:9090" {
		t.Errorf("AdminListen = %q", result.AdminListen)
	}

	docs, ok := result.Tree.Lookup("/docs/")
	if !ok {
		t.Fatal("expected /docs/ entry in tree")
	}
	if len(docs.Handlers) != 1 || len(docs.Mappings) != 1 {
		t.Errorf("docs entry handlers/mappings not wired: %+v", docs)
	}
}

func TestParseRejectsMissingRoot(t *testing.T) {
	doc := `{"server": {"listen": ":8080", "maxWorkers": 1, "backlog": 1},
	  "directories": [{"name": "docs", "parent": "root", "realPath": "/x", "virtualPath": "/docs/"}]}`
	if _, err := Parse(strings.NewReader(doc)); err == nil {
		t.Error("expected error for missing root directory")
	}
}

func TestParseRejectsUnregisteredHandler(t *testing.T) {
	doc := `{"server": {"listen": ":8080", "maxWorkers": 1, "backlog": 1},
	  "directories": [{"name": "root", "parent": "", "realPath": "/x", "virtualPath": "/",
	    "handlers": [{"ext": ".cgi", "handler": "nonexistent"}]}]}`
	if _, err := Parse(strings.NewReader(doc)); err == nil {
		t.Error("expected error for unregistered handler name")
	}
}

func TestParseRejectsInvalidMaxWorkers(t *testing.T) {
	doc := `{"server": {"listen": ":8080", "maxWorkers": 0, "backlog": 1},
	  "directories": [{"name": "root", "parent": "", "realPath": "/x", "virtualPath": "/"}]}`
	if _, err := Parse(strings.NewReader(doc)); err == nil {
		t.Error("expected error for maxWorkers <= 0")
	}
}
