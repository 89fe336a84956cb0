// Package config loads the JSON configuration document (SPEC_FULL.md
// §6.2a) into the two shapes the core actually consumes:
// httpserver.Settings and a built webdir.DirectoryTree.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/larkhttp/larkhttpd/httpserver"
	"github.com/larkhttp/larkhttpd/validation"
	"github.com/larkhttp/larkhttpd/webdir"
)

// Document mirrors the on-disk JSON shape one-to-one before it's
// translated into httpserver.Settings and webdir.DirectoryEntry values.
type Document struct {
	Server      ServerDocument      `json:"server"`
	Admin       AdminDocument       `json:"admin"`
	Directories []DirectoryDocument `json:"directories"`
}

type ServerDocument struct {
	Listen                    string `json:"listen"`
	Backlog                   int    `json:"backlog"`
	ReuseAddress              bool   `json:"reuseAddress"`
	PoolingEnabled            bool   `json:"poolingEnabled"`
	MaxWorkers                int    `json:"maxWorkers"`
	IdleWorkerLifetimeSeconds int    `json:"idleWorkerLifetimeSeconds"`
	ReadTimeoutSeconds        int    `json:"readTimeoutSeconds"`
	WriteTimeoutSeconds       int    `json:"writeTimeoutSeconds"`
	KeepAliveEnabled          bool   `json:"keepAliveEnabled"`
	KeepAliveTimeoutSeconds   int    `json:"keepAliveTimeoutSeconds"`
	ServerName                string `json:"serverName"`
	UploadsDir                string `json:"uploadsDir"`
}

type AdminDocument struct {
	Listen string `json:"listen"`
}

type DirectoryDocument struct {
	Name             string               `json:"name"`
	Parent           string               `json:"parent"`
	RealPath         string               `json:"realPath"`
	VirtualPath      string               `json:"virtualPath"`
	Browsing         string               `json:"browsing"`
	Charset          string               `json:"charset"`
	DefaultDocuments []DefaultDocDocument `json:"defaultDocuments"`
	Handlers         []HandlerDocument    `json:"handlers"`
	Mappings         []MappingDocument    `json:"mappings"`
}

type DefaultDocDocument struct {
	Op   string `json:"op"`
	Name string `json:"name"`
}

type HandlerDocument struct {
	Ext     string `json:"ext"`
	Handler string `json:"handler"`
}

type MappingDocument struct {
	Pattern  string `json:"pattern"`
	Template string `json:"template"`
}

// Result is what Load hands to cmd/larkhttpd: the two inputs spec.md's
// core actually needs, plus the admin listen address.
type Result struct {
	ServerSettings httpserver.Settings
	AdminListen    string
	Tree           *webdir.DirectoryTree

	// Entries is the built-but-not-yet-assembled form of Tree, kept
	// around so a reload can hand it to the live tree's Replace instead
	// of discarding it in favor of a brand new, unreferenced tree.
	Entries []*webdir.DirectoryEntry
}

// Load reads path, parses it as a Document, validates it, and builds
// the server settings plus the directory tree.
func Load(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and builds a Result from r, so tests and the reload
// admin command can feed it something other than a file.
func Parse(r io.Reader) (*Result, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := validateDocument(&doc); err != nil {
		return nil, err
	}

	settings := buildServerSettings(doc.Server)

	entries, err := buildEntries(doc.Directories)
	if err != nil {
		return nil, err
	}
	tree, err := webdir.NewDirectoryTree(entries)
	if err != nil {
		return nil, fmt.Errorf("config: building directory tree: %w", err)
	}

	return &Result{ServerSettings: settings, AdminListen: doc.Admin.Listen, Tree: tree, Entries: entries}, nil
}

// validateDocument applies field-presence and range rules in the style
// of the teacher's validation package (ValidateMap works on a flat
// map[string]any, so the structural rules here — required fields,
// exactly-one-root — are checked directly; the numeric-range helpers
// are reused as-is).
func validateDocument(doc *Document) error {
	if doc.Server.Listen == "" {
		return fmt.Errorf("config: server.listen is required")
	}
	if !validation.ValidateGreaterThen(fmt.Sprint(doc.Server.MaxWorkers), 0) {
		return fmt.Errorf("config: server.maxWorkers must be greater than 0")
	}
	if !validation.ValidateGreaterThenOrEqual(fmt.Sprint(doc.Server.Backlog), 1) {
		return fmt.Errorf("config: server.backlog must be at least 1")
	}

	rootCount := 0
	names := map[string]bool{}
	for _, d := range doc.Directories {
		if d.Name == "" {
			return fmt.Errorf("config: directory entry missing name")
		}
		if names[d.Name] {
			return fmt.Errorf("config: duplicate directory name %q", d.Name)
		}
		names[d.Name] = true
		if d.Parent == "" {
			rootCount++
		}
		if d.RealPath == "" {
			return fmt.Errorf("config: directory %q missing realPath", d.Name)
		}
	}
	if rootCount != 1 {
		return fmt.Errorf("config: exactly one root directory entry is required, found %d", rootCount)
	}
	for _, d := range doc.Directories {
		if d.Parent == "" {
			continue
		}
		if !names[d.Parent] {
			return fmt.Errorf("config: directory %q references unknown parent %q", d.Name, d.Parent)
		}
	}

	return nil
}

func buildServerSettings(s ServerDocument) httpserver.Settings {
	settings := httpserver.DefaultSettings()
	settings.Addr = s.Listen
	if s.Backlog > 0 {
		settings.Backlog = s.Backlog
	}
	settings.ReuseAddress = s.ReuseAddress
	settings.PoolingEnabled = s.PoolingEnabled
	if s.MaxWorkers > 0 {
		settings.MaxWorkers = s.MaxWorkers
	}
	if s.IdleWorkerLifetimeSeconds > 0 {
		settings.IdleWorkerLifetime = time.Duration(s.IdleWorkerLifetimeSeconds) * time.Second
	}
	if s.ReadTimeoutSeconds > 0 {
		settings.ReadTimeout = time.Duration(s.ReadTimeoutSeconds) * time.Second
	}
	if s.WriteTimeoutSeconds > 0 {
		settings.WriteTimeout = time.Duration(s.WriteTimeoutSeconds) * time.Second
	}
	settings.KeepAliveEnabled = s.KeepAliveEnabled
	if s.KeepAliveTimeoutSeconds > 0 {
		settings.KeepAliveTimeout = time.Duration(s.KeepAliveTimeoutSeconds) * time.Second
	}
	if s.ServerName != "" {
		settings.ServerName = s.ServerName
	}
	if s.UploadsDir != "" {
		settings.UploadsDir = s.UploadsDir
	}
	return settings
}

func buildEntries(docs []DirectoryDocument) ([]*webdir.DirectoryEntry, error) {
	entries := make([]*webdir.DirectoryEntry, 0, len(docs))
	for _, d := range docs {
		entry := &webdir.DirectoryEntry{
			Name:        d.Name,
			ParentName:  d.Parent,
			VirtualPath: d.VirtualPath,
			RealPath:    d.RealPath,
			Charset:     d.Charset,
			Browsable:   parseTristate(d.Browsing),
		}

		for _, dd := range d.DefaultDocuments {
			entry.DefaultDocuments = append(entry.DefaultDocuments, webdir.DefaultDocRule{
				Add:  dd.Op == "add",
				Name: dd.Name,
			})
		}

		for _, h := range d.Handlers {
			fn, ok := webdir.LookupHandler(h.Handler)
			if !ok {
				return nil, fmt.Errorf("config: directory %q references unregistered handler %q", d.Name, h.Handler)
			}
			entry.Handlers = append(entry.Handlers, webdir.HandlerReg{Ext: h.Ext, Fn: fn})
		}

		for _, m := range d.Mappings {
			pattern, err := regexp.Compile(m.Pattern)
			if err != nil {
				return nil, fmt.Errorf("config: directory %q has invalid mapping pattern %q: %w", d.Name, m.Pattern, err)
			}
			entry.Mappings = append(entry.Mappings, webdir.URLMapping{Pattern: pattern, Template: m.Template})
		}

		entry.Templates = defaultTemplates()

		entries = append(entries, entry)
	}
	return entries, nil
}

func parseTristate(s string) webdir.Tristate {
	switch s {
	case "true":
		return webdir.TristateTrue
	case "false":
		return webdir.TristateFalse
	default:
		return webdir.TristateUnknown
	}
}
