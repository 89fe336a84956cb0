// Package webdir implements spec component C7: the virtual-directory tree,
// its URL-mapping/handler/default-document configuration, and the resolver
// that walks a request's path through that configuration.
package webdir

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/larkhttp/larkhttpd/httpctx"
)

// Tristate models DirectoryEntry.Browsable's unknown/false/true states
// (spec §3) — "unknown" lets a descendant inherit its nearest ancestor's
// setting instead of hardcoding false.
type Tristate int

const (
	TristateUnknown Tristate = iota
	TristateFalse
	TristateTrue
)

// DefaultDocRule is one entry in a directory's ordered default-document
// list: Add=true appends name as a candidate, Add=false removes a
// previously-added candidate of the same name (spec §4.7.1).
type DefaultDocRule struct {
	Add  bool
	Name string
}

// Handler is the per-directory extension-dispatch callback (spec §6.4).
// Returning true means it fully produced the response.
type Handler func(ctx *httpctx.HttpContext) bool

// HandlerReg pairs a handler with the extension (or "*") it's registered
// under; DirectoryEntry.Handlers preserves registration order since the
// resolver honors the first handler that returns true.
type HandlerReg struct {
	Ext string
	Fn  Handler
}

// URLMapping is one (regex, rewrite-template) rule (spec §4.7 Step 2).
type URLMapping struct {
	Pattern *regexp.Regexp
	Template string
}

// Templates holds the six HTML fragments a directory listing is built
// from (spec §6.2), with the substitution tokens spec §6.2 names.
type Templates struct {
	Header        string
	ParentLink    string
	VirtualDirRow string
	DirectoryRow  string
	FileRow       string
	Footer        string
}

// DirectoryEntry is the resolver's unit of configuration (spec §3).
type DirectoryEntry struct {
	Name        string
	ParentName  string
	VirtualPath string // always slash-terminated
	RealPath    string
	Browsable   Tristate
	Charset     string

	DefaultDocuments []DefaultDocRule
	Handlers         []HandlerReg
	Mappings         []URLMapping
	Templates        Templates

	// effectiveDefaultDocuments is DefaultDocuments merged with every
	// ancestor's, computed once at tree build time (spec §4.7.1).
	effectiveDefaultDocuments []string
}

// EffectiveDefaultDocuments returns the merged add/remove resolution
// computed when the owning DirectoryTree was built.
func (e *DirectoryEntry) EffectiveDefaultDocuments() []string {
	return e.effectiveDefaultDocuments
}

func mergeDefaultDocuments(ancestorDocs []string, rules []DefaultDocRule) []string {
	docs := append([]string(nil), ancestorDocs...)
	for _, rule := range rules {
		if rule.Add {
			docs = append(docs, rule.Name)
			continue
		}
		out := docs[:0]
		for _, d := range docs {
			if d != rule.Name {
				out = append(out, d)
			}
		}
		docs = out
	}
	return docs
}

// defaultCharset is ISO-8859-1, the charset spec §4.7.1 step 4 exempts
// from the Accept-Charset check.
const defaultCharset = "ISO-8859-1"

func normalizeVirtualPath(p string) string {
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// validateEntries checks the invariants spec §3 lists for DirectoryEntry: a
// single root, and every entry's parent reachable by repeated lookup.
func validateEntries(byName map[string]*DirectoryEntry) error {
	rootCount := 0
	for _, e := range byName {
		if e.VirtualPath == "/" {
			rootCount++
		}
		if e.ParentName == "" {
			continue
		}
		seen := map[string]bool{e.Name: true}
		cur := e.ParentName
		for cur != "" {
			if seen[cur] {
				return fmt.Errorf("webdir: cycle detected reaching parent of %q", e.Name)
			}
			seen[cur] = true
			parent, ok := byName[cur]
			if !ok {
				return fmt.Errorf("webdir: entry %q references unknown parent %q", e.Name, cur)
			}
			cur = parent.ParentName
		}
	}
	if rootCount != 1 {
		return fmt.Errorf("webdir: expected exactly one entry with virtual path \"/\", found %d", rootCount)
	}
	return nil
}
